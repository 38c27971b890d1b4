package models

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed plant_manifest.yaml
var plantManifest []byte

// LoadManifest parses a YAML (or JSON) class layout. Unknown fields are rejected.
func LoadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, errors.Wrap(ErrInvalidManifest, err.Error())
	}
	return m, nil
}

// LoadManifestFile reads a class layout from disk.
func LoadManifestFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, errors.Wrapf(err, "open manifest %s", path)
	}
	defer f.Close()

	return LoadManifest(f)
}

// LoadRegistry builds a registry from a manifest file, or from the built-in PlantVillage
// layout when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry()
	}
	m, err := LoadManifestFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(m)
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	m, err := LoadManifest(bytes.NewReader(plantManifest))
	if err != nil {
		return nil, err
	}
	return NewRegistry(m)
})

// DefaultRegistry returns the built-in 38 class PlantVillage registry. It is parsed once per
// process and shared.
func DefaultRegistry() (*Registry, error) {
	return defaultRegistry()
}
