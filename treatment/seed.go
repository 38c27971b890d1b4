package treatment

import (
	_ "embed"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// Seeds returns the built-in guidance records.
func Seeds() ([]Treatment, error) {
	var seeds []Treatment
	if err := yaml.Unmarshal(seedYAML, &seeds); err != nil {
		return nil, errors.Wrap(err, "parse built-in treatments")
	}
	return seeds, nil
}
