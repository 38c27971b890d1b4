// Package config - Process configuration: YAML file, .env file and PLANTDX_* overrides.
package config

import (
	"bytes"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/go-plantdx/inference"
	"github.com/nvr-ai/go-plantdx/inference/providers"
	"github.com/nvr-ai/go-plantdx/logging"
	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/nvr-ai/go-plantdx/quality"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLANTDX_"

// Config is everything the process needs at start. It is not reloaded.
type Config struct {
	// Quality configures the blur gate.
	Quality quality.Gate `yaml:"quality"`
	// Preprocess holds the input side and normalization constants of the model.
	Preprocess preprocess.Config `yaml:"preprocess"`
	// Inference selects and locates the classifier.
	Inference inference.Config `yaml:"inference"`
	// ManifestPath is a class manifest file; empty uses the built-in layout.
	ManifestPath string `yaml:"manifestPath"`
	// TreatmentsPath is the SQLite guidance database; empty disables stored guidance.
	TreatmentsPath string `yaml:"treatmentsPath"`
	// Logging configures the logger.
	Logging logging.Config `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Quality:        quality.DefaultGate(),
		Preprocess:     preprocess.DefaultConfig(),
		Inference:      inference.DefaultConfig(),
		TreatmentsPath: "treatments.db",
		Logging:        logging.DefaultConfig(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if any), then variables
// from a .env file in the working directory (if present), then PLANTDX_* variables.
//
// Arguments:
//   - path: A YAML file, or empty for defaults only.
//
// Returns:
//   - Config: The validated configuration.
//   - error: If the file cannot be read or parsed, an override is malformed, or validation fails.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays PLANTDX_* variables found through lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("MODEL_PATH", &c.Inference.ModelPath)
	str("ORT_LIBRARY", &c.Inference.LibraryPath)
	str("WEIGHTS_PATH", &c.Inference.WeightsPath)
	str("BIAS_PATH", &c.Inference.BiasPath)
	str("MANIFEST", &c.ManifestPath)
	str("TREATMENTS_DB", &c.TreatmentsPath)
	str("LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup(EnvPrefix + "ENGINE"); ok {
		c.Inference.Engine = inference.EngineType(v)
	}
	if v, ok := lookup(EnvPrefix + "PROVIDER"); ok {
		c.Inference.Providers.Backend = providers.ProviderBackend(v)
	}
	if v, ok := lookup(EnvPrefix + "SIDE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%sSIDE", EnvPrefix)
		}
		c.Preprocess.Side = n
	}
	if v, ok := lookup(EnvPrefix + "BLUR_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "%sBLUR_THRESHOLD", EnvPrefix)
		}
		c.Quality.Threshold = f
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Quality.Validate(); err != nil {
		return errors.Wrap(err, "quality")
	}
	if c.Preprocess.Side < 3 {
		return errors.Errorf("preprocess: side must be greater than 2, got %d", c.Preprocess.Side)
	}
	if err := c.Preprocess.Validate(); err != nil {
		return errors.Wrap(err, "preprocess")
	}
	if err := c.Inference.Validate(); err != nil {
		return errors.Wrap(err, "inference")
	}
	return errors.Wrap(c.Logging.Validate(), "logging")
}
