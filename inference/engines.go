package inference

import (
	"context"

	"github.com/nvr-ai/go-plantdx/inference/providers"
	"github.com/pkg/errors"
)

// EngineType is the classifier backend.
type EngineType string

const (
	// EngineONNX runs an ONNX model through onnxruntime.
	EngineONNX EngineType = "onnx"
	// EngineLinear runs a linear head loaded from .npy weights.
	EngineLinear EngineType = "linear"
)

// Engines is a list of all supported engines.
var Engines = []EngineType{EngineONNX, EngineLinear}

// Config selects and locates a classifier.
type Config struct {
	// Engine is the backend, onnx or linear.
	Engine EngineType `yaml:"engine"`
	// ModelPath is the ONNX model file.
	ModelPath string `yaml:"modelPath"`
	// LibraryPath is the onnxruntime shared library; empty uses the platform default.
	LibraryPath string `yaml:"libraryPath"`
	// InputName is the ONNX input name; empty discovers it.
	InputName string `yaml:"inputName"`
	// OutputName is the ONNX output name; empty discovers it.
	OutputName string `yaml:"outputName"`
	// WeightsPath is the linear head weight matrix (.npy).
	WeightsPath string `yaml:"weightsPath"`
	// BiasPath is the linear head bias vector (.npy).
	BiasPath string `yaml:"biasPath"`
	// Providers selects the onnxruntime execution provider.
	Providers providers.Config `yaml:"providers"`
}

// DefaultConfig returns an ONNX configuration on the CPU provider.
func DefaultConfig() Config {
	return Config{
		Engine:    EngineONNX,
		ModelPath: "models/plant_disease.onnx",
		Providers: providers.DefaultConfig(),
	}
}

// Validate checks that the selected engine has what it needs.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineONNX:
		if c.ModelPath == "" {
			return errors.New("onnx engine requires modelPath")
		}
		return c.Providers.Validate()
	case EngineLinear:
		if c.WeightsPath == "" || c.BiasPath == "" {
			return errors.New("linear engine requires weightsPath and biasPath")
		}
		return nil
	default:
		return errors.Errorf("unknown engine %q", c.Engine)
	}
}

// NewFactory returns a Factory that builds the configured classifier for tensors of the given
// side and class count. Pass the result to NewLazy to defer loading until first use.
func NewFactory(cfg Config, side, classes int) Factory {
	return func(_ context.Context) (Classifier, error) {
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(ErrModelUnavailable, err.Error())
		}

		switch cfg.Engine {
		case EngineLinear:
			c, err := LoadLinearClassifier(side, cfg.WeightsPath, cfg.BiasPath)
			if err != nil {
				return nil, err
			}
			if c.Classes() != classes {
				_ = c.Close()
				return nil, errors.Wrapf(ErrModelUnavailable, "linear head has %d classes, registry has %d", c.Classes(), classes)
			}
			return c, nil
		default:
			return NewONNXClassifier(NewSessionArgs{
				ModelPath:   cfg.ModelPath,
				LibraryPath: cfg.LibraryPath,
				InputName:   cfg.InputName,
				OutputName:  cfg.OutputName,
				Side:        side,
				Classes:     classes,
				Providers:   cfg.Providers,
			})
		}
	}
}
