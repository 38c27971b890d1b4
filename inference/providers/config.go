package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Config selects an execution provider and the session tuning applied with it.
type Config struct {
	// Backend is one of cpu, cuda, coreml or openvino.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// CUDA options, used when Backend is cuda.
	CUDA CUDAOptions `json:"cuda" yaml:"cuda"`
	// CoreML options, used when Backend is coreml.
	CoreML CoreMLOptions `json:"coreml" yaml:"coreml"`
	// OpenVINO options, used when Backend is openvino.
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
	// Optimization controls threading and graph rewrites.
	Optimization OptimizationConfig `json:"optimization" yaml:"optimization"`
}

// DefaultConfig returns a CPU configuration with the default optimization settings.
//
// @example
// config := DefaultConfig()
// config.Backend = CUDAProviderBackend
// provider, err := NewProvider(config)
func DefaultConfig() Config {
	return Config{
		Backend:      CPUProviderBackend,
		Optimization: DefaultOptimizationConfig(),
	}
}

// Validate checks the backend name and the optimization settings.
func (c Config) Validate() error {
	switch c.Backend {
	case "", CPUProviderBackend, CUDAProviderBackend, CoreMLProviderBackend, OpenVINOProviderBackend:
	default:
		return errors.Wrapf(ErrUnknownBackend, "%q", c.Backend)
	}
	return c.Optimization.Validate()
}

// NewSessionOptions builds session options from the optimization settings and registers the
// configured execution provider on them. The caller owns the result and must Destroy it.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The configured options.
//   - error: If the options could not be created or the provider could not be enabled.
func NewSessionOptions(cfg Config) (*ort.SessionOptions, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	options, err := OptimizedSessionOptions(cfg.Optimization)
	if err != nil {
		return nil, err
	}

	if err := provider.Apply(options); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}
