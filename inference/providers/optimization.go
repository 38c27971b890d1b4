package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// GraphOptimization names an onnxruntime graph optimization level.
type GraphOptimization string

// Graph optimization levels.
const (
	GraphOptimizationDisabled GraphOptimization = "disabled"
	GraphOptimizationBasic    GraphOptimization = "basic"
	GraphOptimizationExtended GraphOptimization = "extended"
	GraphOptimizationAll      GraphOptimization = "all"
)

// OptimizationConfig contains ONNX Runtime session tuning.
type OptimizationConfig struct {
	// GraphOptimization controls the level of graph optimization.
	GraphOptimization GraphOptimization `json:"graphOptimization" yaml:"graphOptimization"`
	// Sequential forces sequential node execution instead of parallel.
	Sequential bool `json:"sequential" yaml:"sequential"`
	// IntraOpNumThreads sets threads for parallelizing ops. Zero lets the runtime decide.
	IntraOpNumThreads int `json:"intraOpNumThreads" yaml:"intraOpNumThreads"`
	// InterOpNumThreads sets threads for parallelizing independent ops. Zero lets the runtime decide.
	InterOpNumThreads int `json:"interOpNumThreads" yaml:"interOpNumThreads"`
}

// DefaultOptimizationConfig returns extended graph optimization with half the cores for
// intra-op work.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		GraphOptimization: GraphOptimizationExtended,
		Sequential:        true,
		IntraOpNumThreads: max(1, runtime.NumCPU()/2),
		InterOpNumThreads: 1,
	}
}

// Validate checks the optimization settings.
func (c OptimizationConfig) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.New("thread counts must not be negative")
	}
	return nil
}

func (c OptimizationConfig) level() (ort.GraphOptimizationLevel, error) {
	switch c.GraphOptimization {
	case GraphOptimizationDisabled:
		return ort.GraphOptimizationLevelDisableAll, nil
	case GraphOptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "", GraphOptimizationExtended:
		return ort.GraphOptimizationLevelEnableExtended, nil
	case GraphOptimizationAll:
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, errors.Errorf("unknown graph optimization level %q", c.GraphOptimization)
	}
}

// executionMode maps Sequential onto the onnxruntime execution mode.
func (c OptimizationConfig) executionMode() ort.ExecutionMode {
	var mode ort.ExecutionMode = ort.ExecutionModeParallel
	if c.Sequential {
		mode = ort.ExecutionModeSequential
	}
	return mode
}

// OptimizedSessionOptions creates session options from the optimization settings.
//
// Returns:
//   - *ort.SessionOptions: Configured session options; the caller must Destroy them.
//   - error: If the options could not be created or configured.
//
// @example
// options, err := OptimizedSessionOptions(DefaultOptimizationConfig())
// defer options.Destroy()
func OptimizedSessionOptions(config OptimizationConfig) (*ort.SessionOptions, error) {
	level, err := config.level()
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	mode := config.executionMode()

	for _, apply := range []func() error{
		func() error { return options.SetGraphOptimizationLevel(level) },
		func() error { return options.SetExecutionMode(mode) },
		func() error { return options.SetIntraOpNumThreads(config.IntraOpNumThreads) },
		func() error { return options.SetInterOpNumThreads(config.InterOpNumThreads) },
	} {
		if err := apply(); err != nil {
			options.Destroy()
			return nil, errors.Wrap(err, "error configuring ORT session options")
		}
	}

	return options, nil
}
