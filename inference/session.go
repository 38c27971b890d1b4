package inference

import (
	"os"
	"sync"

	"github.com/nvr-ai/go-plantdx/inference/providers"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// environmentMu guards the process-wide onnxruntime environment.
var environmentMu sync.Mutex

// initializeEnvironment points onnxruntime at its shared library and initializes it once per
// process.
func initializeEnvironment(libraryPath string) error {
	environmentMu.Lock()
	defer environmentMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	libPath, err := providers.GetSharedLibPath(libraryPath, "third_party")
	if err != nil {
		return errors.Wrap(ErrModelUnavailable, err.Error())
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(ErrModelUnavailable, "onnxruntime library not found at %s: %v", libPath, err)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrapf(ErrModelUnavailable, "error initializing ORT environment: %v", err)
	}
	return nil
}

// Session represents a model session from the onnxruntime with its bound tensors.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	if s.Input != nil {
		s.Input.Destroy()
		s.Input = nil
	}
	if s.Output != nil {
		s.Output.Destroy()
		s.Output = nil
	}
	if s.Session != nil {
		err := s.Session.Destroy()
		s.Session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
	}
	return nil
}

// NewSessionArgs represents the arguments for creating a classifier session.
type NewSessionArgs struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// LibraryPath is the onnxruntime shared library; empty uses the platform default.
	LibraryPath string
	// InputName is the model input; empty discovers it from the model.
	InputName string
	// OutputName is the model output; empty discovers it from the model.
	OutputName string
	// Side is the square input edge length.
	Side int
	// Classes is the score vector length; zero takes it from the model output shape.
	Classes int
	// Providers selects the execution provider and session tuning.
	Providers providers.Config
}

// NewSession creates a new ONNX Runtime session with preallocated input and output tensors.
//
// Order of operations:
//  1. Model file check.
//  2. Environment setup: loads the native library once per process.
//  3. Input/output discovery when names or the class count are not configured.
//  4. Tensor allocation: [1, 3, Side, Side] in, [1, Classes] out.
//  5. Session options and execution provider.
//  6. Session creation binding the tensors.
//
// Every failure is reported as ErrModelUnavailable.
//
// Arguments:
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session and its tensors; the caller must Close it.
//   - error: An error if the session creation fails.
func NewSession(args NewSessionArgs) (*Session, error) {
	if args.Side < 1 {
		return nil, errors.Wrapf(ErrModelUnavailable, "invalid input side %d", args.Side)
	}
	if _, err := os.Stat(args.ModelPath); err != nil {
		return nil, errors.Wrapf(ErrModelUnavailable, "model not found at %q: %v", args.ModelPath, err)
	}
	if err := initializeEnvironment(args.LibraryPath); err != nil {
		return nil, err
	}

	if args.InputName == "" || args.OutputName == "" || args.Classes == 0 {
		if err := discoverIO(&args); err != nil {
			return nil, err
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(args.Side), int64(args.Side)))
	if err != nil {
		return nil, errors.Wrapf(ErrModelUnavailable, "error creating input tensor: %v", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(args.Classes)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrapf(ErrModelUnavailable, "error creating output tensor: %v", err)
	}

	options, err := providers.NewSessionOptions(args.Providers)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(ErrModelUnavailable, err.Error())
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		[]string{args.InputName},
		[]string{args.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(ErrModelUnavailable, "error creating ORT session: %v", err)
	}

	return &Session{Session: session, Input: input, Output: output}, nil
}

// discoverIO fills in missing input/output names and the class count from the model metadata.
func discoverIO(args *NewSessionArgs) error {
	inputs, outputs, err := ort.GetInputOutputInfo(args.ModelPath)
	if err != nil {
		return errors.Wrapf(ErrModelUnavailable, "io info: %v", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return errors.Wrapf(ErrModelUnavailable, "unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}

	in, out := inputs[0], outputs[0]
	if len(in.Dimensions) != 4 {
		return errors.Wrapf(ErrModelUnavailable, "expected 4D input, got %dD", len(in.Dimensions))
	}
	if args.InputName == "" {
		args.InputName = in.Name
	}
	if args.OutputName == "" {
		args.OutputName = out.Name
	}
	if args.Classes == 0 {
		if len(out.Dimensions) == 0 || out.Dimensions[len(out.Dimensions)-1] <= 0 {
			return errors.Wrapf(ErrModelUnavailable, "cannot infer class count from output shape %v", out.Dimensions)
		}
		args.Classes = int(out.Dimensions[len(out.Dimensions)-1])
	}
	return nil
}
