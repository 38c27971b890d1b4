package inference

import (
	"context"
	"sync"

	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/pkg/errors"
)

// ONNXClassifier runs an image classifier exported to ONNX.
//
// The underlying session binds a single pair of tensors, so calls to Run are serialized.
type ONNXClassifier struct {
	mu      sync.Mutex
	session *Session
	side    int
	classes int
}

// NewONNXClassifier loads the model and binds its tensors.
//
// Arguments:
//   - args: Model location, input geometry and execution provider.
//
// Returns:
//   - *ONNXClassifier: The loaded classifier.
//   - error: ErrModelUnavailable if the model or runtime cannot be loaded.
func NewONNXClassifier(args NewSessionArgs) (*ONNXClassifier, error) {
	session, err := NewSession(args)
	if err != nil {
		return nil, err
	}
	return &ONNXClassifier{
		session: session,
		side:    args.Side,
		classes: len(session.Output.GetData()),
	}, nil
}

// Classes returns the length of the score vector.
func (c *ONNXClassifier) Classes() int {
	return c.classes
}

// Run copies the tensor into the bound input, runs the session and returns a copy of the output.
func (c *ONNXClassifier) Run(ctx context.Context, input *preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkInput(input, c.side); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, errors.Wrap(ErrModelUnavailable, "classifier closed")
	}

	copy(c.session.Input.GetData(), input.Data)
	if err := c.session.Session.Run(); err != nil {
		return nil, errors.Wrap(ErrInferenceFailed, err.Error())
	}

	out := c.session.Output.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

// Close releases the session.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
