// Package inference - Classifier backends that turn a preprocessed tensor into class scores.
package inference

import (
	"context"

	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/pkg/errors"
)

var (
	// ErrModelUnavailable is returned when the classifier cannot be loaded or initialized.
	ErrModelUnavailable = errors.New("classifier model unavailable")
	// ErrInferenceFailed is returned when a loaded classifier fails to produce scores.
	ErrInferenceFailed = errors.New("inference failed")
)

// Classifier is a pure function from a fixed-shape input tensor to one score per class.
//
// Implementations must be safe for concurrent use. The returned slice belongs to the caller.
type Classifier interface {
	Run(ctx context.Context, input *preprocess.Tensor) ([]float32, error)
}

// ClassifierFunc adapts an ordinary function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, input *preprocess.Tensor) ([]float32, error)

// Run calls f(ctx, input).
func (f ClassifierFunc) Run(ctx context.Context, input *preprocess.Tensor) ([]float32, error) {
	return f(ctx, input)
}

// checkInput validates the tensor against the shape a backend was built for.
func checkInput(input *preprocess.Tensor, side int) error {
	if input == nil {
		return errors.Wrap(ErrInferenceFailed, "nil input tensor")
	}
	if input.Side != side || len(input.Data) != preprocess.Channels*side*side {
		return errors.Wrapf(ErrInferenceFailed, "input is %d values at side %d, model expects side %d",
			len(input.Data), input.Side, side)
	}
	return nil
}
