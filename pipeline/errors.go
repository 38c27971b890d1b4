package pipeline

import (
	"context"

	"github.com/nvr-ai/go-plantdx/images"
	"github.com/nvr-ai/go-plantdx/inference"
	"github.com/nvr-ai/go-plantdx/models"
	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/pkg/errors"
)

// Kind is the category of a pipeline failure.
type Kind int

const (
	// KindUnknown is any error outside the taxonomy.
	KindUnknown Kind = iota
	// KindInput is a caller-correctable problem with the request. Never retried.
	KindInput
	// KindResource means the classifier could not be loaded; the deployment is broken.
	KindResource
	// KindRuntime is an internal fault while producing or decoding scores.
	KindRuntime
	// KindCanceled means the caller's context ended first.
	KindCanceled
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindResource:
		return "resource"
	case KindRuntime:
		return "runtime"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

var (
	inputErrors = []error{
		images.ErrEmptyImage,
		images.ErrUnsupportedFormat,
		images.ErrInvalidImageDimensions,
		preprocess.ErrChannelCountMismatch,
		models.ErrUnknownSpecies,
		models.ErrEmptyClassSet,
	}
	resourceErrors = []error{
		inference.ErrModelUnavailable,
	}
	runtimeErrors = []error{
		inference.ErrInferenceFailed,
		models.ErrIndexOutOfRange,
		models.ErrNoFiniteScore,
	}
)

// Classify maps an error returned by the Service to its category.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	for _, kind := range []struct {
		kind Kind
		errs []error
	}{
		{KindResource, resourceErrors},
		{KindRuntime, runtimeErrors},
		{KindInput, inputErrors},
	} {
		for _, target := range kind.errs {
			if errors.Is(err, target) {
				return kind.kind
			}
		}
	}
	return KindUnknown
}
