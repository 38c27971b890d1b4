package inference

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/pkg/errors"
)

// Factory creates a classifier. It is called by Lazy on first use.
type Factory func(ctx context.Context) (Classifier, error)

// Lazy defers classifier creation until the first Run.
//
// Creation happens at most once even when many goroutines call Run concurrently. A failed
// creation is reported as ErrModelUnavailable and attempted again on the next call. Once the
// classifier exists, Run reaches it without taking any lock.
type Lazy struct {
	factory Factory
	mu      sync.Mutex
	ready   atomic.Pointer[loaded]
}

type loaded struct {
	classifier Classifier
}

// NewLazy wraps a factory.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Run initializes the classifier if needed and runs it.
func (l *Lazy) Run(ctx context.Context, input *preprocess.Tensor) ([]float32, error) {
	c, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, input)
}

// Get returns the classifier, creating it on first use.
func (l *Lazy) Get(ctx context.Context) (Classifier, error) {
	if p := l.ready.Load(); p != nil {
		return p.classifier, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if p := l.ready.Load(); p != nil {
		return p.classifier, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := l.factory(ctx)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			return nil, err
		}
		return nil, errors.Wrap(ErrModelUnavailable, err.Error())
	}
	if c == nil {
		return nil, errors.Wrap(ErrModelUnavailable, "factory returned no classifier")
	}

	l.ready.Store(&loaded{classifier: c})
	return c, nil
}

// Loaded reports whether the classifier has been created.
func (l *Lazy) Loaded() bool {
	return l.ready.Load() != nil
}

// Close releases the classifier if it was created and holds native resources.
//
// A Run that fetched the classifier before Close may still be executing; the backends take
// their own lock and report ErrModelUnavailable once closed. The next Run after Close creates
// a fresh classifier.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.ready.Swap(nil)
	if p == nil {
		return nil
	}
	if closer, ok := p.classifier.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
