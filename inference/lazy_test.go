package inference

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type closingClassifier struct {
	scores []float32
	closed atomic.Bool
}

func (c *closingClassifier) Run(_ context.Context, _ *preprocess.Tensor) ([]float32, error) {
	out := make([]float32, len(c.scores))
	copy(out, c.scores)
	return out, nil
}

func (c *closingClassifier) Close() error {
	c.closed.Store(true)
	return nil
}

func TestLazyInitializesOnceUnderConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var calls atomic.Int32
	inner := &closingClassifier{scores: []float32{1, 2, 3}}
	lazy := NewLazy(func(context.Context) (Classifier, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return inner, nil
	})
	assert.False(t, lazy.Loaded())

	var wg sync.WaitGroup
	errs := make([]error, 32)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scores, err := lazy.Run(context.Background(), &preprocess.Tensor{})
			if err == nil && len(scores) != 3 {
				err = errors.New("unexpected score length")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, lazy.Loaded())

	require.NoError(t, lazy.Close())
	assert.True(t, inner.closed.Load())
	assert.False(t, lazy.Loaded())
}

func TestLazyRetriesAfterFailure(t *testing.T) {
	var calls atomic.Int32
	lazy := NewLazy(func(context.Context) (Classifier, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("library missing")
		}
		return &closingClassifier{scores: []float32{0.5}}, nil
	})

	_, err := lazy.Run(context.Background(), &preprocess.Tensor{})
	assert.True(t, errors.Is(err, ErrModelUnavailable))
	assert.False(t, lazy.Loaded())

	scores, err := lazy.Run(context.Background(), &preprocess.Tensor{})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, scores)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLazyKeepsModelUnavailableError(t *testing.T) {
	lazy := NewLazy(func(context.Context) (Classifier, error) {
		return nil, errors.Wrap(ErrModelUnavailable, "no such file")
	})
	_, err := lazy.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
	assert.Contains(t, err.Error(), "no such file")
}

func TestLazyRejectsNilClassifier(t *testing.T) {
	lazy := NewLazy(func(context.Context) (Classifier, error) { return nil, nil })
	_, err := lazy.Get(context.Background())
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

func TestLazyHonoursCancelledContext(t *testing.T) {
	var calls atomic.Int32
	lazy := NewLazy(func(context.Context) (Classifier, error) {
		calls.Add(1)
		return &closingClassifier{}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lazy.Get(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(0), calls.Load())
}

func TestLazyCloseBeforeLoad(t *testing.T) {
	lazy := NewLazy(func(context.Context) (Classifier, error) { return nil, errors.New("unused") })
	assert.NoError(t, lazy.Close())
}
