package preprocess

import (
	"image/color"
	"testing"

	"github.com/nvr-ai/go-plantdx/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPreprocessor(t *testing.T, side int) *Preprocessor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Side = side
	p, err := NewPreprocessor(cfg)
	require.NoError(t, err)
	return p
}

// norm mirrors the per-sample normalization with runtime float64 arithmetic.
func norm(s, mean, std float64) float32 {
	return float32((s/255 - mean) / std)
}

func TestPreprocessLengthForAnyAspectRatio(t *testing.T) {
	p := newTestPreprocessor(t, 32)
	for _, dims := range [][2]int{{32, 32}, {640, 480}, {50, 300}, {5, 7}} {
		grid := images.Uniform(dims[0], dims[1], 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		out, err := p.Preprocess(grid)
		require.NoError(t, err)
		assert.Len(t, out.Data, 3*32*32)
		assert.Equal(t, []int64{1, 3, 32, 32}, out.Shape())
	}
}

func TestPreprocessExactValues(t *testing.T) {
	p := newTestPreprocessor(t, 8)
	grid := images.Uniform(8, 8, 3, color.NRGBA{R: 255, G: 0, B: 128, A: 255})

	out, err := p.Preprocess(grid)
	require.NoError(t, err)

	plane := 8 * 8
	want := [3]float32{
		norm(255, 0.485, 0.229),
		norm(0, 0.456, 0.224),
		norm(128, 0.406, 0.225),
	}
	for c := 0; c < 3; c++ {
		for i := 0; i < plane; i++ {
			require.Equal(t, want[c], out.Data[c*plane+i], "channel %d index %d", c, i)
		}
	}
}

func TestPreprocessChannelMajorLayout(t *testing.T) {
	p := newTestPreprocessor(t, 2)
	grid := images.NewPixelGrid(2, 2, 3)
	// Pixel (1, 0) red, everything else black.
	grid.Pix[grid.Offset(1, 0, 0)] = 255

	out, err := p.Preprocess(grid)
	require.NoError(t, err)

	black := norm(0, 0.485, 0.229)
	red := norm(255, 0.485, 0.229)
	assert.Equal(t, []float32{black, red, black, black}, out.Data[0:4])
}

func TestPreprocessIsMonotonic(t *testing.T) {
	p := newTestPreprocessor(t, 16)
	grid := images.NewPixelGrid(16, 16, 3)
	for i := 0; i < 16*16; i++ {
		for c := 0; c < 3; c++ {
			grid.Pix[i*3+c] = uint8(i)
		}
	}

	out, err := p.Preprocess(grid)
	require.NoError(t, err)
	plane := 16 * 16
	for c := 0; c < 3; c++ {
		for i := 1; i < plane; i++ {
			assert.Less(t, out.Data[c*plane+i-1], out.Data[c*plane+i])
		}
	}
}

func TestPreprocessDropsAlpha(t *testing.T) {
	p := newTestPreprocessor(t, 4)
	opaque := images.Uniform(4, 4, 3, color.NRGBA{R: 40, G: 80, B: 120, A: 255})
	translucent := images.Uniform(4, 4, 4, color.NRGBA{R: 40, G: 80, B: 120, A: 10})

	a, err := p.Preprocess(opaque)
	require.NoError(t, err)
	b, err := p.Preprocess(translucent)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestPreprocessErrors(t *testing.T) {
	p := newTestPreprocessor(t, 8)

	_, err := p.Preprocess(images.NewPixelGrid(8, 8, 1))
	assert.True(t, errors.Is(err, ErrChannelCountMismatch))

	_, err = p.Preprocess(images.PixelGrid{Width: 0, Height: 8, Channels: 3})
	assert.True(t, errors.Is(err, images.ErrInvalidImageDimensions))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Side = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Std[1] = 0
	assert.Error(t, cfg.Validate())

	_, err := NewPreprocessor(cfg)
	assert.Error(t, err)
}

func TestTensorDense(t *testing.T) {
	p := newTestPreprocessor(t, 4)
	out, err := p.Preprocess(images.Uniform(4, 4, 3, color.NRGBA{A: 255}))
	require.NoError(t, err)

	dense := out.Dense()
	assert.Equal(t, []int{1, 3, 4, 4}, []int(dense.Shape()))
	backing, ok := dense.Data().([]float32)
	require.True(t, ok)
	assert.Equal(t, &out.Data[0], &backing[0])
}
