// Package preprocess - Converts pixel grids into normalized CHW float32 classifier input.
package preprocess

import (
	"math"

	"github.com/nvr-ai/go-plantdx/images"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Channels is the number of color channels the classifier consumes.
const Channels = 3

// ErrChannelCountMismatch is returned when a grid still does not have three channels after
// alpha removal.
var ErrChannelCountMismatch = errors.New("preprocessed image must have exactly 3 channels")

// Config defines the preprocessing constants agreed with the trained model.
type Config struct {
	// Side is the square edge length of the model input.
	Side int `yaml:"side"`
	// Mean is the per-channel mean subtracted after scaling to [0, 1].
	Mean [Channels]float64 `yaml:"mean"`
	// Std is the per-channel standard deviation divided out after mean subtraction.
	Std [Channels]float64 `yaml:"std"`
}

// DefaultConfig returns the ImageNet normalization at 256x256.
func DefaultConfig() Config {
	return Config{
		Side: 256,
		Mean: [Channels]float64{0.485, 0.456, 0.406},
		Std:  [Channels]float64{0.229, 0.224, 0.225},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Side < 1 {
		return errors.Errorf("preprocess side must be positive, got %d", c.Side)
	}
	for i, s := range c.Std {
		if !(s > 0) || math.IsInf(s, 0) {
			return errors.Errorf("preprocess std[%d] must be positive and finite, got %v", i, s)
		}
	}
	for i, m := range c.Mean {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return errors.Errorf("preprocess mean[%d] must be finite, got %v", i, m)
		}
	}
	return nil
}

// Tensor is a single classifier input in CHW order.
type Tensor struct {
	// Side is the spatial edge length.
	Side int
	// Data holds Channels*Side*Side values; index = c*Side*Side + y*Side + x.
	Data []float32
}

// Shape returns the batched NCHW shape [1, 3, Side, Side].
func (t *Tensor) Shape() []int64 {
	return []int64{1, Channels, int64(t.Side), int64(t.Side)}
}

// Dense exposes the data as a [1, 3, Side, Side] dense tensor backed by the same slice.
func (t *Tensor) Dense() *tensor.Dense {
	return tensor.New(
		tensor.WithShape(1, Channels, t.Side, t.Side),
		tensor.WithBacking(t.Data),
	)
}

// Preprocessor turns color grids into classifier input tensors. It is stateless and safe for
// concurrent use.
type Preprocessor struct {
	config Config
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
//   - config: The preprocessing constants.
//
// Returns:
//   - *Preprocessor: The configured preprocessor.
//   - error: If the configuration is invalid.
func NewPreprocessor(config Config) (*Preprocessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Preprocessor{config: config}, nil
}

// Config returns the preprocessing constants.
func (p *Preprocessor) Config() Config {
	return p.config
}

// Preprocess resizes a color grid to Side x Side (fill, aspect ratio not preserved), drops
// alpha, scales samples to [0, 1], standardizes each channel and lays the result out as CHW.
//
// Normalization is computed in float64 and stored as float32.
//
// Arguments:
//   - grid: A 3 or 4 channel grid.
//
// Returns:
//   - *Tensor: Exactly 3*Side*Side values.
//   - error: images.ErrInvalidImageDimensions or ErrChannelCountMismatch.
func (p *Preprocessor) Preprocess(grid images.PixelGrid) (*Tensor, error) {
	side := p.config.Side

	resized, err := images.ResizeToSquare(grid, side)
	if err != nil {
		return nil, errors.Wrap(err, "resize")
	}

	rgb := resized.WithoutAlpha()
	if rgb.Channels != Channels {
		return nil, errors.Wrapf(ErrChannelCountMismatch, "got %d channels", rgb.Channels)
	}

	plane := side * side
	data := make([]float32, Channels*plane)

	images.Parallel(side, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < side; x++ {
				src := (y*side + x) * Channels
				dst := y*side + x
				for c := 0; c < Channels; c++ {
					s := float64(rgb.Pix[src+c])
					data[c*plane+dst] = float32((s/255 - p.config.Mean[c]) / p.config.Std[c])
				}
			}
		}
	})

	return &Tensor{Side: side, Data: data}, nil
}
