// Package quality - Blur detection gate that runs ahead of classification.
package quality

import (
	"math"

	"github.com/nvr-ai/go-plantdx/images"
	"github.com/pkg/errors"
)

const (
	// DefaultSide is the edge length the gray image is resized to before measuring.
	DefaultSide = 256
	// DefaultThreshold is the Laplacian variance below which an image is considered blurry.
	DefaultThreshold = 100.0
)

// ErrNotGrayscale is returned when the gate is given a grid with more than one channel.
var ErrNotGrayscale = errors.New("quality gate expects a single channel grid")

// Verdict is the outcome of a quality check.
type Verdict struct {
	// IsBlurry is true when the sharpness score is below the threshold.
	IsBlurry bool `json:"isBlurry"`
	// SharpnessScore is the Laplacian variance rounded to two decimals.
	SharpnessScore float64 `json:"sharpnessScore"`
	// Threshold is the cut-off the score was compared against.
	Threshold float64 `json:"threshold"`
}

// Gate measures focus by the variance of the Laplacian response of a resized gray image.
type Gate struct {
	// Side is the square edge length the image is resized to. Must be at least 3.
	Side int `yaml:"side"`
	// Threshold is the minimum variance of a sharp image.
	Threshold float64 `yaml:"threshold"`
}

// DefaultGate returns a gate with the standard 256 pixel side and a threshold of 100.
func DefaultGate() Gate {
	return Gate{Side: DefaultSide, Threshold: DefaultThreshold}
}

// Validate checks the gate parameters.
func (g Gate) Validate() error {
	if g.Side < 3 {
		return errors.Errorf("quality side must be at least 3, got %d", g.Side)
	}
	if g.Threshold < 0 || math.IsNaN(g.Threshold) {
		return errors.Errorf("quality threshold must be non-negative, got %v", g.Threshold)
	}
	return nil
}

// Evaluate judges whether a gray image is too blurry to classify.
//
// The grid is fill-resized to Side x Side, the 4-neighbour Laplacian is applied to every
// interior pixel (border pixels are skipped, no padding), and the population variance of the
// (Side-2)^2 responses is compared with Threshold. The comparison uses the unrounded variance.
//
// Arguments:
//   - gray: A single channel grid.
//
// Returns:
//   - Verdict: The blur verdict.
//   - error: images.ErrInvalidImageDimensions or ErrNotGrayscale.
func (g Gate) Evaluate(gray images.PixelGrid) (Verdict, error) {
	if err := g.Validate(); err != nil {
		return Verdict{}, err
	}
	if gray.Width <= 0 || gray.Height <= 0 {
		return Verdict{}, errors.Wrapf(images.ErrInvalidImageDimensions, "%dx%d", gray.Width, gray.Height)
	}
	if gray.Channels != 1 {
		return Verdict{}, errors.Wrapf(ErrNotGrayscale, "got %d channels", gray.Channels)
	}

	resized, err := images.ResizeToSquare(gray, g.Side)
	if err != nil {
		return Verdict{}, err
	}

	variance, err := laplacianVariance(resized)
	if err != nil {
		return Verdict{}, err
	}

	return Verdict{
		IsBlurry:       variance < g.Threshold,
		SharpnessScore: math.Round(variance*100) / 100,
		Threshold:      g.Threshold,
	}, nil
}

// checkKernelInput rejects grids the 3x3 kernel cannot be applied to.
func checkKernelInput(g images.PixelGrid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.Channels != 1 {
		return errors.Wrapf(ErrNotGrayscale, "got %d channels", g.Channels)
	}
	if g.Width < 3 || g.Height < 3 {
		return errors.Wrapf(images.ErrInvalidImageDimensions, "laplacian needs at least 3x3, got %dx%d", g.Width, g.Height)
	}
	return nil
}
