package images

import (
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ResizeToSquare scales a grid to side x side using the fill policy: width and height are
// scaled independently, so the aspect ratio is not preserved and nothing is cropped or padded.
//
// Resampling uses a Lanczos3 kernel. The channel count of the input is preserved. A grid that
// is already side x side is returned as a copy.
//
// Arguments:
//   - g: The source grid (1, 3 or 4 channels).
//   - side: The target edge length in pixels.
//
// Returns:
//   - PixelGrid: The resized grid.
//   - error: ErrInvalidImageDimensions for a degenerate grid or a non-positive side.
func ResizeToSquare(g PixelGrid, side int) (PixelGrid, error) {
	if err := g.Validate(); err != nil {
		return PixelGrid{}, err
	}
	if side <= 0 {
		return PixelGrid{}, errors.Wrapf(ErrInvalidImageDimensions, "target side %d", side)
	}
	if g.Width == side && g.Height == side {
		return g.Clone(), nil
	}

	resized := resize.Resize(uint(side), uint(side), g.toImage(), resize.Lanczos3)

	out := fromImage(resized, g.Channels)
	if out.Width != side || out.Height != side {
		return PixelGrid{}, errors.Wrapf(ErrInvalidImageDimensions,
			"resampler produced %dx%d, want %dx%d", out.Width, out.Height, side, side)
	}
	return out, nil
}
