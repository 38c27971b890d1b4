package images

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// BT.709 luma coefficients.
const (
	redWeight   = 0.2126
	greenWeight = 0.7152
	blueWeight  = 0.0722
)

// PixelGrid is a rectangular array of 8-bit samples, row-major and channel-interleaved.
//
// A grid is produced once per decoded image and treated as immutable; transformations
// return new grids. Channels is 1 (gray), 3 (RGB) or 4 (non-premultiplied RGBA).
type PixelGrid struct {
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
	// Channels per pixel.
	Channels int
	// Pix holds Width*Height*Channels samples.
	Pix []uint8
}

// NewPixelGrid allocates a zeroed grid.
func NewPixelGrid(width, height, channels int) PixelGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return PixelGrid{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Validate checks that the grid is non-degenerate and internally consistent.
func (g PixelGrid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return errors.Wrapf(ErrInvalidImageDimensions, "%dx%d", g.Width, g.Height)
	}
	if g.Channels < 1 || g.Channels > 4 {
		return errors.Wrapf(ErrInvalidImageDimensions, "unsupported channel count %d", g.Channels)
	}
	if want := g.Width * g.Height * g.Channels; len(g.Pix) != want {
		return errors.Wrapf(ErrInvalidImageDimensions, "sample buffer holds %d values, want %d", len(g.Pix), want)
	}
	return nil
}

// Offset returns the index of channel c of pixel (x, y) in Pix.
func (g PixelGrid) Offset(x, y, c int) int {
	return (y*g.Width+x)*g.Channels + c
}

// At returns channel c of pixel (x, y).
func (g PixelGrid) At(x, y, c int) uint8 {
	return g.Pix[g.Offset(x, y, c)]
}

// Clone returns a deep copy of the grid.
func (g PixelGrid) Clone() PixelGrid {
	pix := make([]uint8, len(g.Pix))
	copy(pix, g.Pix)
	g.Pix = pix
	return g
}

// WithoutAlpha drops the fourth channel of an RGBA grid. Grids without alpha are returned as is.
func (g PixelGrid) WithoutAlpha() PixelGrid {
	if g.Channels != 4 {
		return g
	}
	out := NewPixelGrid(g.Width, g.Height, 3)
	n := g.Width * g.Height
	for i := 0; i < n; i++ {
		copy(out.Pix[i*3:i*3+3], g.Pix[i*4:i*4+3])
	}
	return out
}

// NewColorGrid converts a decoded image into a 3 channel grid, or a 4 channel grid when the
// source carries transparency.
//
// Arguments:
//   - img: The decoded image.
//
// Returns:
//   - PixelGrid: RGB or non-premultiplied RGBA samples.
//   - error: ErrInvalidImageDimensions for an empty image.
func NewColorGrid(img image.Image) (PixelGrid, error) {
	if img == nil || img.Bounds().Empty() {
		return PixelGrid{}, errors.Wrap(ErrInvalidImageDimensions, "empty image")
	}

	channels := 3
	if !isOpaque(img) {
		channels = 4
	}
	return fromImage(img, channels), nil
}

// NewGrayGrid converts a decoded image into a single channel grid using BT.709 luma weights.
// Transparency is ignored.
func NewGrayGrid(img image.Image) (PixelGrid, error) {
	if img == nil || img.Bounds().Empty() {
		return PixelGrid{}, errors.Wrap(ErrInvalidImageDimensions, "empty image")
	}
	return fromImage(img, 1), nil
}

// Gray converts a color grid to a single channel grid. A gray grid is returned as a copy.
func (g PixelGrid) Gray() (PixelGrid, error) {
	if err := g.Validate(); err != nil {
		return PixelGrid{}, err
	}
	switch g.Channels {
	case 1:
		return g.Clone(), nil
	case 3, 4:
	default:
		return PixelGrid{}, errors.Wrapf(ErrInvalidImageDimensions, "cannot convert %d channels to gray", g.Channels)
	}

	out := NewPixelGrid(g.Width, g.Height, 1)
	Parallel(g.Height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < g.Width; x++ {
				i := g.Offset(x, y, 0)
				out.Pix[y*g.Width+x] = luma(g.Pix[i], g.Pix[i+1], g.Pix[i+2])
			}
		}
	})
	return out, nil
}

func luma(r, g, b uint8) uint8 {
	y := redWeight*float64(r) + greenWeight*float64(g) + blueWeight*float64(b)
	return uint8(Clamp(y+0.5, 0, 255))
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// fromImage samples img into a grid with the requested channel count.
func fromImage(img image.Image, channels int) PixelGrid {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := NewPixelGrid(w, h, channels)

	// Fast paths for the types the resampler hands back.
	switch src := img.(type) {
	case *image.Gray:
		if channels == 1 {
			for y := 0; y < h; y++ {
				row := src.Pix[(y)*src.Stride : (y)*src.Stride+w]
				copy(out.Pix[y*w:(y+1)*w], row)
			}
			return out
		}
	case *image.RGBA:
		if channels == 3 && src.Opaque() {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					si := y*src.Stride + x*4
					di := (y*w + x) * 3
					copy(out.Pix[di:di+3], src.Pix[si:si+3])
				}
			}
			return out
		}
	}

	nrgba := imaging.Clone(img)
	Parallel(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				si := y*nrgba.Stride + x*4
				p := nrgba.Pix[si : si+4 : si+4]
				switch channels {
				case 1:
					out.Pix[y*w+x] = luma(p[0], p[1], p[2])
				default:
					di := (y*w + x) * channels
					copy(out.Pix[di:di+channels], p[:channels])
				}
			}
		}
	})
	return out
}

// toImage wraps the grid in the stdlib image type matching its channel count.
func (g PixelGrid) toImage() image.Image {
	rect := image.Rect(0, 0, g.Width, g.Height)
	switch g.Channels {
	case 1:
		return &image.Gray{Pix: g.Pix, Stride: g.Width, Rect: rect}
	case 3:
		dst := image.NewRGBA(rect)
		n := g.Width * g.Height
		for i := 0; i < n; i++ {
			copy(dst.Pix[i*4:i*4+3], g.Pix[i*3:i*3+3])
			dst.Pix[i*4+3] = 0xff
		}
		return dst
	default:
		return &image.NRGBA{Pix: g.Pix, Stride: g.Width * 4, Rect: rect}
	}
}

// ToImage exposes the grid as an image.Image for encoding or inspection.
func (g PixelGrid) ToImage() image.Image {
	return g.toImage()
}

// Uniform builds a grid where every pixel has the same color. Handy for fixtures and padding.
func Uniform(width, height, channels int, c color.NRGBA) PixelGrid {
	g := NewPixelGrid(width, height, channels)
	px := [4]uint8{c.R, c.G, c.B, c.A}
	if channels == 1 {
		px[0] = luma(c.R, c.G, c.B)
	}
	for i := 0; i < width*height; i++ {
		copy(g.Pix[i*channels:(i+1)*channels], px[:channels])
	}
	return g
}
