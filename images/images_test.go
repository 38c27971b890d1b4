package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, _, err := Decode(nil)
		assert.True(t, errors.Is(err, ErrEmptyImage))
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := Decode([]byte("definitely not an image"))
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	})

	t.Run("png", func(t *testing.T) {
		data := encodePNG(t, solidRGBA(40, 20, color.RGBA{R: 10, G: 200, B: 30, A: 255}))
		img, format, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, format)
		assert.Equal(t, 40, img.Bounds().Dx())
		assert.Equal(t, 20, img.Bounds().Dy())
	})

	t.Run("webp", func(t *testing.T) {
		var buf bytes.Buffer
		src := solidRGBA(16, 8, color.RGBA{R: 0, G: 128, B: 0, A: 255})
		require.NoError(t, webp.Encode(&buf, src, &webp.Options{Lossless: true}))

		img, format, err := Decode(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, FormatWebP, format)
		assert.Equal(t, 16, img.Bounds().Dx())
		assert.Equal(t, 8, img.Bounds().Dy())
	})

	t.Run("describe", func(t *testing.T) {
		data := encodePNG(t, solidRGBA(7, 3, color.RGBA{A: 255}))
		meta, img, err := DecodeImage(data)
		require.NoError(t, err)
		require.NotNil(t, img)
		assert.Equal(t, FormatPNG, meta.Format)
		assert.Equal(t, 7, meta.Width)
		assert.Equal(t, 3, meta.Height)
	})
}

func TestNewColorGrid(t *testing.T) {
	t.Run("opaque source has three channels", func(t *testing.T) {
		g, err := NewColorGrid(solidRGBA(4, 2, color.RGBA{R: 1, G: 2, B: 3, A: 255}))
		require.NoError(t, err)
		require.NoError(t, g.Validate())
		assert.Equal(t, 3, g.Channels)
		assert.Equal(t, []uint8{1, 2, 3}, g.Pix[:3])
	})

	t.Run("transparent source keeps alpha", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
		src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
		src.SetNRGBA(1, 1, color.NRGBA{R: 9, G: 8, B: 7, A: 128})

		g, err := NewColorGrid(src)
		require.NoError(t, err)
		assert.Equal(t, 4, g.Channels)
		assert.Equal(t, []uint8{200, 100, 50, 0}, g.Pix[:4])

		rgb := g.WithoutAlpha()
		assert.Equal(t, 3, rgb.Channels)
		assert.Equal(t, []uint8{200, 100, 50}, rgb.Pix[:3])
		assert.Equal(t, []uint8{9, 8, 7}, rgb.Pix[9:12])
	})

	t.Run("gray source expands to rgb", func(t *testing.T) {
		src := image.NewGray(image.Rect(0, 0, 3, 3))
		src.SetGray(1, 1, color.Gray{Y: 77})
		g, err := NewColorGrid(src)
		require.NoError(t, err)
		assert.Equal(t, 3, g.Channels)
		assert.Equal(t, []uint8{77, 77, 77}, g.Pix[g.Offset(1, 1, 0):g.Offset(1, 1, 0)+3])
	})

	t.Run("empty image", func(t *testing.T) {
		_, err := NewColorGrid(image.NewRGBA(image.Rect(0, 0, 0, 5)))
		assert.True(t, errors.Is(err, ErrInvalidImageDimensions))
	})
}

func TestGrayConversion(t *testing.T) {
	g, err := NewGrayGrid(solidRGBA(3, 3, color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Channels)
	// 0.2126 * 255 = 54.2
	assert.Equal(t, uint8(54), g.At(2, 2, 0))

	color3, err := NewColorGrid(solidRGBA(3, 3, color.RGBA{G: 255, A: 255}))
	require.NoError(t, err)
	gray, err := color3.Gray()
	require.NoError(t, err)
	// 0.7152 * 255 = 182.4
	assert.Equal(t, uint8(182), gray.At(0, 0, 0))
}

func TestValidate(t *testing.T) {
	assert.True(t, errors.Is(PixelGrid{Width: 0, Height: 3, Channels: 1}.Validate(), ErrInvalidImageDimensions))
	assert.True(t, errors.Is(PixelGrid{Width: 2, Height: 2, Channels: 3, Pix: make([]uint8, 5)}.Validate(), ErrInvalidImageDimensions))
	assert.NoError(t, NewPixelGrid(2, 2, 3).Validate())
}

func TestResizeToSquare(t *testing.T) {
	t.Run("fill policy ignores aspect ratio", func(t *testing.T) {
		for _, dims := range [][2]int{{300, 100}, {100, 300}, {17, 17}, {3, 2}} {
			g := Uniform(dims[0], dims[1], 3, color.NRGBA{R: 120, G: 60, B: 30, A: 255})
			out, err := ResizeToSquare(g, 64)
			require.NoError(t, err)
			assert.Equal(t, 64, out.Width)
			assert.Equal(t, 64, out.Height)
			assert.Equal(t, 3, out.Channels)
			assert.Len(t, out.Pix, 64*64*3)
		}
	})

	t.Run("uniform color survives resampling", func(t *testing.T) {
		g := Uniform(90, 30, 3, color.NRGBA{R: 120, G: 60, B: 30, A: 255})
		out, err := ResizeToSquare(g, 32)
		require.NoError(t, err)
		assert.InDelta(t, 120, int(out.At(16, 16, 0)), 1)
		assert.InDelta(t, 60, int(out.At(16, 16, 1)), 1)
		assert.InDelta(t, 30, int(out.At(16, 16, 2)), 1)
	})

	t.Run("gray grids stay single channel", func(t *testing.T) {
		g := Uniform(50, 20, 1, color.NRGBA{R: 90, G: 90, B: 90, A: 255})
		out, err := ResizeToSquare(g, 16)
		require.NoError(t, err)
		assert.Equal(t, 1, out.Channels)
		assert.InDelta(t, 90, int(out.At(8, 8, 0)), 1)
	})

	t.Run("same size is a copy", func(t *testing.T) {
		g := Uniform(8, 8, 3, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
		out, err := ResizeToSquare(g, 8)
		require.NoError(t, err)
		assert.Equal(t, g.Pix, out.Pix)
		out.Pix[0] = 99
		assert.Equal(t, uint8(1), g.Pix[0])
	})

	t.Run("degenerate input", func(t *testing.T) {
		_, err := ResizeToSquare(PixelGrid{Channels: 3}, 8)
		assert.True(t, errors.Is(err, ErrInvalidImageDimensions))

		_, err = ResizeToSquare(NewPixelGrid(4, 4, 3), 0)
		assert.True(t, errors.Is(err, ErrInvalidImageDimensions))
	})
}

func TestParallel(t *testing.T) {
	for _, n := range []int{0, 1, 3, 1000} {
		var total int64
		seen := make([]int32, n)
		Parallel(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
				atomic.AddInt64(&total, 1)
			}
		})
		assert.Equal(t, int64(n), total)
		for i := range seen {
			assert.Equal(t, int32(1), seen[i])
		}
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-3, 0, 255))
	assert.Equal(t, 255.0, Clamp(300, 0, 255))
	assert.Equal(t, 12.5, Clamp(12.5, 0, 255))
}
