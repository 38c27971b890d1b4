// Package images - Decoding, pixel grids and resampling for the diagnosis pipeline.
package images

import "github.com/pkg/errors"

// ImageFormat is the container format reported by the decoder.
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatGIF is the GIF image format.
	FormatGIF ImageFormat = "gif"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF is the TIFF image format.
	FormatTIFF ImageFormat = "tiff"
)

var (
	// ErrEmptyImage is returned when no image bytes were supplied.
	ErrEmptyImage = errors.New("image data is empty")
	// ErrUnsupportedFormat is returned when the bytes cannot be decoded by any registered decoder.
	ErrUnsupportedFormat = errors.New("unsupported or corrupt image data")
	// ErrInvalidImageDimensions is returned for degenerate grids (zero width or height) and
	// for grids whose sample buffer does not match their declared shape.
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
)

// Image represents an encoded image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image as viewed (after orientation correction).
	Width int `json:"width" yaml:"width"`
	// The height of the image as viewed (after orientation correction).
	Height int `json:"height" yaml:"height"`
}
