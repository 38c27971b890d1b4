package images

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
)

// Decode turns opaque image bytes into an image.Image oriented the way it would be viewed.
//
// The EXIF orientation tag (JPEG only) is applied before returning, so callers never see a
// sideways photograph. The format is sniffed from the data, not from a file name.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - image.Image: The decoded, orientation-corrected image.
//   - ImageFormat: The detected container format.
//   - error: ErrEmptyImage, ErrUnsupportedFormat or ErrInvalidImageDimensions.
func Decode(data []byte) (image.Image, ImageFormat, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(ErrUnsupportedFormat, err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", errors.Wrapf(ErrInvalidImageDimensions, "%dx%d", cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", errors.Wrap(ErrUnsupportedFormat, err.Error())
	}

	return img, ImageFormat(format), nil
}

// DecodeImage decodes data and records the viewed dimensions alongside the raw bytes.
func DecodeImage(data []byte) (*Image, image.Image, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	b := img.Bounds()
	return &Image{
		Format: format,
		Data:   data,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, img, nil
}
