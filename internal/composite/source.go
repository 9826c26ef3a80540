// Package composite renders filter chains onto images for preview and export.
package composite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Source is a decoded full-resolution image together with its original bytes.
type Source struct {
	Image  image.Image
	Data   []byte
	Format string
	Width  int
	Height int
}

// Decode reads and decodes an image. Any read or decode failure is returned
// as an *ImageDecodeError.
func Decode(r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ImageDecodeError{Err: fmt.Errorf("failed to read image: %w", err)}
	}
	return DecodeBytes(data)
}

// DefaultMaxPixels bounds the decoded size of an image (50 megapixels).
const DefaultMaxPixels = 50_000_000

// ErrTooManyPixels reports an image whose declared dimensions exceed the limit.
var ErrTooManyPixels = errors.New("image dimensions exceed limit")

// DecodeBytes decodes an in-memory image of at most DefaultMaxPixels.
func DecodeBytes(data []byte) (*Source, error) {
	return DecodeBytesLimit(data, DefaultMaxPixels)
}

// DecodeBytesLimit decodes an in-memory image. The header is checked first so
// an image declaring more than maxPixels is rejected before any pixel buffer
// is allocated. maxPixels <= 0 means DefaultMaxPixels.
func DecodeBytesLimit(data []byte, maxPixels int) (*Source, error) {
	if len(data) == 0 {
		return nil, &ImageDecodeError{Err: fmt.Errorf("empty image data")}
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageDecodeError{Format: format, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &ImageDecodeError{Format: format, Err: fmt.Errorf("image has no pixels")}
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, &ImageDecodeError{
			Format: format,
			Err:    fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels),
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageDecodeError{Format: format, Err: err}
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, &ImageDecodeError{Format: format, Err: fmt.Errorf("image has no pixels")}
	}

	return &Source{
		Image:  img,
		Data:   data,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// FromImage wraps an already decoded image, e.g. a camera frame.
func FromImage(img image.Image) *Source {
	b := img.Bounds()
	return &Source{
		Image:  img,
		Format: "raw",
		Width:  b.Dx(),
		Height: b.Dy(),
	}
}
