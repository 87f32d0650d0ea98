package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/ShoshinNikita/camoview/camoview"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// MaxPixels is the maximum number of pixels of an image that can be decoded.
const MaxPixels = 64 << 20

var (
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrImageTooLarge          = errors.New("image is too large")
)

var _ camoview.DecodeFunc = Decode

// Decode decodes PNG, JPEG, GIF (first frame) or WebP images into [camoview.PixelBuffer]
// with straight alpha. It is safe for concurrent use.
func Decode(data []byte) (camoview.PixelBuffer, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return camoview.PixelBuffer{}, ErrUnsupportedImageFormat
		}
		return camoview.PixelBuffer{}, fmt.Errorf("couldn't decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return camoview.PixelBuffer{}, fmt.Errorf("invalid %s image size: %dx%d", format, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return camoview.PixelBuffer{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return camoview.PixelBuffer{}, fmt.Errorf("couldn't decode %s image: %w", format, err)
	}
	return toPixelBuffer(img), nil
}

func toPixelBuffer(img image.Image) camoview.PixelBuffer {
	bounds := img.Bounds()

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	return camoview.PixelBuffer{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    dst.Pix,
	}
}
