package camoview

import (
	"image"
)

// PixelBuffer is a decoded image: RGBA8 samples with straight (non-premultiplied) alpha
// in row-major order, 4*Width bytes per row.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// NRGBA returns an [image.NRGBA] that shares memory with the buffer.
func (b PixelBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: 4 * b.Width,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// DecodeFunc converts encoded image bytes to a [PixelBuffer].
type DecodeFunc func(data []byte) (PixelBuffer, error)
