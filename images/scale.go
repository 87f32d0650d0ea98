package images

import (
	"image"

	"github.com/ShoshinNikita/camoview/camoview"
	"golang.org/x/image/draw"
)

// Scale returns a copy of the buffer that fits into maxWidth x maxHeight. Aspect ratio is
// preserved, small images are not enlarged. The passed buffer is never modified.
func Scale(buf camoview.PixelBuffer, maxWidth, maxHeight int) camoview.PixelBuffer {
	src := buf.NRGBA()

	width, height, shouldResize := thumbnail(src.Bounds(), maxWidth, maxHeight)
	if !shouldResize {
		width, height = buf.Width, buf.Height
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if shouldResize {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	} else {
		copy(dst.Pix, src.Pix)
	}

	return camoview.PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    dst.Pix,
	}
}
