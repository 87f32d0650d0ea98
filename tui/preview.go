package tui

import (
	"fmt"
	"strings"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/images"
	"github.com/charmbracelet/lipgloss"
)

// Preview is a rendered image. Every terminal cell shows 2 pixels: the top one as
// the foreground of "▀" and the bottom one as the background.
type Preview struct {
	Key camoview.ResourceKey
	// Width and Height are in terminal cells.
	Width  int
	Height int

	rendered string
}

func (p Preview) String() string {
	return p.rendered
}

// NewPreviewRenderer returns a function that renders images not wider than maxWidth cells.
func NewPreviewRenderer(maxWidth int) func(camoview.ResourceKey, camoview.PixelBuffer) Preview {
	return func(key camoview.ResourceKey, buf camoview.PixelBuffer) Preview {
		return renderPreview(key, buf, maxWidth)
	}
}

func renderPreview(key camoview.ResourceKey, buf camoview.PixelBuffer, maxWidth int) Preview {
	buf = images.Scale(buf, maxWidth, maxWidth)
	if buf.Width == 0 || buf.Height == 0 {
		return Preview{Key: key}
	}

	rows := (buf.Height + 1) / 2

	var b strings.Builder
	for row := range rows {
		if row > 0 {
			b.WriteByte('\n')
		}
		for x := range buf.Width {
			top := pixelColor(buf, x, 2*row)
			bottom := lipgloss.Color("#000000")
			if 2*row+1 < buf.Height {
				bottom = pixelColor(buf, x, 2*row+1)
			}
			b.WriteString(lipgloss.NewStyle().Foreground(top).Background(bottom).Render("▀"))
		}
	}

	return Preview{
		Key:      key,
		Width:    buf.Width,
		Height:   rows,
		rendered: b.String(),
	}
}

// pixelColor returns the color of the pixel composited over black.
func pixelColor(buf camoview.PixelBuffer, x, y int) lipgloss.Color {
	i := y*4*buf.Width + x*4
	r, g, b, a := uint32(buf.Pix[i]), uint32(buf.Pix[i+1]), uint32(buf.Pix[i+2]), uint32(buf.Pix[i+3])

	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r*a/255, g*a/255, b*a/255))
}
