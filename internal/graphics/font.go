package graphics

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextPadding is the margin in pixels around rasterized text blocks.
const TextPadding = 4

// HUDFace is the fixed-size bitmap face used for overlays.
var HUDFace font.Face = basicfont.Face7x13

// MeasureLines returns the pixel size of lines rendered with face, padding
// included.
func MeasureLines(face font.Face, lines []string) (width, height int) {
	m := face.Metrics()
	lineH := (m.Ascent + m.Descent).Ceil()
	for _, l := range lines {
		w := font.MeasureString(face, l).Ceil()
		if w > width {
			width = w
		}
	}
	return width + 2*TextPadding, lineH*len(lines) + 2*TextPadding
}

// RasterizeLines draws lines top to bottom into a single-channel image sized
// to fit. It returns nil when there is nothing to draw.
func RasterizeLines(face font.Face, lines []string) *image.Alpha {
	if len(lines) == 0 {
		return nil
	}
	w, h := MeasureLines(face, lines)
	img := image.NewAlpha(image.Rect(0, 0, w, h))

	m := face.Metrics()
	lineH := (m.Ascent + m.Descent).Ceil()
	d := font.Drawer{Dst: img, Src: image.Opaque, Face: face}
	for i, l := range lines {
		d.Dot = fixed.P(TextPadding, TextPadding+i*lineH+m.Ascent.Ceil())
		d.DrawString(l)
	}
	return img
}
