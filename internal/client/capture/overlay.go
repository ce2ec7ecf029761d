package capture

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	overlayLeft   = 30
	overlayBottom = 50
)

var (
	overlayFill    = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	overlayOutline = color.RGBA{A: 0xff}

	outlineOffsets = []image.Point{
		{-1, -1}, {0, -1}, {1, -1},
		{-1, 0}, {1, 0},
		{-1, 1}, {0, 1}, {1, 1},
	}
)

// textStamp draws outlined monospaced text, scaled up, with its baseline
// overlayBottom pixels above the bottom edge.
type textStamp struct {
	face  font.Face
	scale int
}

func newTextStamp(surfaceHeight int) textStamp {
	scale := surfaceHeight / 320
	if scale < 1 {
		scale = 1
	}
	return textStamp{face: basicfont.Face7x13, scale: scale}
}

func (t textStamp) draw(dst *image.RGBA, text string) {
	if text == "" {
		return
	}
	m := t.face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()
	width := font.MeasureString(t.face, text).Ceil()

	// 1px margin on each side leaves room for the outline
	mask := image.NewRGBA(image.Rect(0, 0, width+2, ascent+descent+2))
	d := &font.Drawer{Dst: mask, Face: t.face}
	base := fixed.P(1, 1+ascent)

	d.Src = image.NewUniform(overlayOutline)
	for _, off := range outlineOffsets {
		d.Dot = base.Add(fixed.P(off.X, off.Y))
		d.DrawString(text)
	}
	d.Src = image.NewUniform(overlayFill)
	d.Dot = base
	d.DrawString(text)

	b := dst.Bounds()
	top := b.Max.Y - overlayBottom - (1+ascent)*t.scale
	r := image.Rect(
		b.Min.X+overlayLeft, top,
		b.Min.X+overlayLeft+mask.Bounds().Dx()*t.scale, top+mask.Bounds().Dy()*t.scale,
	)
	xdraw.NearestNeighbor.Scale(dst, r, mask, mask.Bounds(), xdraw.Over, nil)
}
