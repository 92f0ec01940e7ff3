package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Composite blends imgs onto dst in order using source-over.
func Composite(dst draw.Image, imgs []Image) {
	for _, img := range imgs {
		if img.Bitmap == nil || img.Color.A == 0 {
			continue
		}
		r := img.Bounds().Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		mp := img.Bitmap.Bounds().Min.Add(r.Min.Sub(img.Bounds().Min))
		draw.DrawMask(dst, r, image.NewUniform(img.Color), image.Point{}, img.Bitmap, mp, draw.Over)
	}
}

// Frame renders imgs over a canvas of the given size filled with bg.
func Frame(width, height int, bg color.Color, imgs []Image) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	if bg != nil {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}
	Composite(canvas, imgs)
	return canvas
}
