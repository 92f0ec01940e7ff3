package render

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// drawGlyph draws r with its pen at (x, y) and stretches it horizontally
// by hx.
func drawGlyph(dst *image.Alpha, face font.Face, r rune, x, y, hx float64) {
	if hx == 1 {
		dot := fixed.Point26_6{X: toFixed(x), Y: toFixed(y)}
		dr, mask, maskp, _, ok := face.Glyph(dot, r)
		if !ok || dr.Empty() {
			return
		}
		draw.DrawMask(dst, dr, image.Opaque, image.Point{}, mask, maskp, draw.Over)
		return
	}

	dr, mask, maskp, _, ok := face.Glyph(fixed.Point26_6{}, r)
	if !ok || dr.Empty() {
		return
	}

	// the face reuses its mask buffer between calls
	src := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.Draw(src, src.Bounds(), mask, maskp, draw.Src)

	baseline := int(math.Round(y))
	target := image.Rect(
		int(math.Floor(x+float64(dr.Min.X)*hx)),
		baseline+dr.Min.Y,
		int(math.Ceil(x+float64(dr.Max.X)*hx)),
		baseline+dr.Max.Y,
	)
	if target.Dx() <= 0 {
		return
	}
	draw.ApproxBiLinear.Scale(dst, target, src, src.Bounds(), draw.Over, nil)
}

// fillRect sets full coverage over the float rectangle, rounded outward.
func fillRect(dst *image.Alpha, x0, y0, x1, y1 float64) {
	r := image.Rect(
		int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Ceil(x1)), int(math.Ceil(y1)),
	).Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := dst.Pix[dst.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			row[x] = 0xFF
		}
	}
}

// crop copies the non-empty part of src into a bitmap whose bounds start at
// the origin and reports where that part sat in src. ok is false when src is
// fully transparent.
func crop(src *image.Alpha) (*image.Alpha, image.Point, bool) {
	b := src.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			if row[x] == 0 {
				continue
			}
			px := b.Min.X + x
			if px < minX {
				minX = px
			}
			if px >= maxX {
				maxX = px + 1
			}
			if y < minY {
				minY = y
			}
			if y >= maxY {
				maxY = y + 1
			}
		}
	}
	if minX >= maxX || minY >= maxY {
		return nil, image.Point{}, false
	}

	r := image.Rect(minX, minY, maxX, maxY)
	out := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src.Pix[src.PixOffset(r.Min.X, r.Min.Y+y):])
	}
	return out, r.Min, true
}

// dilate grows coverage by a disc of the given radius with anti-aliased
// edges. The result is padded by the returned amount on every side.
func dilate(src *image.Alpha, radius float64) (*image.Alpha, int) {
	if radius <= 0 {
		return src, 0
	}

	pad := int(math.Ceil(radius))
	b := src.Bounds()
	dst := image.NewAlpha(image.Rect(0, 0, b.Dx()+2*pad, b.Dy()+2*pad))

	type tap struct {
		offset int
		weight float64
	}
	var taps []tap
	for dy := -pad; dy <= pad; dy++ {
		for dx := -pad; dx <= pad; dx++ {
			w := radius + 0.5 - math.Hypot(float64(dx), float64(dy))
			if w <= 0 {
				continue
			}
			if w > 1 {
				w = 1
			}
			taps = append(taps, tap{offset: dy*dst.Stride + dx, weight: w})
		}
	}

	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < b.Dx(); x++ {
			v := row[x]
			if v == 0 {
				continue
			}
			center := (y+pad)*dst.Stride + x + pad
			for _, t := range taps {
				nv := uint8(float64(v)*t.weight + 0.5)
				if i := center + t.offset; dst.Pix[i] < nv {
					dst.Pix[i] = nv
				}
			}
		}
	}
	return dst, pad
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
