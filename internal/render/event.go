package render

import (
	"image"
	"math"
	"time"

	"github.com/mgpai22/subrender/internal/subtitle"
)

type layoutKey struct {
	event  int
	width  int
	height int
}

// bitmap of an event positioned relative to the top left of its text block
type layer struct {
	typ    ImageType
	offset image.Point
	bitmap *image.Alpha
	color  subtitle.Color
}

// time-independent rendering of one event at one frame size
type eventLayout struct {
	width  float64
	height float64
	// 0 left or bottom, 1 center or middle, 2 right or top
	halign int
	valign int

	ov      subtitle.Overrides
	marginL float64
	marginR float64
	marginV float64

	// shadows, then outlines, then fills
	layers []layer
}

func (r *Renderer) layoutEvent(ev subtitle.Event, sc frameScale, frameWidth int) *eventLayout {
	style := r.track.Style(ev.Style)
	lookup := func(name string) (subtitle.RunStyle, bool) {
		if !r.track.HasStyle(name) {
			return subtitle.RunStyle{}, false
		}
		return subtitle.StyleRun(r.track.Style(name)), true
	}
	base := subtitle.StyleRun(style)
	parsed := subtitle.ParseText(ev.Text, base, lookup, r.track.Info.WrapStyle)

	el := &eventLayout{ov: parsed.Overrides}

	align := style.Alignment
	if parsed.Overrides.Alignment != 0 {
		align = parsed.Overrides.Alignment
	}
	if align < 1 || align > 9 {
		align = 2
	}
	el.halign = (align - 1) % 3
	el.valign = (align - 1) / 3

	el.marginL = float64(pickMargin(ev.MarginL, style.MarginL)) * sc.x
	el.marginR = float64(pickMargin(ev.MarginR, style.MarginR)) * sc.x
	el.marginV = float64(pickMargin(ev.MarginV, style.MarginV)) * sc.y

	if len(parsed.Runs) == 0 {
		return el
	}

	faces := make([]runFace, len(parsed.Runs))
	maxPx := 0.0
	for i, run := range parsed.Runs {
		faces[i] = r.resolveRun(run.Style, sc)
		maxPx = max(maxPx, faces[i].px)
	}

	paragraphs, starts := r.shapeParagraphs(parsed.Runs, faces)
	maxWidth := float64(frameWidth) - el.marginL - el.marginR

	var lines []textLine
	for i, p := range paragraphs {
		for _, items := range wrapParagraph(p, maxWidth, r.track.Info.WrapStyle) {
			line := measureLine(items, faces, starts[i])
			el.width = max(el.width, line.width)
			el.height += line.height()
			lines = append(lines, line)
		}
	}
	if el.width <= 0 || el.height <= 0 {
		return el
	}

	// room for glyph overhang past the advance box
	pad := int(maxPx/2) + 2
	fpad := float64(pad)
	canvasRect := image.Rect(0, 0,
		int(math.Ceil(el.width))+2*pad,
		int(math.Ceil(el.height))+2*pad,
	)

	// runs sharing a style draw into one bitmap, in order of first use
	type group struct {
		face   runFace
		canvas *image.Alpha
	}
	var groups []*group
	byStyle := make(map[subtitle.RunStyle]*group)
	canvasFor := func(run int) *image.Alpha {
		g, ok := byStyle[faces[run].style]
		if !ok {
			g = &group{face: faces[run], canvas: image.NewAlpha(canvasRect)}
			byStyle[faces[run].style] = g
			groups = append(groups, g)
		}
		return g.canvas
	}

	// line boxes in canvas coordinates, for opaque boxes
	boxes := make([][4]float64, 0, len(lines))
	y := fpad
	for _, line := range lines {
		baseline := y + line.ascent
		x := fpad + (el.width-line.width)*float64(el.halign)/2
		if line.width > 0 {
			boxes = append(boxes, [4]float64{x, y, x + line.width, y + line.height()})
		}

		for _, it := range line.items {
			rf := faces[it.run]
			c := canvasFor(it.run)
			if !it.space {
				drawGlyph(c, it.sized, it.r, x, baseline, it.hx)
			}

			thick := max(1, rf.px/20)
			if rf.style.Underline {
				top := baseline + rf.px*0.08
				fillRect(c, x, top, x+it.adv, top+thick)
			}
			if rf.style.StrikeOut {
				top := baseline - rf.ascent*0.3 - thick/2
				fillRect(c, x, top, x+it.adv, top+thick)
			}
			x += it.adv
		}
		y += line.height()
	}

	origin := image.Pt(pad, pad)
	var shadows, outlines, fills []layer
	opaqueBox := base.BorderStyle == 3

	for _, g := range groups {
		rf := g.face
		bitmap, at, ok := crop(g.canvas)
		if !ok {
			continue
		}
		offset := at.Sub(origin)

		if rf.fauxBold > 0 {
			var grow int
			bitmap, grow = dilate(bitmap, rf.fauxBold)
			offset = offset.Sub(image.Pt(grow, grow))
		}
		fills = append(fills, layer{typ: ImageFill, offset: offset, bitmap: bitmap, color: rf.style.Primary})

		if opaqueBox {
			continue
		}

		shadowSrc, shadowOffset := bitmap, offset
		if rf.border > 0 {
			outline, grow := dilate(bitmap, rf.border)
			outlineOffset := offset.Sub(image.Pt(grow, grow))
			outlines = append(outlines, layer{typ: ImageOutline, offset: outlineOffset, bitmap: outline, color: rf.style.Outline})
			shadowSrc, shadowOffset = outline, outlineOffset
		}
		if s := int(math.Round(rf.shadow)); s != 0 {
			shadows = append(shadows, layer{typ: ImageShadow, offset: shadowOffset.Add(image.Pt(s, s)), bitmap: shadowSrc, color: rf.style.Back})
		}
	}

	if opaqueBox && len(boxes) > 0 {
		rf := faces[0]
		box := image.NewAlpha(canvasRect.Inset(-int(math.Ceil(rf.border))))
		for _, b := range boxes {
			fillRect(box, b[0]-rf.border, b[1]-rf.border, b[2]+rf.border, b[3]+rf.border)
		}
		if bitmap, at, ok := crop(box); ok {
			offset := at.Sub(origin)
			outlines = append(outlines, layer{typ: ImageOutline, offset: offset, bitmap: bitmap, color: base.Outline})
			if s := int(math.Round(rf.shadow)); s != 0 {
				shadows = append(shadows, layer{typ: ImageShadow, offset: offset.Add(image.Pt(s, s)), bitmap: bitmap, color: base.Back})
			}
		}
	}

	el.layers = append(append(shadows, outlines...), fills...)
	return el
}

func pickMargin(event, style int) int {
	if event != 0 {
		return event
	}
	return style
}

// origin is the frame position of the top left of the text block at t.
func (el *eventLayout) origin(ev subtitle.Event, t time.Duration, sc frameScale, frame image.Rectangle) image.Point {
	fw, fh := float64(frame.Dx()), float64(frame.Dy())

	var ax, ay float64
	switch {
	case el.ov.HasMove:
		x, y := el.movePosition(ev, t)
		ax, ay = x*sc.x, y*sc.y
	case el.ov.HasPos:
		ax, ay = el.ov.PosX*sc.x, el.ov.PosY*sc.y
	default:
		var x, y float64
		switch el.halign {
		case 0:
			x = el.marginL
		case 2:
			x = fw - el.marginR - el.width
		default:
			x = (el.marginL + fw - el.marginR - el.width) / 2
		}
		switch el.valign {
		case 0:
			y = fh - el.marginV - el.height
		case 2:
			y = el.marginV
		default:
			y = (fh - el.height) / 2
		}
		return image.Pt(int(math.Round(x)), int(math.Round(y)))
	}

	x := ax - el.width*float64(el.halign)/2
	var y float64
	switch el.valign {
	case 0:
		y = ay - el.height
	case 1:
		y = ay - el.height/2
	default:
		y = ay
	}
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

func (el *eventLayout) movePosition(ev subtitle.Event, t time.Duration) (float64, float64) {
	m := el.ov.Move
	rel := t - ev.Start
	t1, t2 := m.T1, m.T2
	if t1 == 0 && t2 == 0 {
		t2 = ev.End - ev.Start
	}

	var k float64
	switch {
	case rel <= t1:
		k = 0
	case rel >= t2:
		k = 1
	default:
		k = float64(rel-t1) / float64(t2-t1)
	}
	return m.X1 + (m.X2-m.X1)*k, m.Y1 + (m.Y2-m.Y1)*k
}

// fade is the opacity multiplier from \fad at t.
func (el *eventLayout) fade(ev subtitle.Event, t time.Duration) float64 {
	f := 1.0
	if in := el.ov.FadeIn; in > 0 {
		if rel := t - ev.Start; rel < in {
			f = float64(rel) / float64(in)
		}
	}
	if out := el.ov.FadeOut; out > 0 {
		if left := ev.End - t; left < out {
			f = min(f, float64(left)/float64(out))
		}
	}
	return min(max(f, 0), 1)
}

// collides reports whether the event takes part in collision stacking.
func (el *eventLayout) collides() bool {
	return !el.ov.HasPos && !el.ov.HasMove && el.valign != 1
}

func (el *eventLayout) bounds(origin image.Point) image.Rectangle {
	return image.Rect(origin.X, origin.Y,
		origin.X+int(math.Ceil(el.width)),
		origin.Y+int(math.Ceil(el.height)),
	)
}

type placedBox struct {
	layer  int
	valign int
	rect   image.Rectangle
}

// placer stacks unpositioned events of one frame so they do not overlap.
// Bottom-aligned events move up and top-aligned ones move down, so the
// event placed first keeps the slot nearest its edge.
type placer struct {
	boxes []placedBox
}

func (p *placer) place(layer, valign int, r image.Rectangle) image.Point {
	up := valign == 0

	for moved := true; moved; {
		moved = false
		for _, b := range p.boxes {
			if b.layer != layer || b.valign != valign || !b.rect.Overlaps(r) {
				continue
			}
			if up {
				r = r.Add(image.Pt(0, b.rect.Min.Y-r.Max.Y))
			} else {
				r = r.Add(image.Pt(0, b.rect.Max.Y-r.Min.Y))
			}
			moved = true
		}
	}

	p.boxes = append(p.boxes, placedBox{layer: layer, valign: valign, rect: r})
	return r.Min
}
