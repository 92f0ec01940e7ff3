package render

import (
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"

	"github.com/mgpai22/subrender/internal/fonts"
	"github.com/mgpai22/subrender/internal/subtitle"
)

// run style resolved to frame pixels
type runFace struct {
	style    subtitle.RunStyle
	face     *fonts.Face
	sized    font.Face
	px       float64
	hx       float64
	spacing  float64
	border   float64
	shadow   float64
	fauxBold float64
	ascent   float64
	descent  float64
	// zero-size runs draw nothing
	hidden bool
}

type glyphItem struct {
	run   int
	r     rune
	sized font.Face
	hx    float64
	adv   float64
	space bool
}

type textLine struct {
	items   []glyphItem
	width   float64
	ascent  float64
	descent float64
}

func (l textLine) height() float64 {
	return l.ascent + l.descent
}

type word struct {
	start, end int
	width      float64
	// spaces after the word
	gap float64
}

// frame pixels per script pixel
type frameScale struct {
	x, y   float64
	border float64
}

func newFrameScale(info subtitle.ScriptInfo, width, height int) frameScale {
	sc := frameScale{
		x: float64(width) / float64(info.PlayResX),
		y: float64(height) / float64(info.PlayResY),
	}
	sc.border = 1
	if info.ScaledBorderAndShadow {
		sc.border = sc.y
	}
	return sc
}

func (r *Renderer) resolveRun(rs subtitle.RunStyle, sc frameScale) runFace {
	rf := runFace{
		style:   rs,
		border:  max(rs.Border, 0) * sc.border,
		shadow:  rs.Shadow * sc.border,
		spacing: rs.Spacing * sc.x,
	}

	px := rs.FontSize * sc.y * rs.ScaleY / 100
	if px <= 0 || rs.ScaleX <= 0 {
		rf.hidden = true
		return rf
	}

	rf.face = r.lib.Match(rs.FontName, rs.Bold, rs.Italic)
	sized, err := r.cellFace(rf.face, px)
	if err != nil {
		r.logger.Warnw("Failed to size font", "family", rs.FontName, "error", err)
		rf.hidden = true
		return rf
	}

	rf.sized = sized
	rf.px = px
	rf.hx = (sc.x * rs.ScaleX) / (sc.y * rs.ScaleY)
	m := sized.Metrics()
	rf.ascent = fromFixed(m.Ascent)
	rf.descent = fromFixed(m.Descent)
	if rs.Bold && !rf.face.Bold {
		rf.fauxBold = max(px/48, 0.5)
	}
	return rf
}

// cellFace sizes f so that ascent plus descent equals px, which is how
// subtitle font sizes are measured.
func (r *Renderer) cellFace(f *fonts.Face, px float64) (font.Face, error) {
	base, err := r.lib.SizedFace(f, px)
	if err != nil {
		return nil, err
	}
	m := base.Metrics()
	cell := fromFixed(m.Ascent + m.Descent)
	if cell <= 0 {
		return base, nil
	}
	return r.lib.SizedFace(f, px*px/cell)
}

// glyphFace picks the face that carries rune c, trying the built-in
// fallbacks when the run's face lacks it.
func (r *Renderer) glyphFace(rf runFace, c rune) font.Face {
	if hasGlyph(rf.face, c, &r.sfntBuf) {
		return rf.sized
	}
	for _, fb := range r.lib.Fallbacks(rf.style.Bold, rf.style.Italic) {
		if fb == rf.face || !hasGlyph(fb, c, &r.sfntBuf) {
			continue
		}
		if sized, err := r.cellFace(fb, rf.px); err == nil {
			return sized
		}
	}
	return rf.sized
}

func hasGlyph(f *fonts.Face, c rune, buf *sfnt.Buffer) bool {
	idx, err := f.Font().GlyphIndex(buf, c)
	return err == nil && idx != 0
}

// shapeParagraphs turns runs into glyph items, one slice per hard line.
// The run index of each paragraph start is kept so empty lines still get
// a height.
func (r *Renderer) shapeParagraphs(runs []subtitle.Run, faces []runFace) ([][]glyphItem, []int) {
	paragraphs := [][]glyphItem{nil}
	starts := []int{0}

	for i, run := range runs {
		if run.Break {
			paragraphs = append(paragraphs, nil)
			starts = append(starts, i)
			continue
		}
		rf := faces[i]
		if rf.hidden {
			continue
		}

		cur := &paragraphs[len(paragraphs)-1]
		var prev rune
		var prevFace font.Face
		for _, c := range run.Text {
			if c == '\r' || c == '\n' {
				continue
			}
			sized := r.glyphFace(rf, c)
			adv, _ := sized.GlyphAdvance(c)

			if prevFace == sized && len(*cur) > 0 {
				(*cur)[len(*cur)-1].adv += fromFixed(sized.Kern(prev, c)) * rf.hx
			}
			*cur = append(*cur, glyphItem{
				run:   i,
				r:     c,
				sized: sized,
				hx:    rf.hx,
				adv:   fromFixed(adv)*rf.hx + rf.spacing,
				space: c == ' ',
			})
			prev, prevFace = c, sized
		}
	}

	return paragraphs, starts
}

func splitWords(items []glyphItem) []word {
	var words []word
	i := 0
	for i < len(items) {
		w := word{start: i}
		if len(words) == 0 {
			// leading spaces stick to the first word
			for i < len(items) && items[i].space {
				w.width += items[i].adv
				i++
			}
		}
		for i < len(items) && !items[i].space {
			w.width += items[i].adv
			i++
		}
		w.end = i
		for i < len(items) && items[i].space {
			w.gap += items[i].adv
			i++
		}
		words = append(words, w)
	}
	return words
}

// greedyBreaks returns the index of the first word of every line.
func greedyBreaks(words []word, maxWidth float64) []int {
	breaks := []int{0}
	lineWidth := 0.0
	for i, w := range words {
		if i == 0 {
			lineWidth = w.width
			continue
		}
		next := lineWidth + words[i-1].gap + w.width
		if next > maxWidth {
			breaks = append(breaks, i)
			lineWidth = w.width
			continue
		}
		lineWidth = next
	}
	return breaks
}

// reverseBreaks fills lines from the last word backwards, leaving any
// slack on the first line.
func reverseBreaks(words []word, maxWidth float64) []int {
	n := len(words)
	rev := make([]word, n)
	for k := range rev {
		rev[k] = words[n-1-k]
		rev[k].gap = 0
		if n-2-k >= 0 {
			rev[k].gap = words[n-2-k].gap
		}
	}

	rb := greedyBreaks(rev, maxWidth)
	breaks := []int{0}
	for _, b := range rb[1:] {
		breaks = append(breaks, n-b)
	}
	sort.Ints(breaks)
	return breaks
}

// balancedBreaks keeps the greedy line count but evens out line widths.
// The top lines come out wider unless bottomWide is set.
func balancedBreaks(words []word, maxWidth float64, bottomWide bool) []int {
	breakFn := greedyBreaks
	if bottomWide {
		breakFn = reverseBreaks
	}

	lines := len(greedyBreaks(words, maxWidth))
	if lines <= 1 {
		return []int{0}
	}

	lo, hi := 0.0, maxWidth
	for i := 0; i < 24; i++ {
		mid := (lo + hi) / 2
		if len(breakFn(words, mid)) <= lines {
			hi = mid
		} else {
			lo = mid
		}
	}

	breaks := breakFn(words, hi)
	if len(breaks) > lines {
		return greedyBreaks(words, maxWidth)
	}
	return breaks
}

// wrapParagraph splits a hard line into display lines according to the
// script's WrapStyle: 0 balanced with wider top lines, 1 end-of-line, 2 no
// wrapping, 3 balanced with wider bottom lines.
func wrapParagraph(items []glyphItem, maxWidth float64, wrapStyle int) [][]glyphItem {
	if wrapStyle == 2 || maxWidth <= 0 || len(items) == 0 {
		return [][]glyphItem{items}
	}

	words := splitWords(items)
	var breaks []int
	switch wrapStyle {
	case 1:
		breaks = greedyBreaks(words, maxWidth)
	case 3:
		breaks = balancedBreaks(words, maxWidth, true)
	default:
		breaks = balancedBreaks(words, maxWidth, false)
	}

	lines := make([][]glyphItem, 0, len(breaks))
	for i, b := range breaks {
		last := len(words) - 1
		if i+1 < len(breaks) {
			last = breaks[i+1] - 1
		}
		lines = append(lines, items[words[b].start:words[last].end])
	}
	return lines
}

func measureLine(items []glyphItem, faces []runFace, fallbackRun int) textLine {
	line := textLine{items: items}
	for _, it := range items {
		line.width += it.adv
		rf := faces[it.run]
		line.ascent = max(line.ascent, rf.ascent)
		line.descent = max(line.descent, rf.descent)
	}
	if len(items) == 0 && fallbackRun < len(faces) {
		rf := faces[fallbackRun]
		line.ascent, line.descent = rf.ascent, rf.descent
	}
	return line
}
