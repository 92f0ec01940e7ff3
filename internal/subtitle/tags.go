package subtitle

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// effective look of a stretch of event text
type RunStyle struct {
	FontName    string
	FontSize    float64
	Bold        bool
	Italic      bool
	Underline   bool
	StrikeOut   bool
	ScaleX      float64
	ScaleY      float64
	Spacing     float64
	Primary     Color
	Secondary   Color
	Outline     Color
	Back        Color
	Border      float64
	Shadow      float64
	BorderStyle int
}

// StyleRun seeds a RunStyle from a track style.
func StyleRun(s Style) RunStyle {
	return RunStyle{
		FontName:    s.FontName,
		FontSize:    s.FontSize,
		Bold:        s.Bold,
		Italic:      s.Italic,
		Underline:   s.Underline,
		StrikeOut:   s.StrikeOut,
		ScaleX:      s.ScaleX,
		ScaleY:      s.ScaleY,
		Spacing:     s.Spacing,
		Primary:     s.PrimaryColour,
		Secondary:   s.SecondaryColour,
		Outline:     s.OutlineColour,
		Back:        s.BackColour,
		Border:      s.Outline,
		Shadow:      s.Shadow,
		BorderStyle: s.BorderStyle,
	}
}

// text sharing one RunStyle; Break marks a hard line break and has no text
type Run struct {
	Text  string
	Style RunStyle
	Break bool
}

// \move arguments; T1 == T2 == 0 means the whole event
type Move struct {
	X1, Y1, X2, Y2 float64
	T1, T2         time.Duration
}

// event-wide settings collected from override blocks
type Overrides struct {
	Alignment int
	HasPos    bool
	PosX      float64
	PosY      float64
	HasMove   bool
	Move      Move
	FadeIn    time.Duration
	FadeOut   time.Duration
}

// result of ParseText
type Layout struct {
	Runs      []Run
	Overrides Overrides
}

// StyleLookup resolves a style name for \r.
type StyleLookup func(name string) (RunStyle, bool)

// known override tags, longest first so prefixes resolve correctly
var tagNames = func() []string {
	names := []string{
		"alpha", "iclip", "xbord", "ybord", "xshad", "yshad",
		"fscx", "fscy", "blur", "bord", "clip", "fade", "move", "shad",
		"pos", "org", "fsp", "fad", "frx", "fry", "frz", "fax", "fay", "pbo",
		"an", "fn", "fs", "fe", "fr", "be", "kf", "ko",
		"1c", "2c", "3c", "4c", "1a", "2a", "3a", "4a",
		"c", "b", "i", "u", "s", "a", "r", "k", "K", "q", "p", "t",
	}
	sort.SliceStable(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})
	return names
}()

type textParser struct {
	base      RunStyle
	lookup    StyleLookup
	wrapStyle int

	style   RunStyle
	ov      Overrides
	runs    []Run
	text    strings.Builder
	drawing bool
}

// ParseText splits event text into styled runs and event-wide overrides.
// Unknown tags are ignored and brace blocks without a backslash are
// treated as comments.
func ParseText(text string, base RunStyle, lookup StyleLookup, wrapStyle int) Layout {
	p := &textParser{
		base:      base,
		lookup:    lookup,
		wrapStyle: wrapStyle,
		style:     base,
	}

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '{':
			end := strings.IndexByte(text[i+1:], '}')
			if end == -1 {
				p.appendText(text[i:])
				i = len(text)
				continue
			}
			block := text[i+1 : i+1+end]
			if strings.Contains(block, "\\") {
				p.applyBlock(block)
			}
			i += end + 2
		case c == '\\' && i+1 < len(text):
			switch text[i+1] {
			case 'N':
				p.lineBreak()
			case 'n':
				if p.wrapStyle == 2 {
					p.lineBreak()
				} else {
					p.appendText(" ")
				}
			case 'h':
				p.appendText("\u00a0")
			case '{', '}':
				p.appendText(text[i+1 : i+2])
			default:
				p.appendText(text[i : i+2])
			}
			i += 2
		default:
			p.appendText(text[i : i+1])
			i++
		}
	}

	p.flush()
	return Layout{Runs: p.runs, Overrides: p.ov}
}

func (p *textParser) appendText(s string) {
	if p.drawing {
		return
	}
	p.text.WriteString(s)
}

func (p *textParser) flush() {
	if p.text.Len() == 0 {
		return
	}
	p.runs = append(p.runs, Run{Text: p.text.String(), Style: p.style})
	p.text.Reset()
}

func (p *textParser) lineBreak() {
	p.flush()
	p.runs = append(p.runs, Run{Break: true, Style: p.style})
}

// setStyle flushes pending text before a style change
func (p *textParser) setStyle(next RunStyle) {
	if next == p.style {
		return
	}
	p.flush()
	p.style = next
}

func (p *textParser) applyBlock(block string) {
	for _, raw := range splitTagBlock(block) {
		name, args := matchTag(raw)
		if name == "" {
			continue
		}
		p.applyTag(name, args)
	}
}

// splits "\fs20\pos(1,2)\t(\fs30)" into tag bodies, keeping parenthesized
// arguments intact
func splitTagBlock(block string) []string {
	var tags []string
	depth := 0
	start := -1
	for i := 0; i < len(block); i++ {
		switch block[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '\\':
			if depth > 0 {
				continue
			}
			if start >= 0 {
				tags = append(tags, block[start:i])
			}
			start = i + 1
		}
	}
	if start >= 0 && start <= len(block) {
		tags = append(tags, block[start:])
	}
	return tags
}

func matchTag(raw string) (string, string) {
	raw = strings.TrimLeft(raw, " ")
	for _, name := range tagNames {
		if strings.HasPrefix(raw, name) {
			return name, strings.TrimSpace(raw[len(name):])
		}
	}
	return "", ""
}

func (p *textParser) applyTag(name, args string) {
	next := p.style

	switch name {
	case "b":
		if args == "" {
			next.Bold = p.base.Bold
		} else if n, ok := parseInt(args); ok {
			next.Bold = isBoldValue(n)
		}
	case "i", "u", "s":
		var value, baseValue *bool
		switch name {
		case "i":
			value, baseValue = &next.Italic, &p.base.Italic
		case "u":
			value, baseValue = &next.Underline, &p.base.Underline
		default:
			value, baseValue = &next.StrikeOut, &p.base.StrikeOut
		}
		if args == "" {
			*value = *baseValue
		} else if n, ok := parseInt(args); ok {
			*value = n != 0
		}
	case "fn":
		if args == "" {
			next.FontName = p.base.FontName
		} else {
			next.FontName = args
		}
	case "fs":
		switch {
		case args == "":
			next.FontSize = p.base.FontSize
		case args[0] == '+' || args[0] == '-':
			if f, ok := parseFloat(args); ok {
				if size := next.FontSize * (1 + f/10); size > 0 {
					next.FontSize = size
				}
			}
		default:
			if f, ok := parseFloat(args); ok && f > 0 {
				next.FontSize = f
			}
		}
	case "fscx":
		next.ScaleX = floatOr(args, p.base.ScaleX)
	case "fscy":
		next.ScaleY = floatOr(args, p.base.ScaleY)
	case "fsp":
		next.Spacing = floatOr(args, p.base.Spacing)
	case "bord":
		if v := floatOr(args, p.base.Border); v >= 0 {
			next.Border = v
		}
	case "shad":
		if v := floatOr(args, p.base.Shadow); v >= 0 {
			next.Shadow = v
		}
	case "c", "1c":
		next.Primary = colorOr(args, next.Primary, p.base.Primary)
	case "2c":
		next.Secondary = colorOr(args, next.Secondary, p.base.Secondary)
	case "3c":
		next.Outline = colorOr(args, next.Outline, p.base.Outline)
	case "4c":
		next.Back = colorOr(args, next.Back, p.base.Back)
	case "alpha":
		if args == "" {
			next.Primary.A = p.base.Primary.A
			next.Secondary.A = p.base.Secondary.A
			next.Outline.A = p.base.Outline.A
			next.Back.A = p.base.Back.A
		} else if a, ok := ParseAlpha(args); ok {
			next.Primary.A = a
			next.Secondary.A = a
			next.Outline.A = a
			next.Back.A = a
		}
	case "1a":
		next.Primary.A = alphaOr(args, p.base.Primary.A)
	case "2a":
		next.Secondary.A = alphaOr(args, p.base.Secondary.A)
	case "3a":
		next.Outline.A = alphaOr(args, p.base.Outline.A)
	case "4a":
		next.Back.A = alphaOr(args, p.base.Back.A)
	case "r":
		next = p.base
		if args != "" && p.lookup != nil {
			if named, ok := p.lookup(args); ok {
				next = named
			}
		}
	case "an":
		if n, ok := parseInt(args); ok && n >= 1 && n <= 9 && p.ov.Alignment == 0 {
			p.ov.Alignment = n
		}
	case "a":
		if n, ok := parseInt(args); ok && n > 0 && p.ov.Alignment == 0 {
			p.ov.Alignment = clampAlignment(LegacyAlignment(n))
		}
	case "pos":
		values := parseArgs(args)
		if len(values) == 2 && !p.ov.HasPos && !p.ov.HasMove {
			p.ov.HasPos = true
			p.ov.PosX, p.ov.PosY = values[0], values[1]
		}
	case "move":
		values := parseArgs(args)
		if (len(values) == 4 || len(values) == 6) && !p.ov.HasPos && !p.ov.HasMove {
			p.ov.HasMove = true
			p.ov.Move = Move{X1: values[0], Y1: values[1], X2: values[2], Y2: values[3]}
			if len(values) == 6 {
				t1, t2 := values[4], values[5]
				if t1 > t2 {
					t1, t2 = t2, t1
				}
				p.ov.Move.T1 = msDuration(t1)
				p.ov.Move.T2 = msDuration(t2)
			}
		}
	case "fad":
		values := parseArgs(args)
		if len(values) == 2 {
			p.ov.FadeIn = msDuration(values[0])
			p.ov.FadeOut = msDuration(values[1])
		}
	case "p":
		if n, ok := parseInt(args); ok {
			p.flush()
			p.drawing = n > 0
		}
	default:
		// recognised but not rendered
	}

	p.setStyle(next)
}

// PlainText strips override blocks and turns line-break escapes into
// newlines.
func PlainText(text string) string {
	layout := ParseText(text, RunStyle{}, nil, 2)
	var sb strings.Builder
	for _, run := range layout.Runs {
		if run.Break {
			sb.WriteByte('\n')
			continue
		}
		sb.WriteString(strings.ReplaceAll(run.Text, "\u00a0", " "))
	}
	return sb.String()
}

func parseArgs(args string) []float64 {
	args = strings.TrimSpace(args)
	if !strings.HasPrefix(args, "(") {
		return nil
	}
	args = strings.TrimSuffix(strings.TrimPrefix(args, "("), ")")
	var values []float64
	for _, part := range strings.Split(args, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil
		}
		values = append(values, f)
	}
	return values
}

func parseInt(s string) (int, bool) {
	f, ok := parseFloat(s)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// parses the leading number of s, ignoring trailing garbage
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || ((c == '-' || c == '+') && end == 0) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func floatOr(args string, fallback float64) float64 {
	if args == "" {
		return fallback
	}
	if f, ok := parseFloat(args); ok {
		return f
	}
	return fallback
}

// colour tags change RGB only; alpha is kept
func colorOr(args string, current, base Color) Color {
	if args == "" {
		base.A = current.A
		return base
	}
	c, ok := ParseColor(args)
	if !ok {
		return current
	}
	c.A = current.A
	return c
}

func alphaOr(args string, base uint8) uint8 {
	if args == "" {
		return base
	}
	if a, ok := ParseAlpha(args); ok {
		return a
	}
	return base
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
