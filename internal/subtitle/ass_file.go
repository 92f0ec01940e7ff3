package subtitle

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	defaultStyleFormat = "Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding"
	legacyStyleFormat  = "Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, TertiaryColour, BackColour, Bold, Italic, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, AlphaLevel, Encoding"
	defaultEventFormat = "Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"
	legacyEventFormat  = "Marked, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"
)

var knownSections = map[string]bool{
	"script info":             true,
	"v4+ styles":              true,
	"v4 styles":               true,
	"events":                  true,
	"fonts":                   true,
	"graphics":                true,
	"aegisub project garbage": true,
	"aegisub extradata":       true,
}

type assSection int

const (
	sectionNone assSection = iota
	sectionScriptInfo
	sectionStyles
	sectionEvents
	sectionFonts
	sectionOther
)

// line-oriented ASS/SSA parser state
type assParser struct {
	track   *Track
	section assSection
	legacy  bool
	// ScaledBorderAndShadow was given explicitly
	scaledSet   bool
	styleFormat []string
	eventFormat []string
	readOrder   int
	fontName    string
	fontData    strings.Builder
	lineNum     int
}

func parseASS(text string) (*Track, error) {
	p := &assParser{track: newTrack(FormatASS)}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		p.lineNum++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASS data: %w", err)
	}

	p.flushFont()
	p.track.normalizePlayRes()

	if len(p.track.Styles) == 0 {
		p.track.Styles = append(p.track.Styles, DefaultStyle())
	}

	return p.track, nil
}

func (p *assParser) parseLine(line string) error {
	line = strings.TrimPrefix(line, "\ufeff")
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		name := strings.ToLower(
			strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]"),
		)
		// uuencoded font data may look like a header
		if p.section != sectionFonts || knownSections[name] {
			p.flushFont()
			p.enterSection(name)
			return nil
		}
	}

	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, ";") && p.section != sectionFonts {
		return nil
	}

	switch p.section {
	case sectionScriptInfo:
		p.parseScriptInfo(trimmed)
	case sectionStyles:
		return p.parseStyleLine(trimmed)
	case sectionEvents:
		return p.parseEventLine(trimmed)
	case sectionFonts:
		p.parseFontLine(trimmed)
	}
	return nil
}

func (p *assParser) enterSection(name string) {
	switch name {
	case "script info":
		p.section = sectionScriptInfo
	case "v4+ styles":
		p.section = sectionStyles
		p.legacy = false
	case "v4 styles":
		p.section = sectionStyles
		p.legacy = true
		p.track.Info.ScriptType = "v4.00"
		p.legacyDefaults()
	case "events":
		p.section = sectionEvents
	case "fonts":
		p.section = sectionFonts
	default:
		p.section = sectionOther
	}
}

// v4.00 scripts predate scaled borders; an explicit setting still wins
func (p *assParser) legacyDefaults() {
	if !p.scaledSet {
		p.track.Info.ScaledBorderAndShadow = false
	}
}

func (p *assParser) parseScriptInfo(line string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	info := &p.track.Info
	switch strings.ToLower(key) {
	case "title":
		info.Title = value
	case "scripttype":
		info.ScriptType = value
		if strings.EqualFold(value, "v4.00") {
			p.legacy = true
			p.legacyDefaults()
		}
	case "playresx":
		info.PlayResX = atoi(value)
	case "playresy":
		info.PlayResY = atoi(value)
	case "wrapstyle":
		info.WrapStyle = atoi(value)
	case "scaledborderandshadow":
		info.ScaledBorderAndShadow = strings.EqualFold(value, "yes") || value == "1"
		p.scaledSet = true
	case "collisions":
		info.Collisions = value
	}
}

func (p *assParser) parseStyleLine(line string) error {
	switch {
	case strings.HasPrefix(line, "Format:"):
		p.styleFormat = splitFormat(strings.TrimPrefix(line, "Format:"))
		return nil
	case strings.HasPrefix(line, "Style:"):
	default:
		return nil
	}

	format := p.styleFormat
	if len(format) == 0 {
		if p.legacy {
			format = splitFormat(legacyStyleFormat)
		} else {
			format = splitFormat(defaultStyleFormat)
		}
	}

	content := strings.TrimSpace(strings.TrimPrefix(line, "Style:"))
	parts := splitASSFields(content, len(format))
	if len(parts) < len(format) {
		return fmt.Errorf(
			"failed to parse Style at line %d: expected %d fields, got %d",
			p.lineNum,
			len(format),
			len(parts),
		)
	}

	style := DefaultStyle()
	style.Name = ""
	for i, col := range format {
		p.applyStyleField(&style, strings.ToLower(col), strings.TrimSpace(parts[i]))
	}
	if style.Name == "" {
		style.Name = "Default"
	}

	p.track.Styles = append(p.track.Styles, style)
	return nil
}

func (p *assParser) applyStyleField(s *Style, col, value string) {
	switch col {
	case "name":
		s.Name = strings.TrimPrefix(value, "*")
	case "fontname":
		s.FontName = value
	case "fontsize":
		s.FontSize = atof(value)
	case "primarycolour":
		if c, ok := ParseColor(value); ok {
			s.PrimaryColour = c
		}
	case "secondarycolour":
		if c, ok := ParseColor(value); ok {
			s.SecondaryColour = c
		}
	case "outlinecolour", "tertiarycolour":
		if c, ok := ParseColor(value); ok {
			s.OutlineColour = c
		}
	case "backcolour":
		if c, ok := ParseColor(value); ok {
			s.BackColour = c
		}
	case "bold":
		s.Bold = isBoldValue(atoi(value))
	case "italic":
		s.Italic = atoi(value) != 0
	case "underline":
		s.Underline = atoi(value) != 0
	case "strikeout":
		s.StrikeOut = atoi(value) != 0
	case "scalex":
		s.ScaleX = atof(value)
	case "scaley":
		s.ScaleY = atof(value)
	case "spacing":
		s.Spacing = atof(value)
	case "angle":
		s.Angle = atof(value)
	case "borderstyle":
		s.BorderStyle = atoi(value)
	case "outline":
		s.Outline = atof(value)
	case "shadow":
		s.Shadow = atof(value)
	case "alignment":
		a := atoi(value)
		if p.legacy {
			a = LegacyAlignment(a)
		}
		s.Alignment = clampAlignment(a)
	case "marginl":
		s.MarginL = atoi(value)
	case "marginr":
		s.MarginR = atoi(value)
	case "marginv":
		s.MarginV = atoi(value)
	case "encoding":
		s.Encoding = atoi(value)
	case "alphalevel":
		// SSA only, ignored by modern renderers
	}
}

func (p *assParser) parseEventLine(line string) error {
	if strings.HasPrefix(line, "Format:") {
		p.eventFormat = splitFormat(strings.TrimPrefix(line, "Format:"))
		if indexOf(p.eventFormat, "text") == -1 {
			return fmt.Errorf("ASS data missing Text column in Format line")
		}
		return nil
	}

	if !strings.HasPrefix(line, "Dialogue:") {
		// Comment, Picture, Sound, Movie, Command
		return nil
	}

	format := p.eventFormat
	if len(format) == 0 {
		if p.legacy {
			format = splitFormat(legacyEventFormat)
		} else {
			format = splitFormat(defaultEventFormat)
		}
		p.eventFormat = format
	}

	content := strings.TrimSpace(strings.TrimPrefix(line, "Dialogue:"))
	parts := splitASSFields(content, len(format))
	if len(parts) < len(format) {
		return fmt.Errorf(
			"failed to parse Dialogue at line %d: expected %d fields, got %d",
			p.lineNum,
			len(format),
			len(parts),
		)
	}

	ev := Event{ReadOrder: p.readOrder}
	p.readOrder++

	for i, col := range format {
		value := parts[i]
		if !strings.EqualFold(col, "text") {
			value = strings.TrimSpace(value)
		}
		switch strings.ToLower(col) {
		case "layer":
			ev.Layer = atoi(value)
		case "start":
			ev.Start = parseASSTimestamp(value)
		case "end":
			ev.End = parseASSTimestamp(value)
		case "style":
			ev.Style = strings.TrimPrefix(value, "*")
		case "name", "actor":
			ev.Name = value
		case "marginl":
			ev.MarginL = atoi(value)
		case "marginr":
			ev.MarginR = atoi(value)
		case "marginv":
			ev.MarginV = atoi(value)
		case "effect":
			ev.Effect = value
		case "text":
			ev.Text = value
		}
	}

	p.track.Events = append(p.track.Events, ev)
	return nil
}

func (p *assParser) parseFontLine(line string) {
	if strings.HasPrefix(line, "fontname:") {
		p.flushFont()
		p.fontName = strings.TrimSpace(strings.TrimPrefix(line, "fontname:"))
		return
	}
	if p.fontName != "" {
		p.fontData.WriteString(line)
	}
}

func (p *assParser) flushFont() {
	if p.fontName == "" {
		return
	}
	data := decodeEmbeddedFont(p.fontData.String())
	if len(data) > 0 {
		p.track.Fonts = append(p.track.Fonts, EmbeddedFont{
			Name: p.fontName,
			Data: data,
		})
	}
	p.fontName = ""
	p.fontData.Reset()
}

func splitFormat(format string) []string {
	columns := strings.Split(format, ",")
	for i, col := range columns {
		columns[i] = strings.TrimSpace(col)
	}
	return columns
}

func splitASSFields(content string, numFields int) []string {
	if numFields <= 0 {
		return nil
	}

	parts := make([]string, 0, numFields)
	remaining := content

	for i := 0; i < numFields-1; i++ {
		idx := strings.Index(remaining, ",")
		if idx == -1 {
			parts = append(parts, remaining)
			return parts
		}
		parts = append(parts, remaining[:idx])
		remaining = remaining[idx+1:]
	}

	parts = append(parts, remaining)

	return parts
}

func indexOf(columns []string, name string) int {
	for i, col := range columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

func parseASSTimestamp(ts string) time.Duration {
	ts = strings.TrimSpace(ts)
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}

	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}

	// split seconds and fraction, usually centiseconds
	secParts := strings.Split(parts[2], ".")
	seconds, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0
	}

	var frac time.Duration
	if len(secParts) == 2 && secParts[1] != "" {
		digits := secParts[1]
		if len(digits) > 3 {
			digits = digits[:3]
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return 0
		}
		for i := len(digits); i < 3; i++ {
			n *= 10
		}
		frac = time.Duration(n) * time.Millisecond
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		frac
}

// LegacyAlignment maps SSA alignment (1-3 sub, +4 top, +8 middle) to numpad.
func LegacyAlignment(a int) int {
	h := a & 3
	if h == 0 {
		h = 2
	}
	switch {
	case a&4 != 0:
		return h + 6
	case a&8 != 0:
		return h + 3
	default:
		return h
	}
}

func clampAlignment(a int) int {
	if a < 1 || a > 9 {
		return 2
	}
	return a
}

func isBoldValue(v int) bool {
	return v == 1 || v == -1 || v >= 600
}

func atoi(s string) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
