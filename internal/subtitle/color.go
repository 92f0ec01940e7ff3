package subtitle

import (
	"image/color"
	"strconv"
	"strings"
)

// ASS colour; A is transparency, 0x00 opaque and 0xFF invisible
type Color struct {
	R, G, B, A uint8
}

// NRGBA converts to a Go colour with conventional opacity.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255 - c.A}
}

// ParseColor accepts &HAABBGGRR, &HBBGGRR&, 0x-prefixed hex and decimal.
// Garbage yields ok == false.
func ParseColor(s string) (Color, bool) {
	v, ok := parseColorValue(s)
	if !ok {
		return Color{}, false
	}
	return Color{
		R: uint8(v),
		G: uint8(v >> 8),
		B: uint8(v >> 16),
		A: uint8(v >> 24),
	}, true
}

// ParseAlpha parses the &HAA& argument of \alpha style tags.
func ParseAlpha(s string) (uint8, bool) {
	v, ok := parseColorValue(s)
	if !ok {
		return 0, false
	}
	return uint8(v), true
}

func parseColorValue(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "&")
	base := 10
	switch {
	case strings.HasPrefix(s, "H"), strings.HasPrefix(s, "h"):
		s = s[1:]
		base = 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
		base = 16
	}
	s = strings.TrimRight(s, "&")
	if s == "" {
		return 0, false
	}

	// keep only the leading run of valid digits, like strtol would
	end := 0
	for end < len(s) && isDigit(s[end], base) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	if end > 8 && base == 16 {
		end = 8
	}

	v, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16 && c >= 'a' && c <= 'f':
		return true
	case base == 16 && c >= 'A' && c <= 'F':
		return true
	default:
		return false
	}
}

// parses #RRGGBB or #RRGGBBAA (HTML order) into an ASS colour
func parseHTMLColor(s string) (Color, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		if c, ok := htmlColorNames[strings.ToLower(s)]; ok {
			return c, true
		}
		return Color{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, false
	}
	if len(s) == 6 {
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
	}
	return Color{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: 255 - uint8(v),
	}, true
}

var htmlColorNames = map[string]Color{
	"white":   {R: 0xFF, G: 0xFF, B: 0xFF},
	"black":   {},
	"red":     {R: 0xFF},
	"green":   {G: 0x80},
	"lime":    {G: 0xFF},
	"blue":    {B: 0xFF},
	"yellow":  {R: 0xFF, G: 0xFF},
	"cyan":    {G: 0xFF, B: 0xFF},
	"aqua":    {G: 0xFF, B: 0xFF},
	"magenta": {R: 0xFF, B: 0xFF},
	"fuchsia": {R: 0xFF, B: 0xFF},
	"gray":    {R: 0x80, G: 0x80, B: 0x80},
	"grey":    {R: 0x80, G: 0x80, B: 0x80},
	"orange":  {R: 0xFF, G: 0xA5},
}

// formats as &HAABBGGRR for writing styles
func (c Color) String() string {
	return "&H" + strings.ToUpper(hex2(c.A)+hex2(c.B)+hex2(c.G)+hex2(c.R))
}

func hex2(b uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0F]})
}
