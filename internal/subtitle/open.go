package subtitle

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Open reads a subtitle file from disk and parses it.
func Open(path string) (*Track, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return Parse(data)
}

// Parse detects the format of raw track bytes and parses them.
func Parse(data []byte) (*Track, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	switch DetectFormat(text) {
	case FormatASS:
		return parseASS(text)
	case FormatVTT:
		return parseVTT(strings.NewReader(text))
	default:
		return parseSRT(strings.NewReader(text))
	}
}

// DetectFormat sniffs decoded track text.
func DetectFormat(text string) Format {
	head := strings.TrimLeft(text, " \t\r\n")
	switch {
	case strings.HasPrefix(head, "["):
		return FormatASS
	case strings.HasPrefix(head, "WEBVTT"):
		return FormatVTT
	default:
		return FormatSRT
	}
}

// decodes UTF-8/UTF-16 with BOM detection; BOM-less invalid UTF-8 is
// treated as Windows-1252, the usual encoding of legacy scripts
func decodeText(data []byte) (string, error) {
	hasBOM := bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF})

	if !hasBOM && !utf8.Valid(data) {
		out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return "", fmt.Errorf("failed to decode subtitle text: %w", err)
		}
		return string(out), nil
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("failed to decode subtitle text: %w", err)
	}
	return string(out), nil
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	case ".ass", ".ssa":
		return FormatASS
	default:
		return FormatSRT
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatSRT:
		return ".srt"
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}
