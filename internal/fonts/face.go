package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/sfnt"
)

// returned when data parses but yields no usable face
var ErrNoFaces = errors.New("no font faces found")

// one face of a font file or collection
type Face struct {
	Family         string
	Typographic    string
	Subfamily      string
	FullName       string
	PostScriptName string
	Bold           bool
	Italic         bool
	// registration name or file path
	Source string
	Index  int

	font *sfnt.Font
}

// Font returns the parsed sfnt font.
func (f *Face) Font() *sfnt.Font {
	return f.font
}

// Names lists every name the face answers to, lowercased.
func (f *Face) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, n := range []string{f.Family, f.Typographic, f.FullName, f.PostScriptName} {
		n = normalizeName(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

// ParseFaces reads every face from TTF, OTF, TTC or OTC data.
func ParseFaces(source string, data []byte) ([]*Face, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("font %q: %w", source, ErrNoFaces)
	}

	collection, err := sfnt.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %q: %w", source, err)
	}

	var buf sfnt.Buffer
	faces := make([]*Face, 0, collection.NumFonts())
	for i := 0; i < collection.NumFonts(); i++ {
		f, err := collection.Font(i)
		if err != nil {
			return nil, fmt.Errorf("failed to load face %d of %q: %w", i, source, err)
		}
		face := &Face{
			Family:         fontName(f, &buf, sfnt.NameIDFamily),
			Typographic:    fontName(f, &buf, sfnt.NameIDTypographicFamily),
			Subfamily:      fontName(f, &buf, sfnt.NameIDSubfamily),
			FullName:       fontName(f, &buf, sfnt.NameIDFull),
			PostScriptName: fontName(f, &buf, sfnt.NameIDPostScript),
			Source:         source,
			Index:          i,
			font:           f,
		}
		face.Bold, face.Italic = styleFromSubfamily(face.Subfamily)
		if face.Family == "" {
			face.Family = face.Typographic
		}
		faces = append(faces, face)
	}

	if len(faces) == 0 {
		return nil, fmt.Errorf("font %q: %w", source, ErrNoFaces)
	}

	return faces, nil
}

// FamilyName returns the family name of the first face in a font file.
func FamilyName(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read font file: %w", err)
	}

	faces, err := ParseFaces(path, data)
	if err != nil {
		return "", err
	}

	if faces[0].Family == "" {
		return "", fmt.Errorf("font %q has no family name: %w", path, ErrNoFaces)
	}

	return faces[0].Family, nil
}

func fontName(f *sfnt.Font, buf *sfnt.Buffer, id sfnt.NameID) string {
	name, err := f.Name(buf, id)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}

func styleFromSubfamily(sub string) (bold, italic bool) {
	sub = strings.ToLower(sub)
	bold = strings.Contains(sub, "bold") ||
		strings.Contains(sub, "black") ||
		strings.Contains(sub, "heavy")
	italic = strings.Contains(sub, "italic") || strings.Contains(sub, "oblique")
	return bold, italic
}

// case-insensitive key; '@' marks vertical variants in ASS font names
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
