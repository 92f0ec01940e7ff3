package fonts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

type stubProvider struct {
	locations map[string][]Location
	calls     int
}

func (p *stubProvider) Lookup(family string) ([]Location, error) {
	p.calls++
	return p.locations[normalizeName(family)], nil
}

func TestFamilyName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatalf("failed to write font: %v", err)
	}

	name, err := FamilyName(path)
	if err != nil {
		t.Fatalf("FamilyName: %v", err)
	}
	if name != "Go" {
		t.Errorf("FamilyName = %q, want %q", name, "Go")
	}

	if _, err := FamilyName(filepath.Join(dir, "missing.ttf")); err == nil {
		t.Errorf("expected error for missing file")
	}

	junk := filepath.Join(dir, "junk.ttf")
	if err := os.WriteFile(junk, []byte("not a font"), 0o644); err != nil {
		t.Fatalf("failed to write junk: %v", err)
	}
	if _, err := FamilyName(junk); err == nil {
		t.Errorf("expected error for invalid font")
	}
}

func TestParseFaces(t *testing.T) {
	faces, err := ParseFaces("bold.ttf", gobold.TTF)
	if err != nil {
		t.Fatalf("ParseFaces: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(faces))
	}
	f := faces[0]
	if f.Family != "Go" || !f.Bold || f.Italic {
		t.Errorf("unexpected face %+v", f)
	}
	if f.Font() == nil {
		t.Errorf("expected parsed font")
	}

	if _, err := ParseFaces("empty", nil); !errors.Is(err, ErrNoFaces) {
		t.Errorf("expected ErrNoFaces, got %v", err)
	}
}

func TestLibraryMatch(t *testing.T) {
	lib := NewLibrary()

	// nothing registered: built-in fallback, styled
	f := lib.Match("Arial", true, false)
	if f == nil || f.Family != "Go" || !f.Bold {
		t.Fatalf("expected bold Go fallback, got %+v", f)
	}

	if _, err := lib.Add("mono.ttf", gomono.TTF); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if lib.Len() != 1 {
		t.Errorf("Len = %d, want 1", lib.Len())
	}

	tests := []struct {
		family string
		want   string
	}{
		{"Go Mono", "Go Mono"},
		{"go mono", "Go Mono"},
		{"@Go Mono", "Go Mono"},
		{"mono.ttf", "Go Mono"},
		{"mono", "Go Mono"},
		{"Unknown", "Go"},
	}
	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			if got := lib.Match(tt.family, false, false); got.Family != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.family, got.Family, tt.want)
			}
		})
	}

	lib.Reset()
	if lib.Len() != 0 {
		t.Errorf("Len after Reset = %d", lib.Len())
	}
	if got := lib.Match("Go Mono", false, false); got.Family != "Go" {
		t.Errorf("Reset should drop registered fonts, matched %q", got.Family)
	}
}

func TestLibraryDefaultFamily(t *testing.T) {
	lib := NewLibrary(WithDefaultFamily("Go Mono"))
	if _, err := lib.Add("mono.ttf", gomono.TTF); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := lib.Match("Missing Family", false, false); got.Family != "Go Mono" {
		t.Errorf("expected default family, got %q", got.Family)
	}
}

func TestLibraryProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mono.ttf")
	if err := os.WriteFile(path, gomono.TTF, 0o644); err != nil {
		t.Fatalf("failed to write font: %v", err)
	}

	provider := &stubProvider{locations: map[string][]Location{
		"go mono": {{Path: path}},
	}}
	lib := NewLibrary(WithProvider(provider))

	if got := lib.Match("Go Mono", false, false); got.Family != "Go Mono" {
		t.Fatalf("expected provider font, got %q", got.Family)
	}
	if got := lib.Match("Go Mono", true, false); got.Family != "Go Mono" {
		t.Errorf("second match should reuse loaded font, got %q", got.Family)
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}
}

func TestSizedFaceCache(t *testing.T) {
	lib := NewLibrary()
	f := lib.Match("Go", false, false)

	a, err := lib.SizedFace(f, 24)
	if err != nil {
		t.Fatalf("SizedFace: %v", err)
	}
	b, err := lib.SizedFace(f, 24)
	if err != nil {
		t.Fatalf("SizedFace: %v", err)
	}
	if a != b {
		t.Errorf("expected cached face to be reused")
	}

	if m := a.Metrics(); m.Ascent.Round() <= 0 {
		t.Errorf("unexpected ascent %v", m.Ascent)
	}

	if _, err := lib.SizedFace(f, 0); err == nil {
		t.Errorf("expected error for zero size")
	}
}

func TestFallbacksOrder(t *testing.T) {
	lib := NewLibrary()
	faces := lib.Fallbacks(false, true)
	if len(faces) != 4 {
		t.Fatalf("expected 4 built-in faces, got %d", len(faces))
	}
	if !faces[0].Italic || faces[0].Bold {
		t.Errorf("closest fallback should be regular italic, got %+v", faces[0])
	}
}

func TestFallbacksIncludeRegisteredFaces(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Add("bold.ttf", gobold.TTF); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := lib.Add("mono.ttf", gomono.TTF); err != nil {
		t.Fatalf("Add: %v", err)
	}

	faces := lib.Fallbacks(false, false)
	if len(faces) != 6 {
		t.Fatalf("expected 2 registered and 4 built-in faces, got %d", len(faces))
	}
	if faces[0].Family != "Go Mono" || faces[1].Family != "Go" || !faces[1].Bold {
		t.Errorf("registered faces should come first, closest style first: %s, %s", faces[0].FullName, faces[1].FullName)
	}
	if faces[2].Bold || faces[2].Italic {
		t.Errorf("built-in faces should follow, regular first: %s", faces[2].FullName)
	}

	lib.Reset()
	if n := len(lib.Fallbacks(false, false)); n != 4 {
		t.Errorf("Reset should leave only built-in faces, got %d", n)
	}
}
