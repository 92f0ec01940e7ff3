package fonts

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/mgpai22/subrender/internal/logging"
)

// face cache is dropped wholesale past this many entries
const maxCachedFaces = 512

// file location of a face, as returned by a Provider
type Location struct {
	Path  string
	Index int
}

// Provider resolves family names to font files on disk.
type Provider interface {
	Lookup(family string) ([]Location, error)
}

type faceKey struct {
	face *Face
	// size in 1/64 pixel
	size int
}

// Library holds registered fonts and hands out sized faces.
type Library struct {
	mu sync.RWMutex

	faces    []*Face
	byName   map[string][]*Face
	loaded   map[string]bool
	fallback []*Face
	cache    map[faceKey]font.Face

	provider      Provider
	defaultFamily string
	logger        *logging.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithProvider resolves unknown families through p.
func WithProvider(p Provider) Option {
	return func(l *Library) {
		l.provider = p
	}
}

// WithDefaultFamily sets the family tried before the built-in Go fonts.
func WithDefaultFamily(family string) Option {
	return func(l *Library) {
		l.defaultFamily = family
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLibrary returns a library holding only the built-in Go fonts.
func NewLibrary(opts ...Option) *Library {
	l := &Library{
		byName: make(map[string][]*Face),
		loaded: make(map[string]bool),
		cache:  make(map[faceKey]font.Face),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.fallback = builtinFaces()
	return l
}

func builtinFaces() []*Face {
	var faces []*Face
	for name, data := range map[string][]byte{
		"Go-Regular.ttf":    goregular.TTF,
		"Go-Bold.ttf":       gobold.TTF,
		"Go-Italic.ttf":     goitalic.TTF,
		"Go-BoldItalic.ttf": gobolditalic.TTF,
	} {
		parsed, err := ParseFaces(name, data)
		if err != nil {
			continue
		}
		faces = append(faces, parsed...)
	}
	return faces
}

// Add registers every face found in data. name is indexed as an extra
// lookup key, so a font can be addressed by the name it was attached under.
func (l *Library) Add(name string, data []byte) ([]*Face, error) {
	faces, err := ParseFaces(name, data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.register(faces, name)

	for _, f := range faces {
		l.logger.Debugw("Registered font face",
			"source", name,
			"family", f.Family,
			"subfamily", f.Subfamily,
		)
	}

	return faces, nil
}

// AddFile registers the faces of a font file.
func (l *Library) AddFile(path string) ([]*Face, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	return l.Add(path, data)
}

// caller holds l.mu
func (l *Library) register(faces []*Face, alias string) {
	for _, f := range faces {
		l.faces = append(l.faces, f)
		for _, n := range f.Names() {
			l.byName[n] = append(l.byName[n], f)
		}
		if key := normalizeName(alias); key != "" {
			l.byName[key] = append(l.byName[key], f)
			if stem := normalizeName(trimExt(alias)); stem != key {
				l.byName[stem] = append(l.byName[stem], f)
			}
		}
	}
}

// Len reports the number of registered faces.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.faces)
}

// Faces returns a snapshot of the registered faces.
func (l *Library) Faces() []*Face {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Face(nil), l.faces...)
}

// Match picks the best face for a family and style. Registered fonts win,
// then the provider, then the default family, then the built-in Go fonts.
// It never returns nil.
func (l *Library) Match(family string, bold, italic bool) *Face {
	if f := l.lookup(family, bold, italic); f != nil {
		return f
	}

	if l.loadFromProvider(family) {
		if f := l.lookup(family, bold, italic); f != nil {
			return f
		}
	}

	if l.defaultFamily != "" && normalizeName(l.defaultFamily) != normalizeName(family) {
		if f := l.lookup(l.defaultFamily, bold, italic); f != nil {
			return f
		}
		if l.loadFromProvider(l.defaultFamily) {
			if f := l.lookup(l.defaultFamily, bold, italic); f != nil {
				return f
			}
		}
	}

	return bestFace(l.fallback, bold, italic)
}

// Fallbacks returns every registered face followed by the built-in ones,
// each group ordered by closeness to the style, for glyphs the matched face
// lacks. Registration order breaks ties.
func (l *Library) Fallbacks(bold, italic bool) []*Face {
	l.mu.RLock()
	faces := make([]*Face, 0, len(l.faces)+len(l.fallback))
	faces = append(faces, l.faces...)
	l.mu.RUnlock()

	byStyle := func(a, b *Face) int {
		return styleDistance(a, bold, italic) - styleDistance(b, bold, italic)
	}
	slices.SortStableFunc(faces, byStyle)

	builtin := slices.Clone(l.fallback)
	slices.SortStableFunc(builtin, byStyle)
	return append(faces, builtin...)
}

func (l *Library) lookup(family string, bold, italic bool) *Face {
	key := normalizeName(family)
	if key == "" {
		return nil
	}
	l.mu.RLock()
	candidates := l.byName[key]
	l.mu.RUnlock()
	return bestFace(candidates, bold, italic)
}

func (l *Library) loadFromProvider(family string) bool {
	if l.provider == nil || normalizeName(family) == "" {
		return false
	}

	locations, err := l.provider.Lookup(family)
	if err != nil {
		l.logger.Warnw("Font provider lookup failed", "family", family, "error", err)
		return false
	}

	added := false
	for _, loc := range locations {
		l.mu.RLock()
		done := l.loaded[loc.Path]
		l.mu.RUnlock()
		if done {
			continue
		}

		data, err := os.ReadFile(loc.Path)
		if err != nil {
			l.logger.Warnw("Failed to read indexed font", "path", loc.Path, "error", err)
			continue
		}
		faces, err := ParseFaces(loc.Path, data)
		if err != nil {
			l.logger.Warnw("Failed to parse indexed font", "path", loc.Path, "error", err)
			continue
		}

		l.mu.Lock()
		l.loaded[loc.Path] = true
		l.register(faces, "")
		l.mu.Unlock()
		added = true

		l.logger.Debugw("Loaded font from index", "family", family, "path", loc.Path)
	}
	return added
}

// SizedFace returns a cached font.Face for f at size pixels.
func (l *Library) SizedFace(f *Face, size float64) (font.Face, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("invalid font size %v", size)
	}

	key := faceKey{face: f, size: int(math.Round(size * 64))}

	l.mu.RLock()
	cached, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    float64(key.size) / 64,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face for %q: %w", f.Family, err)
	}

	l.mu.Lock()
	if len(l.cache) >= maxCachedFaces {
		l.cache = make(map[faceKey]font.Face)
	}
	l.cache[key] = face
	l.mu.Unlock()

	return face, nil
}

// Reset drops every registered font and cached face.
func (l *Library) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.faces = nil
	l.byName = make(map[string][]*Face)
	l.loaded = make(map[string]bool)
	l.cache = make(map[faceKey]font.Face)
}

func bestFace(candidates []*Face, bold, italic bool) *Face {
	var best *Face
	bestScore := math.MaxInt
	for _, f := range candidates {
		if score := styleDistance(f, bold, italic); score < bestScore {
			best, bestScore = f, score
		}
	}
	return best
}

// italic mismatches cost more than weight ones since weight can be faked
func styleDistance(f *Face, bold, italic bool) int {
	d := 0
	if f.Italic != italic {
		d += 2
	}
	if f.Bold != bold {
		d++
	}
	return d
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
