package render

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font/sfnt"

	"github.com/mgpai22/subrender/internal/fonts"
	"github.com/mgpai22/subrender/internal/logging"
	"github.com/mgpai22/subrender/internal/subtitle"
)

// ErrNotInitialized is returned by Render before a track is loaded.
var ErrNotInitialized = errors.New("renderer is not initialized")

const defaultCacheSize = 256

// Renderer turns a subtitle track into per-frame bitmaps. All methods are
// safe for concurrent use.
type Renderer struct {
	mu sync.Mutex

	lib    *fonts.Library
	track  *subtitle.Track
	cache  *lru.Cache[layoutKey, *eventLayout]
	prev   []Image
	logger *logging.Logger

	provider      fonts.Provider
	defaultFamily string
	cacheSize     int

	sfntBuf sfnt.Buffer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger routes renderer diagnostics to logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFontProvider resolves families that were not added in memory.
func WithFontProvider(p fonts.Provider) Option {
	return func(r *Renderer) {
		r.provider = p
	}
}

// WithDefaultFamily sets the family used when a style's font is missing.
func WithDefaultFamily(family string) Option {
	return func(r *Renderer) {
		r.defaultFamily = family
	}
}

// WithCacheSize bounds the number of laid-out events kept between frames.
func WithCacheSize(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.cacheSize = n
		}
	}
}

// New returns a renderer with no track loaded. Fonts may be added before
// the first Init.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		logger:    logging.Nop(),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	libOpts := []fonts.Option{fonts.WithLogger(r.logger)}
	if r.provider != nil {
		libOpts = append(libOpts, fonts.WithProvider(r.provider))
	}
	if r.defaultFamily != "" {
		libOpts = append(libOpts, fonts.WithDefaultFamily(r.defaultFamily))
	}
	r.lib = fonts.NewLibrary(libOpts...)
	cache, err := lru.New[layoutKey, *eventLayout](r.cacheSize)
	if err != nil {
		// only a non-positive size fails and WithCacheSize rejects those
		panic(err)
	}
	r.cache = cache
	return r
}

// Init parses a subtitle track and makes it current. Fonts embedded in the
// track are registered; fonts added earlier are kept.
func (r *Renderer) Init(data []byte) error {
	track, err := subtitle.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range track.Fonts {
		if _, err := r.lib.Add(f.Name, f.Data); err != nil {
			r.logger.Warnw("Skipping embedded font", "name", f.Name, "error", err)
		}
	}

	r.track = track
	r.cache.Purge()
	r.prev = nil

	r.logger.Debugw("Track loaded",
		"format", track.Format,
		"styles", len(track.Styles),
		"events", len(track.Events),
		"fonts", len(track.Fonts),
		"playres", fmt.Sprintf("%dx%d", track.Info.PlayResX, track.Info.PlayResY),
	)
	return nil
}

// AddFont registers font data under name. Events laid out with an older
// font set are dropped from the cache.
func (r *Renderer) AddFont(name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lib.Add(name, data); err != nil {
		return fmt.Errorf("failed to add font %q: %w", name, err)
	}
	r.cache.Purge()
	return nil
}

// AddMemoryFont is AddFont for callers that hold the font in memory.
func (r *Renderer) AddMemoryFont(name string, data []byte) error {
	return r.AddFont(name, data)
}

// GetFontFamilyName reads the family name of the font at path. ok is false
// when the file is unreadable or not a font.
func (r *Renderer) GetFontFamilyName(path string) (string, bool) {
	name, err := fonts.FamilyName(path)
	if err != nil {
		r.logger.Debugw("Failed to read font family", "path", path, "error", err)
		return "", false
	}
	return name, true
}

// Render returns the images making up the frame at t, back to front.
func (r *Renderer) Render(t time.Duration, width, height int) ([]Image, error) {
	imgs, _, err := r.RenderDetect(t, width, height)
	return imgs, err
}

// RenderDetect is Render plus how the frame differs from the previous one.
func (r *Renderer) RenderDetect(t time.Duration, width, height int) ([]Image, Change, error) {
	if width <= 0 || height <= 0 {
		return nil, ChangeNone, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.track == nil {
		return nil, ChangeNone, ErrNotInitialized
	}

	sc := newFrameScale(r.track.Info, width, height)
	frame := image.Rect(0, 0, width, height)
	reverse := strings.EqualFold(r.track.Info.Collisions, "Reverse")

	type placed struct {
		ev     subtitle.Event
		el     *eventLayout
		origin image.Point
	}
	var visible []placed
	for _, ev := range r.track.Active(t) {
		key := layoutKey{event: ev.ReadOrder, width: width, height: height}
		el, ok := r.cache.Get(key)
		if !ok {
			el = r.layoutEvent(ev, sc, width)
			r.cache.Add(key, el)
		}
		if len(el.layers) == 0 {
			continue
		}
		visible = append(visible, placed{ev: ev, el: el, origin: el.origin(ev, t, sc, frame)})
	}

	// normal collisions keep earlier events at the edge; reverse gives the
	// edge to the newest event and pushes earlier ones away from it
	var stack placer
	for i := range visible {
		p := &visible[i]
		if reverse {
			p = &visible[len(visible)-1-i]
		}
		if p.el.collides() {
			p.origin = stack.place(p.ev.Layer, p.el.valign, p.el.bounds(p.origin))
		}
	}

	imgs := make([]Image, 0)
	for _, p := range visible {
		fade := p.el.fade(p.ev, t)
		for _, l := range p.el.layers {
			c := l.color.NRGBA()
			c.A = uint8(float64(c.A)*fade + 0.5)
			if c.A == 0 {
				continue
			}
			imgs = append(imgs, Image{
				Type:   l.typ,
				X:      p.origin.X + l.offset.X,
				Y:      p.origin.Y + l.offset.Y,
				Bitmap: l.bitmap,
				Color:  c,
				Layer:  p.ev.Layer,
				Event:  p.ev.ReadOrder,
			})
		}
	}

	change := detectChange(r.prev, imgs)
	// callers own the returned slice
	r.prev = slices.Clone(imgs)
	return imgs, change, nil
}

// Release drops the track, every font and all cached layouts. The renderer
// can be initialized again afterwards.
func (r *Renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.track = nil
	r.lib.Reset()
	r.cache.Purge()
	r.prev = nil
}

// Track returns the current track, or nil.
func (r *Renderer) Track() *subtitle.Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.track
}
