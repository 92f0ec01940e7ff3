package render

import (
	"sync"
	"time"
)

var (
	defaultOnce     sync.Once
	defaultRenderer *Renderer
)

// Default is the process-wide renderer behind the package-level functions.
func Default() *Renderer {
	defaultOnce.Do(func() {
		defaultRenderer = New()
	})
	return defaultRenderer
}

// Init loads a track into the default renderer.
func Init(data []byte) error {
	return Default().Init(data)
}

// AddFont registers a font with the default renderer.
func AddFont(name string, data []byte) error {
	return Default().AddFont(name, data)
}

// AddMemoryFont registers an in-memory font with the default renderer.
func AddMemoryFont(name string, data []byte) error {
	return Default().AddMemoryFont(name, data)
}

// Render renders a frame with the default renderer.
func Render(t time.Duration, width, height int) ([]Image, error) {
	return Default().Render(t, width, height)
}

// GetFontFamilyName reads the family name of a font file.
func GetFontFamilyName(path string) (string, bool) {
	return Default().GetFontFamilyName(path)
}

// Release resets the default renderer.
func Release() {
	Default().Release()
}
