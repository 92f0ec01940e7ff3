package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const configEnv = "SUBRENDER_CONFIG"

// Config captures font, rendering and ffmpeg settings for subrender.
type Config struct {
	Fonts  FontsConfig  `yaml:"fonts"`
	Render RenderConfig `yaml:"render"`
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
}

// FontsConfig controls where fonts are looked up when a track names a
// family that was not registered explicitly.
type FontsConfig struct {
	// DefaultFamily is used when a style names no family or an unknown one.
	DefaultFamily string `yaml:"default_family"`
	// Dirs are scanned by "fonts index".
	Dirs []string `yaml:"dirs"`
	// IndexPath is the SQLite font index location. Empty disables the index.
	IndexPath string `yaml:"index_path"`
}

// RenderConfig holds frame defaults for the CLI.
type RenderConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
	CacheSize  int    `yaml:"cache_size"`
}

// FFmpegConfig pins ffmpeg/ffprobe binaries.
type FFmpegConfig struct {
	Path      string `yaml:"path"`
	ProbePath string `yaml:"probe_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	indexPath := ""
	if cacheDir, err := os.UserCacheDir(); err == nil && cacheDir != "" {
		indexPath = filepath.Join(cacheDir, "subrender", "fonts.db")
	}

	return Config{
		Fonts: FontsConfig{
			IndexPath: indexPath,
		},
		Render: RenderConfig{
			Width:      1920,
			Height:     1080,
			Background: "#00000000",
			CacheSize:  256,
		},
	}
}

// DefaultPath is the config file used when SUBRENDER_CONFIG is unset.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "subrender", "config.yaml")
}

// Resolve loads configuration from file and environment variables.
func Resolve() (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv(configEnv))
	if path == "" {
		if p := DefaultPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	} else if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("provided %s file %q not found", configEnv, path)
	}

	if path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = merge(cfg, loaded)
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %q: %w", path, err)
	}

	return cfg, nil
}

func merge(base, override Config) Config {
	result := base

	if override.Fonts.DefaultFamily != "" {
		result.Fonts.DefaultFamily = override.Fonts.DefaultFamily
	}
	if len(override.Fonts.Dirs) > 0 {
		result.Fonts.Dirs = append([]string(nil), override.Fonts.Dirs...)
	}
	if override.Fonts.IndexPath != "" {
		result.Fonts.IndexPath = expandHome(override.Fonts.IndexPath)
	}

	if override.Render.Width > 0 {
		result.Render.Width = override.Render.Width
	}
	if override.Render.Height > 0 {
		result.Render.Height = override.Render.Height
	}
	if override.Render.Background != "" {
		result.Render.Background = override.Render.Background
	}
	if override.Render.CacheSize > 0 {
		result.Render.CacheSize = override.Render.CacheSize
	}

	if override.FFmpeg.Path != "" {
		result.FFmpeg.Path = override.FFmpeg.Path
	}
	if override.FFmpeg.ProbePath != "" {
		result.FFmpeg.ProbePath = override.FFmpeg.ProbePath
	}

	return result
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("SUBRENDER_FONT_DIRS")); v != "" {
		var dirs []string
		for _, d := range filepath.SplitList(v) {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, expandHome(d))
			}
		}
		cfg.Fonts.Dirs = dirs
	}
	if v := strings.TrimSpace(os.Getenv("SUBRENDER_FONT_INDEX")); v != "" {
		cfg.Fonts.IndexPath = expandHome(v)
	}
	if v := strings.TrimSpace(os.Getenv("SUBRENDER_DEFAULT_FONT")); v != "" {
		cfg.Fonts.DefaultFamily = v
	}
	if v := strings.TrimSpace(os.Getenv("SUBRENDER_CACHE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Render.CacheSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SUBRENDER_FFMPEG_PATH")); v != "" {
		cfg.FFmpeg.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("SUBRENDER_FFPROBE_PATH")); v != "" {
		cfg.FFmpeg.ProbePath = v
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
