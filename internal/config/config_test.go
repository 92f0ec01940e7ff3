package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMerge(t *testing.T) {
	base := Default()

	t.Run("render overrides", func(t *testing.T) {
		override := Config{}
		override.Render.Width = 1280
		override.Render.Background = "#000000FF"
		result := merge(base, override)
		if result.Render.Width != 1280 {
			t.Errorf("Width = %d, want 1280", result.Render.Width)
		}
		if result.Render.Height != base.Render.Height {
			t.Errorf("Height lost: got %d", result.Render.Height)
		}
		if result.Render.Background != "#000000FF" {
			t.Errorf("Background = %q", result.Render.Background)
		}
	})

	t.Run("empty override keeps base", func(t *testing.T) {
		result := merge(base, Config{})
		if result.Render.CacheSize != base.Render.CacheSize {
			t.Errorf("CacheSize = %d, want %d", result.Render.CacheSize, base.Render.CacheSize)
		}
		if result.Fonts.IndexPath != base.Fonts.IndexPath {
			t.Errorf("IndexPath = %q, want %q", result.Fonts.IndexPath, base.Fonts.IndexPath)
		}
	})

	t.Run("font dirs replaced", func(t *testing.T) {
		b := base
		b.Fonts.Dirs = []string{"/a"}
		override := Config{}
		override.Fonts.Dirs = []string{"/b", "/c"}
		result := merge(b, override)
		if len(result.Fonts.Dirs) != 2 || result.Fonts.Dirs[0] != "/b" {
			t.Errorf("Dirs = %v", result.Fonts.Dirs)
		}
	})
}

func TestResolveFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `fonts:
  default_family: Noto Sans
  dirs: [/usr/share/fonts]
render:
  width: 640
  height: 360
ffmpeg:
  path: /opt/ffmpeg
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv(configEnv, path)
	t.Setenv("SUBRENDER_FFMPEG_PATH", "")
	t.Setenv("SUBRENDER_DEFAULT_FONT", "")
	t.Setenv("SUBRENDER_FONT_DIRS", "")

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Fonts.DefaultFamily != "Noto Sans" {
		t.Errorf("DefaultFamily = %q", cfg.Fonts.DefaultFamily)
	}
	if cfg.Render.Width != 640 || cfg.Render.Height != 360 {
		t.Errorf("frame = %dx%d, want 640x360", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.FFmpeg.Path != "/opt/ffmpeg" {
		t.Errorf("FFmpeg.Path = %q", cfg.FFmpeg.Path)
	}
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv(configEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Resolve(); err == nil {
		t.Fatal("expected error for missing config file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("render:\n  cache_size: 10\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(configEnv, path)
	t.Setenv("SUBRENDER_CACHE_SIZE", "42")
	t.Setenv("SUBRENDER_DEFAULT_FONT", "Arial")
	t.Setenv("SUBRENDER_FONT_DIRS", "/x"+string(os.PathListSeparator)+"/y")

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Render.CacheSize != 42 {
		t.Errorf("CacheSize = %d, want 42", cfg.Render.CacheSize)
	}
	if cfg.Fonts.DefaultFamily != "Arial" {
		t.Errorf("DefaultFamily = %q", cfg.Fonts.DefaultFamily)
	}
	if len(cfg.Fonts.Dirs) != 2 || cfg.Fonts.Dirs[1] != "/y" {
		t.Errorf("Dirs = %v", cfg.Fonts.Dirs)
	}
}
