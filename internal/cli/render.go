package cli

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subrender/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [subtitle_file]",
	Short: "Render one subtitle frame to a PNG",
	Long: `Render the subtitles visible at a given time into a PNG image.

The time accepts Go durations (1m2.5s) or subtitle timestamps (0:01:02.50).
Fonts passed with --font are registered before rendering; families not
found there are resolved through the font index and finally fall back to
the built-in Go fonts.

Examples:
  subrender render episode.ass --time 0:04:12.30
  subrender render episode.ass -t 90s --width 1280 --height 720 -o frame.png
  subrender render episode.ass -t 5s --font fonts/Title.otf --images parts/`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().
		StringP("time", "t", "0", "Frame time (e.g., 90s, 1m30s, 0:01:30.00)")
	renderCmd.Flags().
		Int("width", 0, "Frame width in pixels (default from config)")
	renderCmd.Flags().
		Int("height", 0, "Frame height in pixels (default from config)")
	renderCmd.Flags().
		StringSlice("font", nil, "Font file to register (repeatable)")
	renderCmd.Flags().
		String("background", "", "Background colour as #RRGGBB or #RRGGBBAA (default from config)")
	renderCmd.Flags().
		String("images", "", "Also write every image of the frame as a separate PNG into this directory")
}

func runRender(cmd *cobra.Command, args []string) error {
	trackPath := args[0]

	timeStr, _ := cmd.Flags().GetString("time")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	fontPaths, _ := cmd.Flags().GetStringSlice("font")
	background, _ := cmd.Flags().GetString("background")
	imagesDir, _ := cmd.Flags().GetString("images")
	outputPath, _ := cmd.Flags().GetString("output")

	at, err := parseFrameTime(timeStr)
	if err != nil {
		return err
	}
	if width == 0 {
		width = cfg.Render.Width
	}
	if height == 0 {
		height = cfg.Render.Height
	}
	if background == "" {
		background = cfg.Render.Background
	}
	bg, err := parseHexColor(background)
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(trackPath, filepath.Ext(trackPath)) + ".png"
	}

	data, err := os.ReadFile(trackPath)
	if err != nil {
		return fmt.Errorf("failed to read subtitle file: %w", err)
	}

	r, closeIndex, err := newRenderer()
	if err != nil {
		return err
	}
	defer closeIndex()
	defer r.Release()

	for _, path := range fontPaths {
		fontData, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read font: %w", err)
		}
		if err := r.AddFont(filepath.Base(path), fontData); err != nil {
			return err
		}
	}

	if err := r.Init(data); err != nil {
		return err
	}

	logger.Infow("Rendering frame",
		"track", trackPath,
		"time", at,
		"size", fmt.Sprintf("%dx%d", width, height),
		"fonts", len(fontPaths),
	)

	imgs, err := r.Render(at, width, height)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	frame := render.Frame(width, height, bg, imgs)
	if err := writePNG(outputPath, frame); err != nil {
		return err
	}

	if imagesDir != "" {
		if err := writeImages(imagesDir, imgs); err != nil {
			return err
		}
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Rendered %d images to %s\n", len(imgs), absOutput)

	return nil
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func writeImages(dir string, imgs []render.Image) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	for i, img := range imgs {
		data, err := img.PNG()
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%03d-%s-%d-%d.png", i, img.Type, img.X, img.Y)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
	}
	return nil
}

// parseFrameTime accepts Go durations and H:MM:SS(.cc) timestamps.
func parseFrameTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		total = total*60 + v
	}
	return time.Duration(total * float64(time.Second)), nil
}

// parseHexColor reads #RRGGBB or #RRGGBBAA.
func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: use #RRGGBB or #RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xFF
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
