package cli

import (
	"bytes"
	"image/color"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/mgpai22/subrender/internal/media"
	"github.com/mgpai22/subrender/internal/subtitle"
)

func TestParseFrameTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"0", 0, false},
		{"90s", 90 * time.Second, false},
		{"1m2.5s", time.Minute + 2500*time.Millisecond, false},
		{"1500", 1500 * time.Millisecond, false},
		{"0:01:02.50", time.Minute + 2500*time.Millisecond, false},
		{"01:30", 90 * time.Second, false},
		{" 1:00:00.00 ", time.Hour, false},
		{"abc", 0, true},
		{"1:2:3:4", 0, true},
		{"0:-1:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFrameTime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFrameTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseFrameTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#000000", color.NRGBA{A: 0xFF}, false},
		{"#FF8000", color.NRGBA{R: 0xFF, G: 0x80, A: 0xFF}, false},
		{"10203040", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}, false},
		{"#00000000", color.NRGBA{}, false},
		{"#FFF", color.NRGBA{}, true},
		{"#GGGGGG", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHexColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHexColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseHexColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPickStream(t *testing.T) {
	info := &media.Info{
		Path: "episode.mkv",
		Subtitles: []media.Stream{
			{Index: 2, Codec: "hdmv_pgs_subtitle"},
			{Index: 3, Codec: "ass"},
			{Index: 4, Codec: "subrip", Default: true},
		},
	}

	tests := []struct {
		index   int
		want    int
		wantErr bool
	}{
		{-1, 4, false},
		{3, 3, false},
		{2, 0, true},
		{9, 0, true},
	}

	for _, tt := range tests {
		got, err := pickStream(info, tt.index)
		if (err != nil) != tt.wantErr {
			t.Fatalf("pickStream(%d) error = %v, wantErr %v", tt.index, err, tt.wantErr)
		}
		if !tt.wantErr && got.Index != tt.want {
			t.Errorf("pickStream(%d) = %d, want %d", tt.index, got.Index, tt.want)
		}
	}

	if _, err := pickStream(&media.Info{}, -1); err == nil {
		t.Errorf("expected error without text streams")
	}
}

func TestPrintTrackInfo(t *testing.T) {
	style := subtitle.DefaultStyle()
	style.Name = "Sign"
	track := &subtitle.Track{
		Format: subtitle.FormatASS,
		Info:   subtitle.ScriptInfo{Title: "Episode 1", PlayResX: 1920, PlayResY: 1080},
		Styles: []subtitle.Style{style},
		Events: []subtitle.Event{
			{Start: time.Second, End: 3 * time.Second, Style: "Sign", Text: "hello"},
		},
		Fonts: []subtitle.EmbeddedFont{
			{Name: "go.ttf", Data: goregular.TTF},
			{Name: "broken.ttf", Data: []byte("nope")},
		},
	}

	var buf bytes.Buffer
	if err := printTrackInfo(&buf, track); err != nil {
		t.Fatalf("printTrackInfo: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Episode 1",
		"1920x1080",
		"Events:      1",
		"Sign",
		"go.ttf",
		"Go Regular",
		"broken.ttf (4 bytes): unreadable",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLicenseNotices(t *testing.T) {
	for _, want := range []string{
		"Bigelow & Holmes",
		"FFmpeg",
		"General Public License",
		"ffbinaries",
	} {
		if !strings.Contains(licenseText, want) {
			t.Errorf("license text missing %q", want)
		}
	}
}
