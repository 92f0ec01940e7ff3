package ffmpeg

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAssetForPlatform(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "ffmpeg-6.1-linux-64.zip", false},
		{"linux", "arm64", "ffmpeg-6.1-linux-arm-64.zip", false},
		{"darwin", "amd64", "ffmpeg-6.1-macos-64.zip", false},
		{"windows", "amd64", "ffmpeg-6.1-win-64.zip", false},
		{"plan9", "386", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := assetForPlatform(tt.goos, tt.goarch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, body := range files {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(body)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{
		"bin/ffmpeg" + executableSuffix():  "ffmpeg-binary",
		"bin/ffprobe" + executableSuffix(): "ffprobe-binary",
		"README.txt":                       "ignored",
	})

	install := filepath.Join(dir, "install")
	if err := extractArchive(archive, install); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}

	ffmpegPath := filepath.Join(install, "ffmpeg"+executableSuffix())
	ffprobePath := filepath.Join(install, "ffprobe"+executableSuffix())
	if !binariesExist(ffmpegPath, ffprobePath) {
		t.Fatalf("binaries not extracted")
	}
	data, err := os.ReadFile(ffmpegPath)
	if err != nil || string(data) != "ffmpeg-binary" {
		t.Errorf("unexpected ffmpeg contents %q, %v", data, err)
	}
}

func TestExtractArchiveMissingBinary(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{"ffmpeg": "only one"})

	err := extractArchive(archive, filepath.Join(dir, "install"))
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected missing binaries error, got %v", err)
	}
}

func TestBinaryNames(t *testing.T) {
	if !isFFmpegBinary("FFMPEG.EXE") || isFFmpegBinary("ffprobe") {
		t.Errorf("isFFmpegBinary misclassified names")
	}
	if !isFFprobeBinary("ffprobe") || isFFprobeBinary("ffmpeg") {
		t.Errorf("isFFprobeBinary misclassified names")
	}
	if fileExists(t.TempDir()) {
		t.Errorf("directories are not binaries")
	}
}
