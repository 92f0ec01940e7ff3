package ffmpeg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	ffmpegReleaseVersion = "6.1"
	ffmpegReleaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"
)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

var (
	ensureOnce sync.Once
	ensureErr  error
	ensurePath BinaryPaths

	overrideMu sync.Mutex
	override   BinaryPaths
)

// Configure pins binary paths ahead of discovery. Empty fields fall back to
// SUBRENDER_FFMPEG_PATH / SUBRENDER_FFPROBE_PATH, then PATH, then the cache.
// It has no effect once Ensure has run.
func Configure(paths BinaryPaths) {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	override = paths
}

// Ensure locates ffmpeg and ffprobe, extracting or downloading a bundle
// into the user cache when neither is installed.
func Ensure() (BinaryPaths, error) {
	ensureOnce.Do(func() {
		ensurePath, ensureErr = ensure()
	})
	return ensurePath, ensureErr
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

func ensure() (BinaryPaths, error) {
	overrideMu.Lock()
	paths := override
	overrideMu.Unlock()

	if paths.FFmpeg == "" {
		paths.FFmpeg = os.Getenv("SUBRENDER_FFMPEG_PATH")
	}
	if paths.FFprobe == "" {
		paths.FFprobe = os.Getenv("SUBRENDER_FFPROBE_PATH")
	}
	if paths.FFmpeg == "" {
		paths.FFmpeg, _ = exec.LookPath("ffmpeg")
	}
	if paths.FFprobe == "" {
		paths.FFprobe, _ = exec.LookPath("ffprobe")
	}
	if paths.complete() {
		return paths, nil
	}

	// a partial system install is not mixed with the bundle
	return installBundle(runtime.GOOS, runtime.GOARCH)
}

func (p BinaryPaths) complete() bool {
	return p.FFmpeg != "" && p.FFprobe != ""
}

// bundleDir is where a release bundle for the platform is unpacked.
func bundleDir(goos, goarch string) string {
	cacheDir, err := os.UserCacheDir()
	if err != nil || cacheDir == "" {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "subrender", "ffmpeg", ffmpegReleaseVersion, goos, goarch)
}

func installBundle(goos, goarch string) (BinaryPaths, error) {
	assetName, err := assetForPlatform(goos, goarch)
	if err != nil {
		return BinaryPaths{}, err
	}

	installDir := bundleDir(goos, goarch)
	paths := BinaryPaths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+executableSuffix()),
		FFprobe: filepath.Join(installDir, "ffprobe"+executableSuffix()),
	}
	if binariesExist(paths.FFmpeg, paths.FFprobe) {
		return paths, nil
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return BinaryPaths{}, fmt.Errorf("create ffmpeg cache dir: %w", err)
	}

	embedded, err := extractEmbedded(assetName, installDir)
	if err != nil {
		return BinaryPaths{}, err
	}
	if !embedded {
		if err := downloadAndExtract(assetName, installDir); err != nil {
			return BinaryPaths{}, err
		}
	}

	if !binariesExist(paths.FFmpeg, paths.FFprobe) {
		return BinaryPaths{}, errors.New("ffmpeg binaries not found after extraction")
	}
	if err := makeExecutable(paths.FFmpeg, paths.FFprobe); err != nil {
		return BinaryPaths{}, err
	}
	return paths, nil
}

func makeExecutable(paths ...string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	for _, p := range paths {
		if err := os.Chmod(p, 0o755); err != nil {
			return fmt.Errorf("chmod %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func assetForPlatform(goos, goarch string) (string, error) {
	var platform string
	switch goos + "/" + goarch {
	case "linux/amd64":
		platform = "linux-64"
	case "linux/arm64":
		platform = "linux-arm-64"
	case "darwin/amd64":
		platform = "macos-64"
	case "windows/amd64":
		platform = "win-64"
	default:
		return "", fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
	return fmt.Sprintf("ffmpeg-%s-%s.zip", ffmpegReleaseVersion, platform), nil
}

func downloadAndExtract(assetName, installDir string) error {
	url := fmt.Sprintf("%s/v%s/%s", ffmpegReleaseBaseURL, ffmpegReleaseVersion, assetName)
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}

	return extractArchiveFromReader(assetName, resp.Body, installDir)
}

func extractEmbedded(assetName, installDir string) (bool, error) {
	reader, ok, err := openEmbeddedAsset(assetName)
	if err != nil || !ok {
		return ok, err
	}
	defer func() { _ = reader.Close() }()

	return true, extractArchiveFromReader(assetName, reader, installDir)
}

// zip needs random access, so the stream is spooled to a temp file first
func extractArchiveFromReader(assetName string, reader io.Reader, installDir string) error {
	tmpFile, err := os.CreateTemp("", "subrender-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmpFile.Name()
	defer func() { _ = os.Remove(archivePath) }()

	_, copyErr := io.Copy(tmpFile, reader)
	closeErr := tmpFile.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	if err := extractArchive(archivePath, installDir); err != nil {
		return fmt.Errorf("extract %s: %w", assetName, err)
	}
	return nil
}

// extractArchive copies ffmpeg and ffprobe out of a release zip, wherever
// they sit inside it.
func extractArchive(archivePath, installDir string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	wanted := map[string]func(string) bool{
		"ffmpeg":  isFFmpegBinary,
		"ffprobe": isFFprobeBinary,
	}
	found := make(map[string]bool, len(wanted))

	for _, file := range zipReader.File {
		name := filepath.Base(file.Name)
		for binary, match := range wanted {
			if found[binary] || !match(name) {
				continue
			}
			dest := filepath.Join(installDir, binary+executableSuffix())
			if err := extractZipFile(file, dest); err != nil {
				return err
			}
			found[binary] = true
		}
	}

	for binary := range wanted {
		if !found[binary] {
			return fmt.Errorf("ffmpeg archive missing %s", binary)
		}
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create ffmpeg output dir: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	if _, err := io.Copy(out, reader); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	return out.Close()
}

func binariesExist(paths ...string) bool {
	for _, p := range paths {
		if !fileExists(p) {
			return false
		}
	}
	return true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func isFFmpegBinary(name string) bool {
	return strings.TrimSuffix(strings.ToLower(name), ".exe") == "ffmpeg"
}

func isFFprobeBinary(name string) bool {
	return strings.TrimSuffix(strings.ToLower(name), ".exe") == "ffprobe"
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
