// Package media pulls subtitle tracks and attached fonts out of container
// files so they can be fed to the renderer.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/subrender/internal/ffmpeg"
)

// subtitle stream of a container
type Stream struct {
	Index    int
	Codec    string
	Language string
	Title    string
	Default  bool
	Forced   bool
}

// attachment stream, usually a font
type Attachment struct {
	Index    int
	Filename string
	MimeType string
}

// IsFont reports whether the attachment looks like a font file.
func (a Attachment) IsFont() bool {
	mime := strings.ToLower(a.MimeType)
	if strings.Contains(mime, "font") || strings.Contains(mime, "truetype") || strings.Contains(mime, "opentype") {
		return true
	}
	switch strings.ToLower(filepath.Ext(a.Filename)) {
	case ".ttf", ".otf", ".ttc", ".otc":
		return true
	}
	return false
}

// container information relevant to subtitle rendering
type Info struct {
	Path        string
	Duration    time.Duration
	Subtitles   []Stream
	Attachments []Attachment
}

// JSON output from ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		Index       int               `json:"index"`
		CodecType   string            `json:"codec_type"`
		CodecName   string            `json:"codec_name"`
		Tags        map[string]string `json:"tags"`
		Disposition map[string]int    `json:"disposition"`
	} `json:"streams"`
}

// Probe lists the subtitle streams and attachments of a container.
func Probe(ctx context.Context, path string) (*Info, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("media file not found: %s", path)
	}

	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbe(path, out.Bytes())
}

func parseProbe(path string, data []byte) (*Info, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &Info{Path: path}
	if seconds, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(seconds * float64(time.Second))
	}

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "subtitle":
			info.Subtitles = append(info.Subtitles, Stream{
				Index:    s.Index,
				Codec:    s.CodecName,
				Language: tag(s.Tags, "language"),
				Title:    tag(s.Tags, "title"),
				Default:  s.Disposition["default"] == 1,
				Forced:   s.Disposition["forced"] == 1,
			})
		case "attachment":
			info.Attachments = append(info.Attachments, Attachment{
				Index:    s.Index,
				Filename: tag(s.Tags, "filename"),
				MimeType: tag(s.Tags, "mimetype"),
			})
		}
	}

	return info, nil
}

// tags keys vary in case between muxers
func tag(tags map[string]string, key string) string {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// SubtitleExtension maps a subtitle codec to the file extension it is
// extracted to.
func SubtitleExtension(codec string) (string, bool) {
	switch strings.ToLower(codec) {
	case "ass", "ssa":
		return ".ass", true
	case "subrip", "srt", "mov_text", "text":
		return ".srt", true
	case "webvtt":
		return ".vtt", true
	default:
		return "", false
	}
}

// DefaultSubtitle picks the stream a player would show first: a stream
// marked default, else the first text stream.
func (i *Info) DefaultSubtitle() (Stream, bool) {
	var first *Stream
	for idx := range i.Subtitles {
		s := &i.Subtitles[idx]
		if _, ok := SubtitleExtension(s.Codec); !ok {
			continue
		}
		if s.Default {
			return *s, true
		}
		if first == nil {
			first = s
		}
	}
	if first == nil {
		return Stream{}, false
	}
	return *first, true
}

// ExtractSubtitle writes the subtitle stream with the given absolute index
// to outPath. The output extension decides the format.
func ExtractSubtitle(ctx context.Context, path string, streamIndex int, outPath string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("media file not found: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stream := ffmpeg.Input(path).
		Output(outPath, ffmpeg.KwArgs{
			"map": fmt.Sprintf("0:%d", streamIndex),
		}).
		OverWriteOutput()

	if err := run(ctx, stream, ""); err != nil {
		return fmt.Errorf("subtitle extraction failed: %w", err)
	}
	return nil
}

// ExtractFonts dumps every font attachment of a container into dir and
// returns the written paths.
func ExtractFonts(ctx context.Context, path, dir string) ([]string, error) {
	info, err := Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return extractAttachments(ctx, path, dir, info.Attachments)
}

func extractAttachments(ctx context.Context, path, dir string, attachments []Attachment) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create font directory: %w", err)
	}

	kwargs := ffmpeg.KwArgs{"y": ""}
	var outputs []string
	for _, a := range attachments {
		if !a.IsFont() {
			continue
		}
		name := attachmentName(a)
		kwargs[fmt.Sprintf("dump_attachment:%d", a.Index)] = name
		outputs = append(outputs, filepath.Join(dir, name))
	}
	if len(outputs) == 0 {
		return nil, nil
	}

	// ffmpeg dumps attachments while opening the input; the null output
	// stops it before any decoding
	stream := ffmpeg.Input(path, kwargs).
		Output("-", ffmpeg.KwArgs{"f": "null", "t": "0"})

	runErr := run(ctx, stream, dir)

	var written []string
	for _, out := range outputs {
		if info, err := os.Stat(out); err == nil && info.Size() > 0 {
			written = append(written, out)
		}
	}
	if len(written) == 0 && runErr != nil {
		return nil, fmt.Errorf("font extraction failed: %w", runErr)
	}
	return written, nil
}

// attachment file name made safe to create inside the output directory
func attachmentName(a Attachment) string {
	name := filepath.Base(strings.ReplaceAll(a.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = fmt.Sprintf("attachment-%d.ttf", a.Index)
	}
	return name
}

func run(ctx context.Context, stream *ffmpeg.Stream, dir string) error {
	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	stream.Context = ctx
	err = stream.
		WithErrorOutput(&stderr).
		SetFfmpegPath(ffmpegPath).
		Run(inDir(dir))
	if err != nil {
		if msg := strings.TrimSpace(lastLine(stderr.String())); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// inDir runs ffmpeg from dir so relative output names land there.
func inDir(dir string) ffmpeg.CompilationOption {
	return func(_ *ffmpeg.Stream, cmd *exec.Cmd) {
		cmd.Dir = dir
	}
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// IsContainer checks if the file is a media container by extension.
func IsContainer(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	containerExts := map[string]bool{
		".mkv":  true,
		".mka":  true,
		".mks":  true,
		".mp4":  true,
		".m4v":  true,
		".mov":  true,
		".webm": true,
		".avi":  true,
		".ts":   true,
	}
	return containerExts[ext]
}
