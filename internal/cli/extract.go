package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subrender/internal/media"
)

var extractCmd = &cobra.Command{
	Use:   "extract [media_file]",
	Short: "Extract a subtitle track and its fonts from a media file",
	Long: `Extract a text subtitle stream from a media container and optionally dump
the font attachments next to it.

Without --stream the default text subtitle stream is used. The output format
follows the stream codec (ASS/SSA to .ass, SubRip to .srt, WebVTT to .vtt).

Examples:
  subrender extract episode.mkv
  subrender extract episode.mkv --stream 3 -o subs/episode.ass
  subrender extract episode.mkv --fonts fonts/`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().
		IntP("stream", "s", -1, "Absolute stream index of the subtitle track")
	extractCmd.Flags().
		String("fonts", "", "Directory to dump font attachments into")
	extractCmd.Flags().
		Bool("list", false, "List subtitle streams and attachments without extracting")
}

func runExtract(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]

	streamIndex, _ := cmd.Flags().GetInt("stream")
	fontsDir, _ := cmd.Flags().GetString("fonts")
	list, _ := cmd.Flags().GetBool("list")
	outputPath, _ := cmd.Flags().GetString("output")

	if !media.IsContainer(mediaPath) {
		logger.Warnw("File extension is not a known container, trying anyway", "path", mediaPath)
	}

	ctx := context.Background()

	info, err := media.Probe(ctx, mediaPath)
	if err != nil {
		return err
	}

	if list {
		for _, s := range info.Subtitles {
			fmt.Printf("stream %d\t%s\t%s\t%s\tdefault=%v\n", s.Index, s.Codec, s.Language, s.Title, s.Default)
		}
		for _, a := range info.Attachments {
			fmt.Printf("attachment %d\t%s\t%s\tfont=%v\n", a.Index, a.Filename, a.MimeType, a.IsFont())
		}
		return nil
	}

	stream, err := pickStream(info, streamIndex)
	if err != nil {
		return err
	}

	ext, _ := media.SubtitleExtension(stream.Codec)
	if outputPath == "" {
		outputPath = strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ext
	}

	logger.Infow("Extracting subtitles",
		"input", mediaPath,
		"stream", stream.Index,
		"codec", stream.Codec,
		"language", stream.Language,
		"output", outputPath,
	)

	if err := media.ExtractSubtitle(ctx, mediaPath, stream.Index, outputPath); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles extracted to: %s\n", absOutput)

	if fontsDir == "" {
		return nil
	}

	written, err := media.ExtractFonts(ctx, mediaPath, fontsDir)
	if err != nil {
		return err
	}
	logger.Debugw("Fonts extracted", "count", len(written), "dir", fontsDir)
	fmt.Printf("Extracted %d fonts to %s\n", len(written), fontsDir)

	return nil
}

// pickStream returns the requested stream, or the default text stream when
// index is negative.
func pickStream(info *media.Info, index int) (media.Stream, error) {
	if index < 0 {
		s, ok := info.DefaultSubtitle()
		if !ok {
			return media.Stream{}, fmt.Errorf("%s has no text subtitle streams", info.Path)
		}
		return s, nil
	}

	for _, s := range info.Subtitles {
		if s.Index != index {
			continue
		}
		if _, ok := media.SubtitleExtension(s.Codec); !ok {
			return media.Stream{}, fmt.Errorf("stream %d is %s, which is not a text subtitle format", index, s.Codec)
		}
		return s, nil
	}
	return media.Stream{}, fmt.Errorf("stream %d is not a subtitle stream", index)
}
