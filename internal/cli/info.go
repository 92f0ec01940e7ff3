package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subrender/internal/fonts"
	"github.com/mgpai22/subrender/internal/subtitle"
)

var infoCmd = &cobra.Command{
	Use:   "info [subtitle_file]",
	Short: "Show script info, styles, events and embedded fonts of a track",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var convertCmd = &cobra.Command{
	Use:   "convert [input] [output]",
	Short: "Convert a subtitle track between SRT, WebVTT and ASS",
	Long: `Convert a subtitle track to another format. The output format follows
the output extension.

Converting to ASS keeps styles, positioning tags and embedded fonts when the
input is ASS/SSA. Other conversions carry plain text only.

Examples:
  subrender convert episode.ass episode.srt
  subrender convert episode.srt episode.ass`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(infoCmd, convertCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	track, err := subtitle.Open(args[0])
	if err != nil {
		return err
	}
	return printTrackInfo(os.Stdout, track)
}

func printTrackInfo(w io.Writer, track *subtitle.Track) error {
	info := track.Info
	fmt.Fprintf(w, "Format:      %s\n", track.Format)
	if info.Title != "" {
		fmt.Fprintf(w, "Title:       %s\n", info.Title)
	}
	fmt.Fprintf(w, "PlayRes:     %dx%d\n", info.PlayResX, info.PlayResY)
	fmt.Fprintf(w, "WrapStyle:   %d\n", info.WrapStyle)
	fmt.Fprintf(w, "ScaledBorderAndShadow: %v\n", info.ScaledBorderAndShadow)
	fmt.Fprintf(w, "Events:      %d (duration %s)\n", len(track.Events), track.Duration())

	if len(track.Styles) > 0 {
		fmt.Fprintln(w, "\nStyles:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  NAME\tFONT\tSIZE\tPRIMARY\tOUTLINE\tALIGN")
		for _, s := range track.Styles {
			fmt.Fprintf(tw, "  %s\t%s\t%g\t%s\t%g\t%d\n",
				s.Name, s.FontName, s.FontSize, s.PrimaryColour, s.Outline, s.Alignment)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(track.Fonts) > 0 {
		fmt.Fprintln(w, "\nEmbedded fonts:")
		for _, f := range track.Fonts {
			families := "unreadable"
			if faces, err := fonts.ParseFaces(f.Name, f.Data); err == nil {
				names := make([]string, 0, len(faces))
				for _, face := range faces {
					names = append(names, face.Family+" "+face.Subfamily)
				}
				families = strings.Join(names, ", ")
			}
			fmt.Fprintf(w, "  %s (%d bytes): %s\n", f.Name, len(f.Data), families)
		}
	}

	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]

	track, err := subtitle.Open(inputPath)
	if err != nil {
		return err
	}

	format := subtitle.GetFormatFromExtension(outputPath)
	if format == "" {
		return fmt.Errorf("unsupported output extension for %s: use .srt, .vtt or .ass", outputPath)
	}

	logger.Infow("Converting subtitles",
		"input", inputPath,
		"output", outputPath,
		"from", track.Format,
		"to", format,
	)

	if format == subtitle.FormatASS {
		if err := subtitle.WriteTrack(track, outputPath); err != nil {
			return fmt.Errorf("failed to write track: %w", err)
		}
	} else {
		writer, err := subtitle.NewWriter(format)
		if err != nil {
			return err
		}
		if err := writer.Write(track.Subtitle(), outputPath); err != nil {
			return fmt.Errorf("failed to write subtitles: %w", err)
		}
	}

	fmt.Printf("Converted %d events to %s\n", len(track.Events), outputPath)
	return nil
}
