package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subrender/internal/config"
	"github.com/mgpai22/subrender/internal/ffmpeg"
	"github.com/mgpai22/subrender/internal/logging"
)

var (
	verbose bool
	logger  *logging.Logger
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "subrender",
	Short: "Render ASS/SSA, SRT and WebVTT subtitles to images",
	Long: `subrender lays out and rasterizes subtitle tracks the way a video
player does, producing bitmaps for a given time and frame size.

It can also inspect and convert tracks, manage a font index and pull
subtitles and fonts out of media containers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		resolved, err := config.Resolve()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = resolved

		ffmpeg.Configure(ffmpeg.BinaryPaths{
			FFmpeg:  cfg.FFmpeg.Path,
			FFprobe: cfg.FFmpeg.ProbePath,
		})
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
}
