package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subrender/internal/fontdb"
	"github.com/mgpai22/subrender/internal/render"
)

var fontsCmd = &cobra.Command{
	Use:   "fonts",
	Short: "Inspect font files and manage the font index",
}

var fontsFamilyCmd = &cobra.Command{
	Use:   "family [font_file...]",
	Short: "Print the family name of font files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFontsFamily,
}

var fontsIndexCmd = &cobra.Command{
	Use:   "index [dir...]",
	Short: "Scan font directories into the font index",
	Long: `Scan directories recursively for TTF, OTF, TTC and OTC files and record
their family names in the font index. Unchanged files are skipped and
files that disappeared are dropped.

Without arguments the directories from the config file are scanned.`,
	RunE: runFontsIndex,
}

var fontsLookupCmd = &cobra.Command{
	Use:   "lookup [family]",
	Short: "Show which indexed files provide a family",
	Args:  cobra.ExactArgs(1),
	RunE:  runFontsLookup,
}

var fontsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the families in the font index",
	Args:  cobra.NoArgs,
	RunE:  runFontsList,
}

func init() {
	rootCmd.AddCommand(fontsCmd)
	fontsCmd.AddCommand(fontsFamilyCmd, fontsIndexCmd, fontsLookupCmd, fontsListCmd)
}

func runFontsFamily(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		name, ok := render.GetFontFamilyName(path)
		if !ok {
			logger.Warnw("Not a readable font", "path", path)
			failed++
			continue
		}
		if len(args) == 1 {
			fmt.Println(name)
			continue
		}
		fmt.Printf("%s\t%s\n", path, name)
	}

	if failed == len(args) {
		return errors.New("no font family found")
	}
	return nil
}

func runFontsIndex(cmd *cobra.Command, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		dirs = cfg.Fonts.Dirs
	}
	if len(dirs) == 0 {
		return errors.New("no font directories given and none configured")
	}

	store, err := openIndex(true)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Infow("Indexing fonts", "dirs", dirs, "index", cfg.Fonts.IndexPath)

	stats, err := store.Index(context.Background(), dirs...)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("Scanned %d files: %d indexed, %d unchanged, %d removed, %d failed\n",
		stats.Scanned, stats.Indexed, stats.Skipped, stats.Removed, stats.Failed)
	return nil
}

func runFontsLookup(cmd *cobra.Command, args []string) error {
	store, err := openIndex(false)
	if err != nil {
		return err
	}
	defer store.Close()

	locations, err := store.Lookup(args[0])
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		return fmt.Errorf("family %q not found in the font index", args[0])
	}
	for _, loc := range locations {
		fmt.Printf("%s\t%d\n", loc.Path, loc.Index)
	}
	return nil
}

func runFontsList(cmd *cobra.Command, args []string) error {
	store, err := openIndex(false)
	if err != nil {
		return err
	}
	defer store.Close()

	families, err := store.Families()
	if err != nil {
		return err
	}
	for _, family := range families {
		fmt.Println(family)
	}
	return nil
}

// openIndex opens the configured font index. Unless create is set, a
// missing index is an error.
func openIndex(create bool) (*fontdb.Store, error) {
	path := cfg.Fonts.IndexPath
	if path == "" {
		return nil, errors.New("font index is disabled: set fonts.index_path or SUBRENDER_FONT_INDEX")
	}
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("font index %s does not exist: run \"subrender fonts index\" first", path)
		}
	}
	return fontdb.Open(path, logger)
}

// newRenderer builds a renderer wired to the config and, when present, the
// font index. The returned func closes the index.
func newRenderer() (*render.Renderer, func(), error) {
	opts := []render.Option{
		render.WithLogger(logger),
		render.WithCacheSize(cfg.Render.CacheSize),
	}
	if cfg.Fonts.DefaultFamily != "" {
		opts = append(opts, render.WithDefaultFamily(cfg.Fonts.DefaultFamily))
	}

	closeIndex := func() {}
	if cfg.Fonts.IndexPath != "" {
		if _, err := os.Stat(cfg.Fonts.IndexPath); err == nil {
			store, err := fontdb.Open(cfg.Fonts.IndexPath, logger)
			if err != nil {
				return nil, nil, err
			}
			opts = append(opts, render.WithFontProvider(store))
			closeIndex = func() { store.Close() }
		} else {
			logger.Debugw("Font index not found, using in-memory fonts only", "path", cfg.Fonts.IndexPath)
		}
	}

	return render.New(opts...), closeIndex, nil
}
