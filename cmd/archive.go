package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pixelfin/pixelfin/internal/archive"
	"github.com/pixelfin/pixelfin/internal/artwork"
	"github.com/pixelfin/pixelfin/internal/config"
	"github.com/pixelfin/pixelfin/internal/job"
)

var archiveCmd = &cobra.Command{
	Use:   "archive [library]",
	Short: "Pack library artwork into a zip archive",
	Long: `Download every resolved image of a library into a zip archive with
one folder per item. Files get predictable names per category (cover,
backdrop, logo, ...) with numeric suffixes when a category has several
images.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().String("server", "", "Jellyfin server URL (defaults to JELLYFIN_URL)")
	archiveCmd.Flags().String("apikey", "", "Jellyfin API key (defaults to JELLYFIN_API_KEY)")
	archiveCmd.Flags().String("images", artwork.CodeList(artwork.All()), "Comma separated category codes to archive")
	archiveCmd.Flags().String("output", "", "Output file (defaults to <output dir>/<library>/<timestamp> - <library>.zip)")
	archiveCmd.Flags().String("zipnames", "", `Base filename overrides per category as JSON, e.g. {"p":"poster"}`)
}

func runArchive(cmd *cobra.Command, args []string) error {
	library := args[0]
	cfg := config.Load()

	client, err := newCatalogClient(cmd, cfg)
	if err != nil {
		return err
	}

	images := mustGetString(cmd, "images")
	categories := artwork.ParseCodes(images)
	if len(categories) == 0 {
		return fmt.Errorf("no valid image categories in %q", images)
	}

	overrides, err := archive.ParseOverrides(mustGetString(cmd, "zipnames"))
	if err != nil {
		return err
	}

	zipPath := mustGetString(cmd, "output")
	if zipPath == "" {
		zipPath = defaultOutputPath(cfg.Output.Dir, library, time.Now(), "zip")
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := job.Run(ctx, client, job.Options{
		Library:    library,
		Categories: categories,
		Overrides:  overrides,
		ZipPath:    zipPath,
	})
	if err != nil {
		return fmt.Errorf("archive failed: %w", err)
	}

	printRunSummary(result)
	return nil
}
