package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pixelfin/pixelfin/internal/artwork"
	"github.com/pixelfin/pixelfin/internal/config"
	"github.com/pixelfin/pixelfin/internal/gallery"
	"github.com/pixelfin/pixelfin/internal/jellyfin"
	"github.com/pixelfin/pixelfin/internal/job"
)

var reportCmd = &cobra.Command{
	Use:   "report [library]",
	Short: "Generate an offline HTML artwork gallery",
	Long: `Generate a self-contained HTML gallery of a library's artwork.
The gallery starts with a summary table flagging items with missing or
undersized images, followed by one section per item showing every
resolved image with its dimensions.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	style := gallery.DefaultStyle()
	reportCmd.Flags().String("server", "", "Jellyfin server URL (defaults to JELLYFIN_URL)")
	reportCmd.Flags().String("apikey", "", "Jellyfin API key (defaults to JELLYFIN_API_KEY)")
	reportCmd.Flags().String("images", artwork.CodeList(artwork.All()), "Comma separated category codes to inventory")
	reportCmd.Flags().String("minres", "", `Minimum resolutions per category, e.g. "p:2000x3000;bd:1920x1080"`)
	reportCmd.Flags().String("output", "", "Output file (defaults to <output dir>/<library>/<timestamp> - <library>.html)")
	reportCmd.Flags().String("bgcolor", style.Background, "Page background color")
	reportCmd.Flags().String("textcolor", style.Text, "Page text color")
	reportCmd.Flags().String("tablebgcolor", style.TableBG, "Summary table background color")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	now := time.Now()
	htmlPath := mustGetString(cmd, "output")
	if htmlPath == "" {
		htmlPath = defaultOutputPath(cfg.Output.Dir, library, now, "html")
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := job.Run(ctx, client, job.Options{
		Library:    library,
		Categories: categories,
		MinRes:     artwork.ParseMinRes(mustGetString(cmd, "minres")),
		HTMLPath:   htmlPath,
		Style: gallery.Style{
			Background: mustGetString(cmd, "bgcolor"),
			Text:       mustGetString(cmd, "textcolor"),
			TableBG:    mustGetString(cmd, "tablebgcolor"),
		},
		Timestamp: now.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	printRunSummary(result)
	return nil
}

// newCatalogClient builds a Jellyfin client from flags, falling back to the
// environment for server and API key.
func newCatalogClient(cmd *cobra.Command, cfg *config.Config) (*jellyfin.Client, error) {
	server := mustGetString(cmd, "server")
	if server == "" {
		server = cfg.Jellyfin.URL
	}
	if server == "" {
		return nil, errors.New("JELLYFIN_URL environment variable or --server flag is required")
	}

	apiKey := mustGetString(cmd, "apikey")
	if apiKey == "" {
		apiKey = cfg.Jellyfin.APIKey
	}
	if apiKey == "" {
		return nil, errors.New("JELLYFIN_API_KEY environment variable or --apikey flag is required")
	}

	return jellyfin.New(server, apiKey, &http.Client{Timeout: cfg.Jellyfin.Timeout})
}

func defaultOutputPath(dir, library string, now time.Time, ext string) string {
	filename := fmt.Sprintf("%s - %s.%s", now.Format("2006-01-02_15-04-05"), library, ext)
	return filepath.Join(dir, library, filename)
}

// signalContext returns a context cancelled by Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	return ctx, cancel
}

func printRunSummary(result *job.Result) {
	fmt.Printf("\nProcessed: %d items\n", result.ItemCount)
	fmt.Printf("Missing artwork: %d items\n", result.MissingItems)
	fmt.Printf("Low resolution: %d items\n", result.LowResItems)
	if result.ZipPath != "" {
		fmt.Printf("Archived files: %d\n", result.ArchivedFiles)
	}
}
