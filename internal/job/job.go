// Package job drives one full inventory run: list the library, classify
// every item's artwork and hand the results to the gallery renderer and the
// archive builder.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/pixelfin/pixelfin/internal/archive"
	"github.com/pixelfin/pixelfin/internal/artwork"
	"github.com/pixelfin/pixelfin/internal/gallery"
	"github.com/pixelfin/pixelfin/internal/jellyfin"
	"github.com/pixelfin/pixelfin/internal/naming"
	"github.com/pixelfin/pixelfin/internal/staging"
)

// ProgressInfo is passed to the optional progress callback once per item and
// once per phase change, so the web UI can mirror the terminal progress.
type ProgressInfo struct {
	Phase   string // "inventory", "render", "archive"
	Current int
	Total   int
	ItemID  string
	Name    string
	Message string
}

// Options selects what one run produces. At least one of HTMLPath and
// ZipPath must be set.
type Options struct {
	Library    string
	Categories []artwork.Category
	MinRes     artwork.MinResolutionSpec
	Overrides  map[string]string // archive basenames by category code
	HTMLPath   string
	ZipPath    string
	Style      gallery.Style
	Timestamp  string
	// StagingPath overrides where the renderer's staging database lives.
	// Defaults to the HTML path with a ".staging.db" suffix.
	StagingPath string
	Quiet       bool // suppress the terminal progress bar
	OnProgress  func(ProgressInfo)
}

// Result summarizes a finished run.
type Result struct {
	ItemCount     int
	MissingItems  int // items with at least one missing category
	LowResItems   int // items with at least one under-sized category
	ArchivedFiles int
	HTMLPath      string
	ZipPath       string
}

var errNoOutput = errors.New("no output selected, need an HTML path or a zip path")

// Run executes one inventory over the named library. User and library
// resolution failures and listing failures are fatal; per-image trouble
// degrades to missing markers or skipped archive files.
func Run(ctx context.Context, client *jellyfin.Client, opts Options) (*Result, error) {
	if opts.HTMLPath == "" && opts.ZipPath == "" {
		return nil, errNoOutput
	}
	if len(opts.Categories) == 0 {
		opts.Categories = artwork.All()
	}
	if opts.Timestamp == "" {
		opts.Timestamp = time.Now().Format("2006-01-02 15:04:05")
	}

	userID, err := client.FirstUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not resolve user: %w", err)
	}

	libraryID, libraryType, err := client.FindLibrary(ctx, userID, opts.Library)
	if err != nil {
		return nil, fmt.Errorf("could not resolve library %q: %w", opts.Library, err)
	}

	resolver := artwork.NewResolver(client, opts.MinRes)
	names := naming.NewDisambiguator()

	var store *staging.Store
	if opts.HTMLPath != "" {
		stagingPath := opts.StagingPath
		if stagingPath == "" {
			stagingPath = opts.HTMLPath + ".staging.db"
		}
		store, err = staging.Open(stagingPath)
		if err != nil {
			return nil, err
		}
		defer store.Destroy()
	}

	var builder *archive.Builder
	var zipFile *os.File
	if opts.ZipPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.ZipPath), 0755); err != nil {
			return nil, fmt.Errorf("could not create archive directory: %w", err)
		}
		zipFile, err = os.Create(opts.ZipPath)
		if err != nil {
			return nil, fmt.Errorf("could not create archive file: %w", err)
		}
		defer zipFile.Close()
		builder = archive.NewBuilder(zipFile, client, opts.Categories, opts.Overrides)
	}

	result := &Result{HTMLPath: opts.HTMLPath, ZipPath: opts.ZipPath}

	bar := newBar(opts.Quiet)
	err = client.Items(ctx, userID, libraryID, libraryType, func(item jellyfin.Item, total int) error {
		if bar.GetMax() != total {
			bar.ChangeMax(total)
		}

		report := resolver.Classify(ctx, item, opts.Categories)
		name := names.Assign(item.Name, item.Type, item.Year())

		if store != nil {
			rec := staging.Record{
				ItemID: item.Id,
				Name:   name,
				Title:  item.Name,
				Year:   item.Year(),
				Report: report,
			}
			if err := store.Add(rec); err != nil {
				return err
			}
		}

		if builder != nil {
			added, err := builder.AddItem(ctx, item, report)
			if err != nil {
				return err
			}
			result.ArchivedFiles += added
		}

		result.ItemCount++
		if len(report.Missing) > 0 {
			result.MissingItems++
		}
		if len(report.LowRes) > 0 {
			result.LowResItems++
		}

		bar.Add(1)
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{
				Phase:   "inventory",
				Current: result.ItemCount,
				Total:   total,
				ItemID:  item.Id,
				Name:    name,
			})
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	bar.Finish()

	if builder != nil {
		if err := builder.Close(); err != nil {
			return nil, err
		}
		if err := zipFile.Close(); err != nil {
			return nil, fmt.Errorf("could not finish archive file: %w", err)
		}
		fmt.Printf("ZIP created: %s\n", opts.ZipPath)
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{Phase: "archive", Message: "ZIP created: " + opts.ZipPath})
		}
	}

	if store != nil {
		if err := renderGallery(client, store, opts); err != nil {
			return nil, err
		}
		fmt.Printf("HTML file generated: %s\n", opts.HTMLPath)
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{Phase: "render", Message: "HTML file generated: " + opts.HTMLPath})
		}
	}

	return result, nil
}

func renderGallery(client *jellyfin.Client, store *staging.Store, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(opts.HTMLPath), 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	out, err := os.Create(opts.HTMLPath)
	if err != nil {
		return fmt.Errorf("could not create gallery file: %w", err)
	}
	defer out.Close()

	renderer := gallery.NewRenderer(client.BaseURL(), opts.Library, opts.Categories, opts.Style, opts.Timestamp)
	return renderer.Render(out, store)
}

func newBar(quiet bool) *progressbar.ProgressBar {
	if quiet {
		return progressbar.NewOptions(0, progressbar.OptionSetWriter(noopWriter{}))
	}
	return progressbar.NewOptions(0,
		progressbar.OptionSetDescription("Inventorying artwork"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
