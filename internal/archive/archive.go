// Package archive streams resolved artwork into a zip file, one directory
// per catalog item.
package archive

import (
	"archive/zip"
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/pixelfin/pixelfin/internal/artwork"
	"github.com/pixelfin/pixelfin/internal/jellyfin"
	"github.com/pixelfin/pixelfin/internal/naming"
)

// Builder writes one zip archive. It keeps its own name-disambiguation
// state because archive folder names additionally pass through filesystem
// sanitization. Items must be added in catalog order for reproducible
// naming.
type Builder struct {
	client     *jellyfin.Client
	categories []artwork.Category
	overrides  map[string]string
	names      *naming.Disambiguator
	zw         *zip.Writer
}

// NewBuilder wraps w in a zip writer. overrides maps category codes to
// replacement base filenames; categories without an override use their
// built-in basename.
func NewBuilder(w io.Writer, client *jellyfin.Client, categories []artwork.Category, overrides map[string]string) *Builder {
	return &Builder{
		client:     client,
		categories: categories,
		overrides:  overrides,
		names:      naming.NewDisambiguator(),
		zw:         zip.NewWriter(w),
	}
}

// ParseOverrides decodes the {"code":"basename"} override form used by the
// web form and the command line. An empty input yields no overrides.
func ParseOverrides(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	overrides := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return nil, fmt.Errorf("could not parse archive name overrides: %w", err)
	}
	return overrides, nil
}

// AddItem downloads every reference of the item's report into the archive
// under a sanitized folder. Returns the number of files written. A single
// image failing to download or arriving empty is logged and skipped; only a
// broken archive writer aborts.
func (b *Builder) AddItem(ctx context.Context, item jellyfin.Item, report artwork.Report) (int, error) {
	folder := naming.SanitizeFolder(b.names.Assign(item.Name, item.Type, item.Year()))

	added := 0
	for _, cat := range b.categories {
		refs := report.Refs[cat.Code]

		basename := cat.Basename
		if override, ok := b.overrides[cat.Code]; ok && override != "" {
			basename = override
		}

		for i, ref := range refs {
			suffix := ""
			if len(refs) > 1 {
				suffix = fmt.Sprintf("%02d", i+1)
			}

			n, err := b.addImage(ctx, folder, basename, suffix, ref.URL)
			if err != nil {
				return added, err
			}
			added += n
		}
	}
	return added, nil
}

func (b *Builder) addImage(ctx context.Context, folder, basename, suffix, url string) (int, error) {
	stem := folder + "/" + basename + suffix

	body, contentType, err := b.client.FetchImage(ctx, url)
	if err != nil {
		log.Printf("skipping %s: %v", stem, err)
		return 0, nil
	}
	defer body.Close()

	// An empty body means the server has no bytes behind the URL; writing
	// a zero-byte file would just look like a broken image.
	buffered := bufio.NewReader(body)
	if _, err := buffered.Peek(1); err != nil {
		log.Printf("skipping %s: empty response", stem)
		return 0, nil
	}

	name := stem + extensionFor(contentType, url)
	entry, err := b.zw.Create(name)
	if err != nil {
		return 0, fmt.Errorf("could not create archive entry %s: %w", name, err)
	}

	if _, err := io.Copy(entry, buffered); err != nil {
		return 0, fmt.Errorf("could not write archive entry %s: %w", name, err)
	}
	return 1, nil
}

// Close finalizes the zip central directory.
func (b *Builder) Close() error {
	if err := b.zw.Close(); err != nil {
		return fmt.Errorf("could not finalize archive: %w", err)
	}
	return nil
}

var extensionsByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// extensionFor picks a file extension from the response content type first
// and the URL path second, defaulting to JPEG.
func extensionFor(contentType, rawURL string) string {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	if ext, ok := extensionsByType[mediaType]; ok {
		return ext
	}

	trimmed := rawURL
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	switch ext := strings.ToLower(path.Ext(trimmed)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tif", ".tiff":
		return ext
	}

	return ".jpg"
}
