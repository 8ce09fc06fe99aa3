package job

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ziparchive "archive/zip"

	"github.com/pixelfin/pixelfin/internal/artwork"
	"github.com/pixelfin/pixelfin/internal/gallery"
	"github.com/pixelfin/pixelfin/internal/jellyfin"
)

// mediaServer mocks just enough of a Jellyfin server for a run: one user,
// one library, a fixed item page and PNG artwork on selected paths.
func mediaServer(t *testing.T, items []jellyfin.Item, artworkSizes map[string][2]int) *httptest.Server {
	t.Helper()
	var mux http.ServeMux

	mux.HandleFunc("/Users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]jellyfin.User{{Id: "u1", Name: "alice"}})
	})
	mux.HandleFunc("/Users/u1/Views", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"Items": []jellyfin.View{{Id: "lib1", Name: "Movies", CollectionType: "movie"}},
		})
	})
	mux.HandleFunc("/Users/u1/Items", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"Items":            items,
			"TotalRecordCount": len(items),
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		size, ok := artworkSizes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, image.NewRGBA(image.Rect(0, 0, size[0], size[1]))); err != nil {
			t.Errorf("failed to encode test PNG: %v", err)
		}
	})

	return httptest.NewServer(&mux)
}

func newClient(t *testing.T, serverURL string) *jellyfin.Client {
	t.Helper()
	client, err := jellyfin.New(serverURL, "testkey", nil)
	if err != nil {
		t.Fatalf("jellyfin.New failed: %v", err)
	}
	return client
}

func TestRun_NoArtwork(t *testing.T) {
	items := []jellyfin.Item{{Id: "i1", Name: "Movie X", Type: "Movie", ProductionYear: 2010}}
	server := mediaServer(t, items, nil)
	defer server.Close()

	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "gallery.html")
	zipPath := filepath.Join(dir, "artwork.zip")

	result, err := Run(context.Background(), newClient(t, server.URL), Options{
		Library:    "Movies",
		Categories: artwork.ParseCodes("p,bd"),
		HTMLPath:   htmlPath,
		ZipPath:    zipPath,
		Style:      gallery.DefaultStyle(),
		Timestamp:  "2026-08-29 12:00:00",
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.ItemCount != 1 || result.MissingItems != 1 || result.LowResItems != 0 {
		t.Errorf("unexpected result counters: %+v", result)
	}
	if result.ArchivedFiles != 0 {
		t.Errorf("expected no archived files, got %d", result.ArchivedFiles)
	}

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("could not read gallery: %v", err)
	}
	out := string(html)

	if !strings.Contains(out, "Movie X (2010)") {
		t.Error("expected the disambiguated name in the gallery")
	}
	if !strings.Contains(out, "<td>Yes</td><td>Yes</td>") {
		t.Error("expected both categories marked missing in the summary row")
	}
	if !strings.Contains(out, "Missing: Primary") || !strings.Contains(out, "Missing: Backdrop") {
		t.Error("expected placeholders for both missing categories")
	}

	zipData, err := os.ReadFile(zipPath)
	if err != nil {
		t.Fatalf("could not read archive: %v", err)
	}
	zr, err := ziparchive.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		t.Fatalf("could not open archive: %v", err)
	}
	if len(zr.File) != 0 {
		t.Errorf("expected an empty archive, found %d files", len(zr.File))
	}

	if _, err := os.Stat(htmlPath + ".staging.db"); !os.IsNotExist(err) {
		t.Error("expected the staging database to be cleaned up")
	}
}

func TestRun_LowResolution(t *testing.T) {
	items := []jellyfin.Item{{
		Id: "i1", Name: "Movie X", Type: "Movie", ProductionYear: 2010,
		ImageTags: map[string]string{"Primary": "t1"},
	}}
	server := mediaServer(t, items, map[string][2]int{
		"/Items/i1/Images/Primary": {1000, 1500},
	})
	defer server.Close()

	htmlPath := filepath.Join(t.TempDir(), "gallery.html")

	result, err := Run(context.Background(), newClient(t, server.URL), Options{
		Library:    "Movies",
		Categories: artwork.ParseCodes("p"),
		MinRes:     artwork.ParseMinRes("p:2000x3000"),
		HTMLPath:   htmlPath,
		Style:      gallery.DefaultStyle(),
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.LowResItems != 1 || result.MissingItems != 0 {
		t.Errorf("expected one low-res item and none missing, got %+v", result)
	}

	html, _ := os.ReadFile(htmlPath)
	out := string(html)
	if !strings.Contains(out, "<td>Low</td>") {
		t.Error("expected a Low marker in the summary table")
	}
	if !strings.Contains(out, "Primary 1000x1500 (low resolution)") {
		t.Error("expected a low-resolution caption in the section")
	}
	if strings.Contains(out, "Missing: Primary") {
		t.Error("a resolved low-res image must not render as missing")
	}
}

func TestRun_ArchiveContents(t *testing.T) {
	items := []jellyfin.Item{{
		Id: "i1", Name: "Movie X", Type: "Movie", ProductionYear: 2010,
		ImageTags:         map[string]string{"Primary": "t1"},
		BackdropImageTags: []string{"b0", "b1", "b2"},
	}}
	server := mediaServer(t, items, map[string][2]int{
		"/Items/i1/Images/Primary":    {2000, 3000},
		"/Items/i1/Images/Backdrop/0": {1920, 1080},
		"/Items/i1/Images/Backdrop/1": {1920, 1080},
		"/Items/i1/Images/Backdrop/2": {1920, 1080},
	})
	defer server.Close()

	zipPath := filepath.Join(t.TempDir(), "artwork.zip")

	result, err := Run(context.Background(), newClient(t, server.URL), Options{
		Library:    "Movies",
		Categories: artwork.ParseCodes("p,bd"),
		ZipPath:    zipPath,
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ArchivedFiles != 4 {
		t.Errorf("expected 4 archived files, got %d", result.ArchivedFiles)
	}

	zipData, err := os.ReadFile(zipPath)
	if err != nil {
		t.Fatalf("could not read archive: %v", err)
	}
	zr, err := ziparchive.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		t.Fatalf("could not open archive: %v", err)
	}

	want := map[string]bool{
		"Movie X (2010)/cover.png":      true,
		"Movie X (2010)/backdrop01.png": true,
		"Movie X (2010)/backdrop02.png": true,
		"Movie X (2010)/backdrop03.png": true,
	}
	for _, f := range zr.File {
		if !want[f.Name] {
			t.Errorf("unexpected archive entry %s", f.Name)
		}
		delete(want, f.Name)
	}
	for name := range want {
		t.Errorf("missing archive entry %s", name)
	}
}

func TestRun_LibraryNotFoundIsFatal(t *testing.T) {
	server := mediaServer(t, nil, nil)
	defer server.Close()

	_, err := Run(context.Background(), newClient(t, server.URL), Options{
		Library:  "Anime",
		HTMLPath: filepath.Join(t.TempDir(), "gallery.html"),
		Quiet:    true,
	})
	if err == nil {
		t.Fatal("expected a fatal error for an unknown library")
	}
	if !strings.Contains(err.Error(), "Anime") {
		t.Errorf("expected the library name in the error, got: %v", err)
	}
}

func TestRun_RequiresAnOutput(t *testing.T) {
	server := mediaServer(t, nil, nil)
	defer server.Close()

	_, err := Run(context.Background(), newClient(t, server.URL), Options{Library: "Movies", Quiet: true})
	if err == nil {
		t.Fatal("expected an error when no output is selected")
	}
}

func TestRun_ReportsProgress(t *testing.T) {
	items := []jellyfin.Item{
		{Id: "i1", Name: "Movie A", Type: "Movie", ProductionYear: 2001},
		{Id: "i2", Name: "Movie B", Type: "Movie", ProductionYear: 2002},
	}
	server := mediaServer(t, items, nil)
	defer server.Close()

	var updates []ProgressInfo
	_, err := Run(context.Background(), newClient(t, server.URL), Options{
		Library:    "Movies",
		Categories: artwork.ParseCodes("p"),
		HTMLPath:   filepath.Join(t.TempDir(), "gallery.html"),
		Quiet:      true,
		OnProgress: func(info ProgressInfo) { updates = append(updates, info) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var inventory, render int
	for _, u := range updates {
		switch u.Phase {
		case "inventory":
			inventory++
			if u.Total != 2 {
				t.Errorf("expected total 2 in inventory updates, got %d", u.Total)
			}
		case "render":
			render++
		}
	}
	if inventory != 2 {
		t.Errorf("expected 2 inventory updates, got %d", inventory)
	}
	if render != 1 {
		t.Errorf("expected 1 render update, got %d", render)
	}
}
