package web

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pixelfin/pixelfin/internal/config"
	"github.com/pixelfin/pixelfin/internal/history"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	hist, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	cfg := &config.Config{
		Jellyfin: config.Jellyfin{Timeout: time.Second},
		Output:   config.Output{Dir: filepath.Join(dir, "output"), DataDir: dir},
	}
	return NewServer(cfg, hist)
}

func TestIndexPage(t *testing.T) {
	s := testServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected an HTML content type, got %q", ct)
	}

	body := recorder.Body.String()
	wants := []string{
		`id="server"`,
		`id="apikey"`,
		`id="library"`,
		`id="images"`,
		`id="minres"`,
		`id="zipnames"`, // per-category zip basename overrides
		`zipname_${code}`,
		`id="bgcolor"`,
		"/api/v1/runs",
	}
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("expected the form page to contain %q", want)
		}
	}
}

func TestHealthRoute(t *testing.T) {
	s := testServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
}
