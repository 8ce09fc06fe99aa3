package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pixelfin/pixelfin/internal/config"
	"github.com/pixelfin/pixelfin/internal/history"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Jellyfin: config.Jellyfin{Timeout: 5 * time.Second},
		Output:   config.Output{Dir: filepath.Join(dir, "output"), DataDir: filepath.Join(dir, "data")},
	}
}

func testHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func startRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("could not marshal request: %v", err)
	}
	return httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(data))
}

func TestStart_ValidatesRequest(t *testing.T) {
	h := NewRunsHandler(testConfig(t), NewJobManager(), testHistory(t))

	tests := []struct {
		name string
		body StartRequest
	}{
		{"missing server", StartRequest{APIKey: "k", Library: "Movies", HTML: true}},
		{"missing apikey", StartRequest{Server: "http://x", Library: "Movies", HTML: true}},
		{"missing library", StartRequest{Server: "http://x", APIKey: "k", HTML: true}},
		{"no output", StartRequest{Server: "http://x", APIKey: "k", Library: "Movies"}},
		{"no valid codes", StartRequest{Server: "http://x", APIKey: "k", Library: "Movies", HTML: true, Images: "zz,qq"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			h.Start(recorder, startRequest(t, tc.body))

			if recorder.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", recorder.Code)
			}
		})
	}
}

func TestStart_RejectsInvalidJSON(t *testing.T) {
	h := NewRunsHandler(testConfig(t), NewJobManager(), testHistory(t))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("{broken"))
	h.Start(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", recorder.Code)
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	h := NewRunsHandler(testConfig(t), NewJobManager(), testHistory(t))

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil),
		map[string]string{"jobId": "nope"},
	)
	h.Status(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", recorder.Code)
	}
}

func TestCancel_UnknownJob(t *testing.T) {
	h := NewRunsHandler(testConfig(t), NewJobManager(), testHistory(t))

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodDelete, "/api/v1/runs/nope", nil),
		map[string]string{"jobId": "nope"},
	)
	h.Cancel(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", recorder.Code)
	}
}

// mockJellyfin serves one user, one empty movie library and nothing else.
func mockJellyfin(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/Users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"Id":"u1","Name":"alice"}]`))
	})
	mux.HandleFunc("/Users/u1/Views", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Items":[{"Id":"lib1","Name":"Movies","CollectionType":"movie"}]}`))
	})
	mux.HandleFunc("/Users/u1/Items", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Items":[{"Id":"i1","Name":"Movie X","Type":"Movie","ProductionYear":2010}],"TotalRecordCount":1}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func waitForTerminal(t *testing.T, jm *JobManager, jobID string) *RunJob {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job := jm.GetJob(jobID)
		if job != nil && isJobTerminal(job.GetStatus()) {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
	return nil
}

func TestStart_RunsToCompletion(t *testing.T) {
	server := mockJellyfin(t)
	defer server.Close()

	cfg := testConfig(t)
	jm := NewJobManager()
	hist := testHistory(t)
	h := NewRunsHandler(cfg, jm, hist)

	recorder := httptest.NewRecorder()
	h.Start(recorder, startRequest(t, StartRequest{
		Server:  server.URL,
		APIKey:  "testkey",
		Library: "Movies",
		Images:  "p,bd",
		HTML:    true,
	}))

	if recorder.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}

	job := waitForTerminal(t, jm, resp["job_id"])
	if job.GetStatus() != JobStatusCompleted {
		t.Fatalf("expected completed status, got %s (error: %s)", job.GetStatus(), job.Error)
	}

	job.mu.RLock()
	result := job.Result
	job.mu.RUnlock()
	if result == nil || result.ItemCount != 1 || result.MissingItems != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.HTMLPath == "" || !strings.HasPrefix(result.HTMLPath, "/output/Movies/") {
		t.Errorf("expected a web path to the gallery, got %q", result.HTMLPath)
	}

	// The artifact exists on disk under the library folder.
	entries, err := os.ReadDir(filepath.Join(cfg.Output.Dir, "Movies"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one generated file, got %v (err %v)", entries, err)
	}
	if !strings.HasSuffix(entries[0].Name(), " - Movies.html") {
		t.Errorf("unexpected artifact name %q", entries[0].Name())
	}

	// History remembers the run, including the API key for prefill.
	settings, ok, err := hist.LastUsed()
	if err != nil || !ok {
		t.Fatalf("expected last-used settings: ok=%v err=%v", ok, err)
	}
	if settings.Server != server.URL || settings.Images != "p,bd" {
		t.Errorf("unexpected history settings: %+v", settings)
	}
}

func TestStart_FailsOnUnknownLibrary(t *testing.T) {
	server := mockJellyfin(t)
	defer server.Close()

	jm := NewJobManager()
	h := NewRunsHandler(testConfig(t), jm, testHistory(t))

	recorder := httptest.NewRecorder()
	h.Start(recorder, startRequest(t, StartRequest{
		Server:  server.URL,
		APIKey:  "testkey",
		Library: "Anime",
		HTML:    true,
	}))

	var resp map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}

	job := waitForTerminal(t, jm, resp["job_id"])
	if job.GetStatus() != JobStatusFailed {
		t.Errorf("expected failed status, got %s", job.GetStatus())
	}
	if !strings.Contains(job.Error, "Anime") {
		t.Errorf("expected the library name in the error, got %q", job.Error)
	}
}
