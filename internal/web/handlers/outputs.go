package handlers

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// OutputsHandler lists, serves and deletes generated artifacts. Artifacts
// live under one directory per library, named "<timestamp> - <library>.html"
// or ".zip".
type OutputsHandler struct {
	outputDir string
}

// NewOutputsHandler creates a new outputs handler rooted at outputDir.
func NewOutputsHandler(outputDir string) *OutputsHandler {
	return &OutputsHandler{outputDir: outputDir}
}

// OutputFile describes one generated artifact.
type OutputFile struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}

// List returns every generated artifact grouped by library, newest first
// within each library.
func (h *OutputsHandler) List(w http.ResponseWriter, r *http.Request) {
	result := map[string][]OutputFile{}

	entries, err := os.ReadDir(h.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			respondJSON(w, http.StatusOK, result)
			return
		}
		respondError(w, http.StatusInternalServerError, "could not list outputs")
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		files, err := os.ReadDir(filepath.Join(h.outputDir, entry.Name()))
		if err != nil {
			continue
		}

		var libraryFiles []OutputFile
		for _, file := range files {
			name := file.Name()
			if !strings.HasSuffix(name, ".html") && !strings.HasSuffix(name, ".zip") {
				continue
			}
			info, err := file.Info()
			if err != nil {
				continue
			}
			libraryFiles = append(libraryFiles, OutputFile{
				Filename: name,
				Path:     outputURL(entry.Name(), name),
				Size:     info.Size(),
				ModTime:  info.ModTime(),
			})
		}

		if len(libraryFiles) > 0 {
			sort.Slice(libraryFiles, func(i, j int) bool {
				return libraryFiles[i].Filename > libraryFiles[j].Filename
			})
			result[entry.Name()] = libraryFiles
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// Serve streams one artifact to the browser.
func (h *OutputsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	path, ok := h.artifactPath(w, r)
	if !ok {
		return
	}
	http.ServeFile(w, r, path)
}

// Delete removes one artifact and prunes its library directory when empty.
func (h *OutputsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path, ok := h.artifactPath(w, r)
	if !ok {
		return
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "could not delete file")
		return
	}

	// Leave no empty library directories behind.
	dir := filepath.Dir(path)
	if remaining, err := os.ReadDir(dir); err == nil && len(remaining) == 0 {
		os.Remove(dir)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// artifactPath resolves and validates the {library}/{filename} URL
// parameters against the output directory. Rejects anything that could
// escape it.
func (h *OutputsHandler) artifactPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	library, err := url.PathUnescape(chi.URLParam(r, "library"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid library name")
		return "", false
	}
	filename, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid file name")
		return "", false
	}

	if !validPathSegment(library) || !validPathSegment(filename) {
		respondError(w, http.StatusBadRequest, "invalid path")
		return "", false
	}
	if !strings.HasSuffix(filename, ".html") && !strings.HasSuffix(filename, ".zip") {
		respondError(w, http.StatusBadRequest, "invalid file type")
		return "", false
	}

	return filepath.Join(h.outputDir, library, filename), true
}

func validPathSegment(segment string) bool {
	if segment == "" || segment == "." || segment == ".." {
		return false
	}
	return !strings.ContainsAny(segment, "/\\")
}
