package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pixelfin/pixelfin/internal/history"
)

// HistoryHandler exposes remembered servers, libraries and settings so the
// form can prefill itself.
type HistoryHandler struct {
	store *history.Store
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// Get returns the known servers and libraries plus the last-used settings.
// API keys are stripped before leaving the process.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	servers, err := h.store.Servers()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	libraries, err := h.store.Libraries()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	lastUsed, ok, err := h.store.LastUsed()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not load history")
		return
	}

	response := map[string]any{
		"servers":   servers,
		"libraries": libraries,
	}
	if ok {
		lastUsed.APIKey = ""
		response["last_used"] = lastUsed
	}
	respondJSON(w, http.StatusOK, response)
}

// Library returns the stored settings of one library.
func (h *HistoryHandler) Library(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		respondError(w, http.StatusBadRequest, "invalid library name")
		return
	}

	settings, ok, err := h.store.LibrarySettings(name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no settings for library")
		return
	}

	settings.APIKey = ""
	respondJSON(w, http.StatusOK, settings)
}
