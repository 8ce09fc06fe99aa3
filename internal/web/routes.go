package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pixelfin/pixelfin/internal/web/handlers"
	"github.com/pixelfin/pixelfin/internal/web/static"
)

func (s *Server) setupRoutes() {
	runsHandler := handlers.NewRunsHandler(s.config, s.jobManager, s.history)
	historyHandler := handlers.NewHistoryHandler(s.history)
	outputsHandler := handlers.NewOutputsHandler(s.config.Output.Dir)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Runs (long-running operations)
		r.Post("/runs", runsHandler.Start)
		r.Get("/runs/{jobId}", runsHandler.Status)
		r.Get("/runs/{jobId}/events", runsHandler.Events)
		r.Delete("/runs/{jobId}", runsHandler.Cancel)

		// Form history
		r.Get("/history", historyHandler.Get)
		r.Get("/history/libraries/{name}", historyHandler.Library)

		// Generated artifacts
		r.Get("/outputs", outputsHandler.List)
		r.Delete("/outputs/{library}/{filename}", outputsHandler.Delete)
	})

	// Artifact downloads keep the same path shape the gallery backlinks use.
	s.router.Get("/output/{library}/{filename}", outputsHandler.Serve)

	// The run form
	s.router.Get("/", serveIndex)
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(static.Index())
}
