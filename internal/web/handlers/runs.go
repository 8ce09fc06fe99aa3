package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pixelfin/pixelfin/internal/artwork"
	"github.com/pixelfin/pixelfin/internal/config"
	"github.com/pixelfin/pixelfin/internal/gallery"
	"github.com/pixelfin/pixelfin/internal/history"
	"github.com/pixelfin/pixelfin/internal/jellyfin"
	"github.com/pixelfin/pixelfin/internal/job"
)

// RunsHandler starts and tracks inventory runs.
type RunsHandler struct {
	config     *config.Config
	jobManager *JobManager
	history    *history.Store
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(cfg *config.Config, jm *JobManager, hist *history.Store) *RunsHandler {
	return &RunsHandler{
		config:     cfg,
		jobManager: jm,
		history:    hist,
	}
}

// StartRequest represents a run start request.
type StartRequest struct {
	Server       string            `json:"server"`
	APIKey       string            `json:"apikey"`
	Library      string            `json:"library"`
	Images       string            `json:"images"`
	MinRes       string            `json:"minres"`
	ZipNames     map[string]string `json:"zipnames"`
	BGColor      string            `json:"bgcolor"`
	TextColor    string            `json:"textcolor"`
	TableBGColor string            `json:"tablebgcolor"`
	HTML         bool              `json:"html"`
	Zip          bool              `json:"zip"`
}

// Start starts a new inventory run.
func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.Server == "" || req.APIKey == "" || req.Library == "" {
		respondError(w, http.StatusBadRequest, "server, apikey and library are required")
		return
	}
	if !req.HTML && !req.Zip {
		respondError(w, http.StatusBadRequest, "select at least one output, html or zip")
		return
	}
	if req.Images == "" {
		req.Images = artwork.CodeList(artwork.All())
	}
	if len(artwork.ParseCodes(req.Images)) == 0 {
		respondError(w, http.StatusBadRequest, "no valid image category codes selected")
		return
	}

	style := gallery.DefaultStyle()
	if req.BGColor == "" {
		req.BGColor = style.Background
	}
	if req.TextColor == "" {
		req.TextColor = style.Text
	}
	if req.TableBGColor == "" {
		req.TableBGColor = style.TableBG
	}

	options := RunJobOptions{
		Server:       req.Server,
		Library:      req.Library,
		Images:       req.Images,
		MinRes:       req.MinRes,
		ZipNames:     req.ZipNames,
		BGColor:      req.BGColor,
		TextColor:    req.TextColor,
		TableBGColor: req.TableBGColor,
		HTML:         req.HTML,
		Zip:          req.Zip,
	}

	jobID := uuid.New().String()
	runJob := h.jobManager.CreateJob(jobID, options)

	go h.runJob(runJob, req.APIKey)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  jobID,
		"library": req.Library,
		"status":  string(JobStatusPending),
	})
}

// Status returns the status of a run.
func (h *RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	runJob := h.jobManager.GetJob(jobID)
	if runJob == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, runJob)
}

// Events streams run events via SSE.
func (h *RunsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			runJob := h.jobManager.GetJob(id)
			if runJob == nil {
				return nil
			}
			return runJob
		},
		func(job SSEJob) any {
			return job
		},
	)
}

// Cancel cancels a run.
func (h *RunsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	runJob := h.jobManager.GetJob(jobID)
	if runJob == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	runJob.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runJob runs the inventory in the background.
func (h *RunsHandler) runJob(runJob *RunJob, apiKey string) {
	ctx, cancel := context.WithCancel(context.Background())
	runJob.cancel = cancel
	defer cancel()

	runJob.mu.Lock()
	runJob.Status = JobStatusRunning
	runJob.mu.Unlock()
	runJob.SendEvent(JobEvent{Type: "started", Message: "Inventory run started"})

	client, err := jellyfin.New(runJob.Options.Server, apiKey, &http.Client{Timeout: h.config.Jellyfin.Timeout})
	if err != nil {
		h.failJob(runJob, fmt.Sprintf("invalid server URL: %v", err))
		return
	}

	now := time.Now()
	fileStamp := now.Format("2006-01-02_15-04-05")
	libraryDir := filepath.Join(h.config.Output.Dir, runJob.Options.Library)

	opts := job.Options{
		Library:    runJob.Options.Library,
		Categories: artwork.ParseCodes(runJob.Options.Images),
		MinRes:     artwork.ParseMinRes(runJob.Options.MinRes),
		Overrides:  runJob.Options.ZipNames,
		Style: gallery.Style{
			Background: runJob.Options.BGColor,
			Text:       runJob.Options.TextColor,
			TableBG:    runJob.Options.TableBGColor,
		},
		Timestamp: now.Format("2006-01-02 15:04:05"),
		Quiet:     true,
		OnProgress: func(info job.ProgressInfo) {
			if info.Phase != "inventory" {
				runJob.SendEvent(JobEvent{Type: "phase", Message: info.Message})
				return
			}
			runJob.mu.Lock()
			runJob.ProcessedItems = info.Current
			runJob.TotalItems = info.Total
			if info.Total > 0 {
				runJob.Progress = info.Current * 100 / info.Total
			}
			runJob.mu.Unlock()
			runJob.SendEvent(JobEvent{
				Type: "progress",
				Data: map[string]any{
					"current": info.Current,
					"total":   info.Total,
					"name":    info.Name,
				},
			})
		},
	}

	var htmlName, zipName string
	if runJob.Options.HTML {
		htmlName = fmt.Sprintf("%s - %s.html", fileStamp, runJob.Options.Library)
		opts.HTMLPath = filepath.Join(libraryDir, htmlName)
	}
	if runJob.Options.Zip {
		zipName = fmt.Sprintf("%s - %s.zip", fileStamp, runJob.Options.Library)
		opts.ZipPath = filepath.Join(libraryDir, zipName)
	}

	result, err := job.Run(ctx, client, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.failJob(runJob, err.Error())
		return
	}

	h.saveHistory(runJob.Options, apiKey)

	jobResult := &RunJobResult{
		ItemCount:     result.ItemCount,
		MissingItems:  result.MissingItems,
		LowResItems:   result.LowResItems,
		ArchivedFiles: result.ArchivedFiles,
	}
	if htmlName != "" {
		jobResult.HTMLPath = outputURL(runJob.Options.Library, htmlName)
	}
	if zipName != "" {
		jobResult.ZipPath = outputURL(runJob.Options.Library, zipName)
	}

	completedAt := time.Now()
	runJob.mu.Lock()
	runJob.Status = JobStatusCompleted
	runJob.Result = jobResult
	runJob.CompletedAt = &completedAt
	runJob.mu.Unlock()
	runJob.SendEvent(JobEvent{Type: "completed", Data: jobResult})
}

func (h *RunsHandler) failJob(runJob *RunJob, message string) {
	log.Printf("run %s failed: %s", runJob.ID, sanitizeForLog(message))
	runJob.mu.Lock()
	runJob.Status = JobStatusFailed
	runJob.Error = message
	completedAt := time.Now()
	runJob.CompletedAt = &completedAt
	runJob.mu.Unlock()
	runJob.SendEvent(JobEvent{Type: "failed", Message: message})
}

func (h *RunsHandler) saveHistory(options RunJobOptions, apiKey string) {
	if h.history == nil {
		return
	}
	err := h.history.Save(options.Server, options.Library, history.Settings{
		Server:       options.Server,
		APIKey:       apiKey,
		Images:       options.Images,
		MinRes:       options.MinRes,
		ZipNames:     options.ZipNames,
		BGColor:      options.BGColor,
		TextColor:    options.TextColor,
		TableBGColor: options.TableBGColor,
	})
	if err != nil {
		log.Printf("could not save run history: %v", err)
	}
}

func outputURL(library, filename string) string {
	return "/output/" + url.PathEscape(library) + "/" + url.PathEscape(filename)
}
