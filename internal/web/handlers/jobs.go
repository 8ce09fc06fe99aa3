package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// eventChannelBuffer is the per-listener event buffer size.
const eventChannelBuffer = 100

// RunJob represents one async inventory run.
type RunJob struct {
	EventBroadcaster

	ID             string         `json:"id"`
	Library        string         `json:"library"`
	Status         JobStatus      `json:"status"`
	Progress       int            `json:"progress"`
	TotalItems     int            `json:"total_items"`
	ProcessedItems int            `json:"processed_items"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Options        RunJobOptions  `json:"options"`
	Result         *RunJobResult  `json:"result,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *RunJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the run.
func (j *RunJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.mu.Unlock()
}

// MarshalJSON serializes the job under its lock so the status endpoint and
// SSE payloads see a consistent snapshot while the run goroutine mutates it.
func (j *RunJob) MarshalJSON() ([]byte, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	type snapshot struct {
		ID             string        `json:"id"`
		Library        string        `json:"library"`
		Status         JobStatus     `json:"status"`
		Progress       int           `json:"progress"`
		TotalItems     int           `json:"total_items"`
		ProcessedItems int           `json:"processed_items"`
		Error          string        `json:"error,omitempty"`
		StartedAt      time.Time     `json:"started_at"`
		CompletedAt    *time.Time    `json:"completed_at,omitempty"`
		Options        RunJobOptions `json:"options"`
		Result         *RunJobResult `json:"result,omitempty"`
	}
	return json.Marshal(snapshot{
		ID:             j.ID,
		Library:        j.Library,
		Status:         j.Status,
		Progress:       j.Progress,
		TotalItems:     j.TotalItems,
		ProcessedItems: j.ProcessedItems,
		Error:          j.Error,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
		Options:        j.Options,
		Result:         j.Result,
	})
}

// RunJobOptions represents the run configuration. The API key is deliberately
// not part of this struct so it never leaks through the status endpoint.
type RunJobOptions struct {
	Server       string            `json:"server"`
	Library      string            `json:"library"`
	Images       string            `json:"images"`
	MinRes       string            `json:"minres,omitempty"`
	ZipNames     map[string]string `json:"zipnames,omitempty"`
	BGColor      string            `json:"bgcolor"`
	TextColor    string            `json:"textcolor"`
	TableBGColor string            `json:"tablebgcolor"`
	HTML         bool              `json:"html"`
	Zip          bool              `json:"zip"`
}

// RunJobResult represents the outcome of a finished run.
type RunJobResult struct {
	ItemCount     int    `json:"item_count"`
	MissingItems  int    `json:"missing_items"`
	LowResItems   int    `json:"low_res_items"`
	ArchivedFiles int    `json:"archived_files"`
	HTMLPath      string `json:"html_path,omitempty"`
	ZipPath       string `json:"zip_path,omitempty"`
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for
// async jobs. Embed this in job structs to get AddListener, RemoveListener
// and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, eventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Run cancelled by user"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*RunJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*RunJob),
	}
}

// CreateJob creates a new run job.
func (m *JobManager) CreateJob(id string, options RunJobOptions) *RunJob {
	job := &RunJob{
		ID:        id,
		Library:   options.Library,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		Options:   options,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *RunJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*RunJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*RunJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
