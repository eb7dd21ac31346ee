package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ReloadJob tracks an async gallery reload. Jobs are plain data; the
// JobManager's lock guards all access.
type ReloadJob struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Filled in on success.
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// JobManager tracks async jobs by ID.
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*ReloadJob
}

// NewJobManager creates an empty job manager.
func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*ReloadJob)}
}

// Create registers a new pending job and returns its ID.
func (m *JobManager) Create() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.jobs[id] = &ReloadJob{
		ID:        id,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
	m.mu.Unlock()
	return id
}

// SetRunning moves a job into the running state.
func (m *JobManager) SetRunning(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.Status = JobStatusRunning
	}
}

// Finish completes a job, recording either the load counters or the failure.
func (m *JobManager) Finish(id string, loaded, skipped int, err error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	job.CompletedAt = &now
	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
		return
	}
	job.Status = JobStatusCompleted
	job.Loaded = loaded
	job.Skipped = skipped
}

// Get returns a snapshot of a job by ID.
func (m *JobManager) Get(id string) (ReloadJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return ReloadJob{}, false
	}
	return *job, true
}

// GetJob handles GET /api/v1/jobs/{id}.
func (m *JobManager) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := m.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}
