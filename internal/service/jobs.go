package service

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a background job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents a background processing job such as a catalog sync or an
// embedding backfill. Jobs are in-memory only; they do not survive restarts.
type Job struct {
	ID          string
	Type        string // "sync" or "embed"
	Status      JobStatus
	Progress    int
	Total       int
	Result      *IngestResult
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// JobManager tracks background jobs.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*Job)}
}

// CreateJob creates a new pending job.
func (m *JobManager) CreateJob(jobType string, total int) *Job {
	job := &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		Type:      jobType,
		Status:    JobStatusPending,
		Total:     total,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	slog.Info("job created", "job_id", job.ID, "type", jobType)
	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs, most recent first.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}

	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return jobs
}

// UpdateProgress updates job progress.
func (m *JobManager) UpdateProgress(job *Job, current, total int) {
	job.mu.Lock()
	defer job.mu.Unlock()

	job.Progress = current
	job.Total = total
	if job.Status == JobStatusPending {
		job.Status = JobStatusRunning
	}
}

// SetRunning marks a job as running.
func (m *JobManager) SetRunning(job *Job) {
	job.mu.Lock()
	defer job.mu.Unlock()
	job.Status = JobStatusRunning
}

// Complete marks a job as completed with its result.
func (m *JobManager) Complete(job *Job, result *IngestResult) {
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Result = result
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	slog.Info("job completed", "job_id", job.ID, "errors", len(result.Errors))
}

// Fail marks a job as failed with an error.
func (m *JobManager) Fail(job *Job, err error) {
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	slog.Error("job failed", "job_id", job.ID, "error", err)
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Job{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		Progress:    j.Progress,
		Total:       j.Total,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
