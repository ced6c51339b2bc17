package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an export job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusCrawling   JobStatus = "crawling"
	StatusRendering  JobStatus = "rendering"
	StatusWriting    JobStatus = "writing"
	StatusNavigating JobStatus = "navigating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single export.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	PageID string `json:"page_id"`
	Nav    bool   `json:"nav"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	RootName  string    `json:"root_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	errors []string
}

// Progress tracks export progress.
type Progress struct {
	ItemsCrawled      int      `json:"items_crawled"`
	FragmentsRendered int      `json:"fragments_rendered"`
	ItemsDropped      int      `json:"items_dropped"`
	FilesWritten      int      `json:"files_written"`
	LinksResolved     int      `json:"links_resolved"`
	Errors            []string `json:"errors"`
}

// NewJob creates a queued export job for pageID.
func NewJob(pageID string, nav bool) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		PageID:    pageID,
		Nav:       nav,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs that are no longer running.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl && job.Status.Done()
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// Done reports whether the status is terminal.
func (st JobStatus) Done() bool {
	return st == StatusCompleted || st == StatusFailed
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetCrawled records the number of items the crawl produced.
func (j *Job) SetCrawled(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ItemsCrawled = n
	j.UpdatedAt = time.Now()
}

// SetRendered records render output and dropped items.
func (j *Job) SetRendered(fragments, dropped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FragmentsRendered = fragments
	j.Progress.ItemsDropped = dropped
	j.UpdatedAt = time.Now()
}

// SetWritten records the materialized tree.
func (j *Job) SetWritten(rootName string, files, links int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RootName = rootName
	j.Progress.FilesWritten = files
	j.Progress.LinksResolved = links
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	PageID    string    `json:"page_id"`
	Nav       bool      `json:"nav"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	RootName  string    `json:"root_name,omitempty"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		PageID:    j.PageID,
		Nav:       j.Nav,
		Status:    j.Status,
		Phase:     j.Phase,
		RootName:  j.RootName,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
