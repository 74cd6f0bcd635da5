package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/docsect/internal/report"
	"github.com/google/uuid"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusRanking    JobStatus = "ranking"
	StatusExtracting JobStatus = "extracting"
	StatusCompleted  JobStatus = "completed"
	StatusNoResults  JobStatus = "no_results"
	StatusFailed     JobStatus = "failed"
)

// Done reports whether s is a terminal status.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusNoResults || s == StatusFailed
}

// Job tracks one asynchronous analysis.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Persona   string   `json:"persona"`
	Task      string   `json:"task"`
	Filenames []string `json:"filenames"`

	Progress Progress `json:"progress"`
	Message  string   `json:"message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	request report.Input
	sources []Source
	result  *report.Output
	errors  []string
}

// Progress counts work done so far.
type Progress struct {
	Documents  int      `json:"documents"`
	Parsed     int      `json:"parsed"`
	Candidates int      `json:"candidates"`
	Selected   int      `json:"selected"`
	Errors     []string `json:"errors"`
}

// NewJob creates a queued job for the request and its document bytes.
func NewJob(in report.Input, sources []Source) *Job {
	now := time.Now()
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Filename
	}
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Persona:   in.Persona.Role,
		Task:      in.JobToBeDone.Task,
		Filenames: names,
		Progress:  Progress{Documents: len(sources)},
		CreatedAt: now,
		UpdatedAt: now,
		request:   in,
		sources:   sources,
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

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Done() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
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

// SetStats copies run counters into the job's progress.
func (j *Job) SetStats(s RunStats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Documents = s.Documents
	j.Progress.Parsed = s.Parsed
	j.Progress.Candidates = s.Candidates
	j.Progress.Selected = s.Selected
	j.UpdatedAt = time.Now()
}

// Complete stores the output and marks the job completed. The document
// bytes are released.
func (j *Job) Complete(out *report.Output) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = out
	j.sources = nil
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Finish marks the job terminal without an output.
func (j *Job) Finish(status JobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sources = nil
	j.Status = status
	j.Phase = "done"
	j.Message = message
	j.UpdatedAt = time.Now()
}

// Request returns the analysis request and the document bytes.
func (j *Job) Request() (report.Input, []Source) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.request, j.sources
}

// Result returns the output (nil unless completed), the status and the
// message.
func (j *Job) Result() (*report.Output, JobStatus, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.Status, j.Message
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Persona   string    `json:"persona"`
	Task      string    `json:"task"`
	Filenames []string  `json:"filenames"`
	Progress  Progress  `json:"progress"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Persona:   j.Persona,
		Task:      j.Task,
		Filenames: append([]string{}, j.Filenames...),
		Progress:  p,
		Message:   j.Message,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
