package pipeline

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/litweb/internal/web"
)

// JobStatus represents the state of a build job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusLoading   JobStatus = "loading"
	StatusTangling  JobStatus = "tangling"
	StatusWeaving   JobStatus = "weaving"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Job tracks loading, tangling and weaving one web.
type Job struct {
	mu sync.Mutex

	ID   string `json:"job_id"`
	Path string `json:"path"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Summary Summary `json:"summary"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Confine keeps tangled files inside the output directory. Set it
	// before Submit.
	Confine bool `json:"-"`

	// Internal: not serialized.
	web    *web.Web
	errors []string
	done   chan struct{}
}

// Summary counts what a job read and wrote.
type Summary struct {
	Lines       int      `json:"lines"`
	Chunks      int      `json:"chunks"`
	ParseErrors int      `json:"parse_errors"`
	Written     []string `json:"written"`   // Files replaced
	Unchanged   []string `json:"unchanged"` // Files already up to date
	Document    string   `json:"document,omitempty"`
	Errors      []string `json:"errors"`
}

// NewJob returns a queued job for the web at path.
func NewJob(path string) *Job {
	now := time.Now()
	return &Job{
		ID:        newJobID(),
		Path:      path,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		done:      make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
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

// Latest returns the most recent job for path, or nil.
func (s *JobStore) Latest(path string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Job
	for _, j := range s.jobs {
		// IDs sort by creation time.
		if j.Path == path && (latest == nil || j.ID > latest.ID) {
			latest = j
		}
	}
	return latest
}

// List returns every job, oldest first.
func (s *JobStore) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].ID < jobs[b].ID })
	return jobs
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
	j.Summary.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetLoaded records the result of the load phase.
func (j *Job) SetLoaded(w *web.Web, lines, parseErrors int, hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.web = w
	j.ContentHash = hash
	j.Summary.Lines = lines
	j.Summary.ParseErrors = parseErrors
	if w != nil {
		j.Summary.Chunks = len(w.Chunks)
	}
	j.UpdatedAt = time.Now()
}

// AddOutputs records files written or left unchanged by tangling.
func (j *Job) AddOutputs(written, unchanged []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Summary.Written = append(j.Summary.Written, written...)
	j.Summary.Unchanged = append(j.Summary.Unchanged, unchanged...)
	j.UpdatedAt = time.Now()
}

// SetDocument records the woven document path.
func (j *Job) SetDocument(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Summary.Document = path
	j.UpdatedAt = time.Now()
}

// Web returns the loaded web, or nil before loading succeeded.
func (j *Job) Web() *web.Web {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.web
}

// Done is closed when the job reaches a final status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) finish(status JobStatus, phase string) {
	j.SetStatus(status, phase)
	close(j.done)
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Path        string    `json:"path"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	ContentHash string    `json:"content_hash,omitempty"`
	Summary     Summary   `json:"summary"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:          j.ID,
		Path:        j.Path,
		Status:      j.Status,
		Phase:       j.Phase,
		ContentHash: j.ContentHash,
		Summary: Summary{
			Lines:       j.Summary.Lines,
			Chunks:      j.Summary.Chunks,
			ParseErrors: j.Summary.ParseErrors,
			Written:     nonNil(j.Summary.Written),
			Unchanged:   nonNil(j.Summary.Unchanged),
			Document:    j.Summary.Document,
			Errors:      nonNil(j.Summary.Errors),
		},
	}
}

func nonNil(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	return slices.Clone(s)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
