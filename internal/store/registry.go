package store

import (
	"errors"
	"sync"
	"time"

	"github.com/cesargomez89/vidfetch/internal/domain"
)

var (
	ErrJobExists   = errors.New("job already exists")
	ErrJobNotFound = errors.New("job not found")
	ErrJobTerminal = errors.New("job is in a terminal state")
	ErrTooManyJobs = errors.New("too many active jobs")
)

// Registry is the in-memory source of truth for live jobs. Records are
// stored by value and replaced whole on every update, so readers always see
// a consistent snapshot.
type Registry struct {
	jobs map[string]domain.Job
	now  func() time.Time
	mu   sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]domain.Job),
		now:  time.Now,
	}
}

// Create inserts job with status starting. An existing record under the same
// id is left untouched.
func (r *Registry) Create(job domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(job)
}

// CreateLimited is Create with an admission cap: it fails with
// ErrTooManyJobs when maxActive non-terminal jobs already exist. A cap of 0
// means unlimited.
func (r *Registry) CreateLimited(job domain.Job, maxActive int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if maxActive > 0 && r.countActiveLocked() >= maxActive {
		return ErrTooManyJobs
	}
	return r.createLocked(job)
}

func (r *Registry) createLocked(job domain.Job) error {
	if _, ok := r.jobs[job.ID]; ok {
		return ErrJobExists
	}

	now := r.now()
	job.Status = domain.JobStatusStarting
	job.Progress = ""
	job.ETA = ""
	job.Title = ""
	job.Message = ""
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	r.jobs[job.ID] = job
	return nil
}

// Update applies fn to a copy of the record and stores the result. Unknown
// ids and terminal records are rejected.
func (r *Registry) Update(id string, fn func(j *domain.Job)) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	if current.Status.IsTerminal() {
		return current, ErrJobTerminal
	}

	next := current
	fn(&next)
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.now()
	r.jobs[id] = next
	return next, nil
}

func (r *Registry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	return job, ok
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// List returns a snapshot of every record
func (r *Registry) List() []domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]domain.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

// Expired returns terminal jobs last updated before now-ttl
func (r *Registry) Expired(ttl time.Duration, now time.Time) []domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := now.Add(-ttl)
	var expired []domain.Job
	for _, j := range r.jobs {
		if j.Status.IsTerminal() && j.UpdatedAt.Before(cutoff) {
			expired = append(expired, j)
		}
	}
	return expired
}

// CountActive returns the number of non-terminal jobs
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countActiveLocked()
}

func (r *Registry) countActiveLocked() int {
	n := 0
	for _, j := range r.jobs {
		if !j.Status.IsTerminal() {
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
