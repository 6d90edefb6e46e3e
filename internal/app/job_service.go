package app

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cesargomez89/vidfetch/internal/constants"
	"github.com/cesargomez89/vidfetch/internal/domain"
	"github.com/cesargomez89/vidfetch/internal/logger"
	"github.com/cesargomez89/vidfetch/internal/storage"
	"github.com/cesargomez89/vidfetch/internal/store"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrQueueFull        = errors.New("too many pending jobs")
)

// Runner executes accepted jobs in the background.
type Runner interface {
	Submit(job domain.Job)
	Cancel(id string) bool
}

type HistoryReader interface {
	GetHistory(id string) (*domain.HistoryEntry, error)
	ListHistory(limit int) ([]domain.HistoryEntry, error)
	GetHistoryStats() (*store.HistoryStats, error)
	ClearHistory() error
}

type JobService struct {
	Registry      *store.Registry
	Runner        Runner
	HistoryRepo   HistoryReader
	Logger        *logger.Logger
	DownloadsDir  string
	DefaultFormat string
	MaxPending    int
}

func NewJobService(registry *store.Registry, runner Runner, history HistoryReader, downloadsDir, defaultFormat string, maxPending int, log *logger.Logger) *JobService {
	if log == nil {
		log = logger.Default()
	}
	if defaultFormat == "" {
		defaultFormat = constants.DefaultFormat
	}
	return &JobService{
		Registry:      registry,
		Runner:        runner,
		HistoryRepo:   history,
		DownloadsDir:  downloadsDir,
		DefaultFormat: defaultFormat,
		MaxPending:    maxPending,
		Logger:        log.WithComponent("jobs"),
	}
}

// Submit validates url, records a new job and hands it to the runner. It
// returns as soon as the job is registered.
func (s *JobService) Submit(url, format string) (domain.Job, error) {
	if err := domain.ValidateSourceURL(url); err != nil {
		return domain.Job{}, err
	}
	if format == "" {
		format = s.DefaultFormat
	}

	job := domain.Job{
		ID:     uuid.New().String(),
		URL:    url,
		Format: format,
	}

	if err := s.Registry.CreateLimited(job, s.MaxPending); err != nil {
		if errors.Is(err, store.ErrTooManyJobs) {
			s.Logger.Warn("Job rejected, queue full", "max_pending", s.MaxPending)
			return domain.Job{}, ErrQueueFull
		}
		return domain.Job{}, fmt.Errorf("failed to create job: %w", err)
	}

	created, _ := s.Registry.Get(job.ID)
	s.Runner.Submit(created)
	s.Logger.Info("Job submitted", "job_id", job.ID, "url", url, "format", format)
	return created, nil
}

// Status returns the current snapshot, or a not_found job for unknown ids.
func (s *JobService) Status(id string) domain.Job {
	job, ok := s.Registry.Get(id)
	if !ok {
		return domain.NotFoundJob(id)
	}
	return job
}

// Artifact locates the downloaded file for id by extension probing. The job
// status is not consulted.
func (s *JobService) Artifact(id string) (string, error) {
	path, ok := storage.FindArtifact(s.DownloadsDir, id, constants.ArtifactExtensions)
	if !ok {
		return "", ErrArtifactNotFound
	}
	return path, nil
}

// Cancel aborts a job that has not reached a terminal state.
func (s *JobService) Cancel(id string) error {
	job, ok := s.Registry.Get(id)
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return store.ErrJobTerminal
	}
	if !s.Runner.Cancel(id) {
		// Finished between the lookup and the cancel
		return store.ErrJobTerminal
	}

	// The runner may have written its outcome before the cancel landed
	if job, ok := s.Registry.Get(id); ok && job.Status.IsTerminal() && job.Message != constants.MsgCancelled {
		return store.ErrJobTerminal
	}
	return nil
}

func (s *JobService) History(limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	if limit > constants.MaxHistoryLimit {
		limit = constants.MaxHistoryLimit
	}
	if s.HistoryRepo == nil {
		return []domain.HistoryEntry{}, nil
	}
	return s.HistoryRepo.ListHistory(limit)
}

// HistoryEntry returns the archived outcome of a terminal job.
func (s *JobService) HistoryEntry(id string) (*domain.HistoryEntry, error) {
	if s.HistoryRepo == nil {
		return nil, store.ErrJobNotFound
	}
	entry, err := s.HistoryRepo.GetHistory(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	if entry == nil {
		return nil, store.ErrJobNotFound
	}
	return entry, nil
}

// ClearHistory drops every archived outcome. Live jobs are not touched.
func (s *JobService) ClearHistory() error {
	if s.HistoryRepo == nil {
		return nil
	}
	if err := s.HistoryRepo.ClearHistory(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.Logger.Info("Job history cleared")
	return nil
}

type Stats struct {
	History    *store.HistoryStats `json:"history,omitempty"`
	ActiveJobs int                 `json:"active_jobs"`
	Tracked    int                 `json:"tracked_jobs"`
}

func (s *JobService) Stats() (*Stats, error) {
	stats := &Stats{
		ActiveJobs: s.Registry.CountActive(),
		Tracked:    s.Registry.Len(),
	}
	if s.HistoryRepo == nil {
		return stats, nil
	}
	hs, err := s.HistoryRepo.GetHistoryStats()
	if err != nil {
		return stats, fmt.Errorf("failed to get history stats: %w", err)
	}
	stats.History = hs
	return stats, nil
}
