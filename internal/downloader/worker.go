package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cesargomez89/vidfetch/internal/config"
	"github.com/cesargomez89/vidfetch/internal/constants"
	"github.com/cesargomez89/vidfetch/internal/domain"
	"github.com/cesargomez89/vidfetch/internal/logger"
	"github.com/cesargomez89/vidfetch/internal/media"
	"github.com/cesargomez89/vidfetch/internal/storage"
	"github.com/cesargomez89/vidfetch/internal/store"
)

var (
	ErrJobCancelled     = errors.New("job was cancelled")
	ErrJobTimedOut      = errors.New("job timed out")
	ErrWorkerStopped    = errors.New("worker stopped")
	ErrNoPlayableOutput = errors.New("downloaded file has an unsupported container")
)

// HistoryStore archives terminal job outcomes.
type HistoryStore interface {
	ArchiveJob(entry domain.HistoryEntry) error
}

// Worker runs one goroutine per submitted job. At most MaxConcurrent of them
// drive the fetcher at the same time; the rest wait in status starting.
//
// A fetcher finished event only sets progress to 100% and ETA to 0s. The job
// status lags it and turns finished once Fetch returns and the artifact is on
// disk, so a finished job can always be downloaded.
type Worker struct {
	ctx           context.Context
	Registry      *store.Registry
	Fetcher       media.Fetcher
	History       HistoryStore
	Logger        *logger.Logger
	sem           *semaphore.Weighted
	cancel        context.CancelCauseFunc
	jobs          map[string]context.CancelCauseFunc
	DownloadsDir  string
	wg            sync.WaitGroup
	JobTimeout    time.Duration
	MaxConcurrent int
	mu            sync.Mutex
}

func NewWorker(registry *store.Registry, fetcher media.Fetcher, history HistoryStore, cfg *config.Config, log *logger.Logger) *Worker {
	ctx, cancel := context.WithCancelCause(context.Background())

	if log == nil {
		log = logger.Default()
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = constants.DefaultConcurrency
	}

	return &Worker{
		Registry:      registry,
		Fetcher:       fetcher,
		History:       history,
		DownloadsDir:  cfg.DownloadsDir,
		JobTimeout:    cfg.JobTimeout,
		MaxConcurrent: maxConcurrent,
		Logger:        log.WithComponent("worker"),
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
		jobs:          make(map[string]context.CancelCauseFunc),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Submit starts job in the background and returns immediately. The job must
// already exist in the registry.
func (w *Worker) Submit(job domain.Job) {
	ctx, cancel := context.WithCancelCause(w.ctx)

	w.mu.Lock()
	w.jobs[job.ID] = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.jobs, job.ID)
			w.mu.Unlock()
			cancel(nil)
		}()
		w.runJob(ctx, job)
	}()
}

// Cancel aborts an in-flight or waiting job. It reports false if the job is
// not owned by this worker.
func (w *Worker) Cancel(id string) bool {
	w.mu.Lock()
	cancel, ok := w.jobs[id]
	w.mu.Unlock()

	if !ok {
		return false
	}
	cancel(ErrJobCancelled)
	w.Logger.Info("Job cancellation requested", "job_id", id)
	return true
}

// Active returns the number of jobs owned by the worker, running or waiting.
func (w *Worker) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.jobs)
}

// Stop cancels every job and waits for their goroutines to record a terminal
// state.
func (w *Worker) Stop() {
	w.Logger.Info("Stopping worker", "active_jobs", w.Active())
	w.cancel(ErrWorkerStopped)
	w.wg.Wait()
}

func (w *Worker) runJob(ctx context.Context, job domain.Job) {
	log := w.Logger.WithJob(job.ID, job.URL)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in job", "panic", r)
			w.fail(ctx, job, fmt.Errorf("panic: %v", r), log)
		}
	}()

	if err := w.sem.Acquire(ctx, 1); err != nil {
		w.fail(ctx, job, err, log)
		return
	}
	defer w.sem.Release(1)

	if w.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, w.JobTimeout, ErrJobTimedOut)
		defer cancel()
	}

	log.Info("Running job", "format", job.Format)

	if err := storage.EnsureDir(w.DownloadsDir); err != nil {
		w.fail(ctx, job, fmt.Errorf("failed to create downloads dir: %w", err), log)
		return
	}

	output := storage.OutputTemplate(w.DownloadsDir, job.ID)
	res, err := w.Fetcher.Fetch(ctx, job.URL, output, job.Format, func(ev media.Event) {
		w.applyEvent(job.ID, ev, log)
	})
	if err != nil {
		w.fail(ctx, job, err, log)
		return
	}

	if _, ok := storage.FindArtifact(w.DownloadsDir, job.ID, constants.ArtifactExtensions); !ok {
		w.fail(ctx, job, ErrNoPlayableOutput, log)
		return
	}

	title := ""
	if res != nil {
		title = res.Title
	}
	if title == "" {
		title = constants.DefaultTitlePrefix + job.ID
	}

	w.finish(job, title, log)
}

func (w *Worker) applyEvent(id string, ev media.Event, log *logger.Logger) {
	_, err := w.Registry.Update(id, func(j *domain.Job) {
		j.Status = domain.JobStatusDownloading
		switch ev.Kind {
		case media.EventDownloading:
			j.Progress = ev.Percent
			j.ETA = ev.ETA
		case media.EventFinished:
			// The stream is on disk but yt-dlp may still be merging;
			// the job only turns finished when Fetch returns.
			j.Progress = constants.ProgressComplete
			j.ETA = constants.ETAComplete
		}
	})
	if err != nil {
		log.Debug("Dropped progress event", "kind", ev.Kind, "error", err)
	}
}

func (w *Worker) finish(job domain.Job, title string, log *logger.Logger) {
	updated, err := w.Registry.Update(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusFinished
		j.Progress = constants.ProgressComplete
		j.ETA = constants.ETAComplete
		j.Title = title
		j.Message = ""
	})
	if err != nil {
		log.Warn("Failed to mark job finished", "error", err)
		return
	}

	log.Info("Job completed successfully", "title", title)
	w.archive(updated, log)
}

func (w *Worker) fail(ctx context.Context, job domain.Job, err error, log *logger.Logger) {
	msg := failureMessage(ctx, err)

	updated, updateErr := w.Registry.Update(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusError
		j.Message = msg
		j.Progress = ""
		j.ETA = ""
		j.Title = ""
	})

	if n, rmErr := storage.RemoveArtifacts(w.DownloadsDir, job.ID); rmErr != nil {
		log.Warn("Failed to remove partial files", "error", rmErr)
	} else if n > 0 {
		log.Debug("Removed partial files", "count", n)
	}

	if updateErr != nil {
		log.Warn("Failed to mark job failed", "error", updateErr, "reason", msg)
		return
	}

	log.Error("Job failed", "error", msg)
	w.archive(updated, log)
}

func (w *Worker) archive(job domain.Job, log *logger.Logger) {
	if w.History == nil {
		return
	}
	if err := w.History.ArchiveJob(domain.NewHistoryEntry(job)); err != nil {
		log.Error("Failed to archive job", "error", err)
	}
}

// failureMessage turns err into the text shown to clients. Context causes
// take priority because the fetcher only sees a generic cancellation.
func failureMessage(ctx context.Context, err error) string {
	switch cause := context.Cause(ctx); {
	case errors.Is(cause, ErrJobCancelled):
		return constants.MsgCancelled
	case errors.Is(cause, ErrJobTimedOut):
		return constants.MsgTimedOut
	case errors.Is(cause, ErrWorkerStopped):
		return constants.MsgShutdown
	}

	var fe *media.FetchError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return err.Error()
}
