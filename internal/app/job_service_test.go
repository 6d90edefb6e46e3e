package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/vidfetch/internal/config"
	"github.com/cesargomez89/vidfetch/internal/constants"
	"github.com/cesargomez89/vidfetch/internal/domain"
	"github.com/cesargomez89/vidfetch/internal/downloader"
	"github.com/cesargomez89/vidfetch/internal/logger"
	"github.com/cesargomez89/vidfetch/internal/media"
	"github.com/cesargomez89/vidfetch/internal/store"
)

type testEnv struct {
	svc     *JobService
	reg     *store.Registry
	db      *store.DB
	fetcher *media.MockFetcher
	worker  *downloader.Worker
}

func setupService(t *testing.T, maxPending int, fetcher *media.MockFetcher) *testEnv {
	t.Helper()

	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test_app.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	cfg := config.Defaults()
	cfg.DownloadsDir = t.TempDir()
	cfg.JobTimeout = 0

	if fetcher == nil {
		fetcher = media.NewMockFetcher()
	}

	log := logger.Discard()
	reg := store.NewRegistry()
	w := downloader.NewWorker(reg, fetcher, db, cfg, log)
	svc := NewJobService(reg, w, db, cfg.DownloadsDir, cfg.DefaultFormat, maxPending, log)

	t.Cleanup(func() {
		fetcher.Release()
		w.Stop()
		db.Close()
	})

	return &testEnv{svc: svc, reg: reg, db: db, fetcher: fetcher, worker: w}
}

func waitTerminal(t *testing.T, svc *JobService, id string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if j := svc.Status(id); j.Status.IsTerminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for job %s: %+v", id, svc.Status(id))
	return domain.Job{}
}

func TestJobService_Submit(t *testing.T) {
	env := setupService(t, 0, nil)

	job, err := env.svc.Submit("https://www.youtube.com/watch?v=abc", "best")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := uuid.Parse(job.ID); err != nil {
		t.Errorf("Expected a UUID job id, got %q", job.ID)
	}

	// The job is visible immediately
	status := env.svc.Status(job.ID)
	if status.Status == domain.JobStatusNotFound {
		t.Fatal("Expected job to be visible right after Submit")
	}

	final := waitTerminal(t, env.svc, job.ID)
	if final.Status != domain.JobStatusFinished {
		t.Fatalf("Expected finished, got %s (%s)", final.Status, final.Message)
	}
	if final.Title != "Mock Video" {
		t.Errorf("Expected title Mock Video, got %q", final.Title)
	}

	path, err := env.svc.Artifact(job.ID)
	if err != nil {
		t.Fatalf("Artifact failed: %v", err)
	}
	if filepath.Base(path) != job.ID+".mp4" {
		t.Errorf("Unexpected artifact path %s", path)
	}
}

func TestJobService_SubmitDefaultFormat(t *testing.T) {
	env := setupService(t, 0, nil)

	job, err := env.svc.Submit("https://youtu.be/abc", "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.Format != "best" {
		t.Errorf("Expected default format best, got %q", job.Format)
	}
	waitTerminal(t, env.svc, job.ID)

	calls := env.fetcher.Calls()
	if len(calls) != 1 || calls[0].Format != "best" {
		t.Errorf("Expected fetcher to receive format best, got %+v", calls)
	}
}

func TestJobService_SubmitInvalid(t *testing.T) {
	env := setupService(t, 0, nil)

	tests := []struct {
		url     string
		wantMsg string
	}{
		{"", constants.MsgURLRequired},
		{"not a url", constants.MsgInvalidURL},
		{"https://vimeo.com/1", constants.MsgInvalidURL},
	}

	for _, tt := range tests {
		_, err := env.svc.Submit(tt.url, "best")
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Submit(%q): expected ValidationError, got %v", tt.url, err)
			continue
		}
		if ve.Message != tt.wantMsg {
			t.Errorf("Submit(%q): message %q, want %q", tt.url, ve.Message, tt.wantMsg)
		}
	}

	if env.reg.Len() != 0 {
		t.Errorf("Expected no jobs created, got %d", env.reg.Len())
	}
	if len(env.fetcher.Calls()) != 0 {
		t.Error("Expected fetcher to never be called")
	}
}

func TestJobService_UnknownID(t *testing.T) {
	env := setupService(t, 0, nil)

	if got := env.svc.Status("missing"); got.Status != domain.JobStatusNotFound {
		t.Errorf("Expected not_found, got %s", got.Status)
	}
	if _, err := env.svc.Artifact("missing"); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Expected ErrArtifactNotFound, got %v", err)
	}
	if _, err := env.svc.Artifact("../../etc/passwd"); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Expected traversal id to be not found, got %v", err)
	}
	if err := env.svc.Cancel("missing"); !errors.Is(err, store.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestJobService_TerminalSnapshotIsStable(t *testing.T) {
	env := setupService(t, 0, nil)

	job, _ := env.svc.Submit("https://youtu.be/abc", "best")
	first := waitTerminal(t, env.svc, job.ID)

	for i := 0; i < 10; i++ {
		if again := env.svc.Status(job.ID); again != first {
			t.Fatalf("Terminal snapshot changed: %+v -> %+v", first, again)
		}
	}
}

func TestJobService_FailedJobHasNoArtifact(t *testing.T) {
	m := media.NewMockFetcher()
	m.Err = errors.New("ERROR: Unsupported URL")
	env := setupService(t, 0, m)

	job, err := env.svc.Submit("https://youtu.be/abc", "best")
	if err != nil {
		t.Fatalf("Submit should accept even if the fetch will fail: %v", err)
	}

	final := waitTerminal(t, env.svc, job.ID)
	if final.Status != domain.JobStatusError {
		t.Fatalf("Expected error, got %s", final.Status)
	}
	if final.Message != "ERROR: Unsupported URL" {
		t.Errorf("Unexpected message %q", final.Message)
	}
	if _, err := env.svc.Artifact(job.ID); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Expected no artifact for failed job, got %v", err)
	}
}

func TestJobService_ConcurrentSubmissions(t *testing.T) {
	env := setupService(t, 0, nil)

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := env.svc.Submit(fmt.Sprintf("https://youtu.be/video%d", i), "best")
			if err != nil {
				t.Errorf("Submit %d failed: %v", i, err)
				return
			}
			ids[i] = job.ID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, id := range ids {
		if seen[id] {
			t.Fatalf("Duplicate job id %s", id)
		}
		seen[id] = true

		final := waitTerminal(t, env.svc, id)
		if final.Status != domain.JobStatusFinished {
			t.Errorf("Job %d: expected finished, got %s", i, final.Status)
		}
		if final.URL != fmt.Sprintf("https://youtu.be/video%d", i) {
			t.Errorf("Job %d: url cross-contaminated: %s", i, final.URL)
		}
	}
}

func TestJobService_QueueFull(t *testing.T) {
	m := media.NewMockFetcher()
	m.Block = true
	env := setupService(t, 1, m)

	first, err := env.svc.Submit("https://youtu.be/one", "best")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if _, err := env.svc.Submit("https://youtu.be/two", "best"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
	if env.reg.Len() != 1 {
		t.Errorf("Expected rejected job to not be recorded, got %d jobs", env.reg.Len())
	}

	m.Release()
	waitTerminal(t, env.svc, first.ID)

	if _, err := env.svc.Submit("https://youtu.be/three", "best"); err != nil {
		t.Errorf("Expected admission once the first job finished, got %v", err)
	}
}

func TestJobService_Cancel(t *testing.T) {
	m := media.NewMockFetcher()
	m.Block = true
	env := setupService(t, 0, m)

	job, _ := env.svc.Submit("https://youtu.be/abc", "best")
	if err := env.svc.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	final := waitTerminal(t, env.svc, job.ID)
	if final.Status != domain.JobStatusError || final.Message != constants.MsgCancelled {
		t.Errorf("Expected cancelled error, got %s %q", final.Status, final.Message)
	}

	if err := env.svc.Cancel(job.ID); !errors.Is(err, store.ErrJobTerminal) {
		t.Errorf("Expected ErrJobTerminal for second cancel, got %v", err)
	}
}

func TestJobService_History(t *testing.T) {
	env := setupService(t, 0, nil)

	job, _ := env.svc.Submit("https://youtu.be/abc", "best")
	waitTerminal(t, env.svc, job.ID)

	// Archiving happens right after the terminal write
	var entries []domain.HistoryEntry
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var err error
		entries, err = env.svc.History(0)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(entries) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(entries))
	}
	if entries[0].ID != job.ID || entries[0].Status != domain.JobStatusFinished {
		t.Errorf("Unexpected history entry %+v", entries[0])
	}

	stats, err := env.svc.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Tracked != 1 || stats.ActiveJobs != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if stats.History == nil || stats.History.Finished != 1 {
		t.Errorf("Unexpected history stats %+v", stats.History)
	}
}

// raceRunner lets a test decide what the registry holds when Cancel lands.
type raceRunner struct {
	reg      *store.Registry
	onCancel func(j *domain.Job)
}

func (r *raceRunner) Submit(job domain.Job) {}

func (r *raceRunner) Cancel(id string) bool {
	if r.onCancel != nil {
		r.reg.Update(id, r.onCancel)
	}
	return true
}

func TestJobService_CancelAfterFinish(t *testing.T) {
	tests := []struct {
		name     string
		onCancel func(j *domain.Job)
		wantErr  error
	}{
		{
			name: "finished before cancel landed",
			onCancel: func(j *domain.Job) {
				j.Status = domain.JobStatusFinished
				j.Title = "Done"
			},
			wantErr: store.ErrJobTerminal,
		},
		{
			name: "failed for another reason",
			onCancel: func(j *domain.Job) {
				j.Status = domain.JobStatusError
				j.Message = "ERROR: Video unavailable"
			},
			wantErr: store.ErrJobTerminal,
		},
		{
			name: "cancelled",
			onCancel: func(j *domain.Job) {
				j.Status = domain.JobStatusError
				j.Message = constants.MsgCancelled
			},
			wantErr: nil,
		},
		{
			name:     "still running",
			onCancel: nil,
			wantErr:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := store.NewRegistry()
			runner := &raceRunner{reg: reg, onCancel: tt.onCancel}
			svc := NewJobService(reg, runner, nil, t.TempDir(), "", 0, logger.Discard())

			job, err := svc.Submit("https://youtu.be/abc", "")
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}

			err = svc.Cancel(job.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Cancel() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestJobService_HistoryEntryAndClear(t *testing.T) {
	env := setupService(t, 0, nil)

	job, _ := env.svc.Submit("https://youtu.be/abc", "best")
	waitTerminal(t, env.svc, job.ID)

	var entry *domain.HistoryEntry
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var err error
		entry, err = env.svc.HistoryEntry(job.ID)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrJobNotFound) {
			t.Fatalf("HistoryEntry failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if entry == nil || entry.Title != "Mock Video" {
		t.Fatalf("Unexpected history entry %+v", entry)
	}

	if _, err := env.svc.HistoryEntry("missing"); !errors.Is(err, store.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}

	if err := env.svc.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	if _, err := env.svc.HistoryEntry(job.ID); !errors.Is(err, store.ErrJobNotFound) {
		t.Errorf("Expected entry to be gone after clear, got %v", err)
	}

	// Live jobs are kept
	if got := env.svc.Status(job.ID); got.Status != domain.JobStatusFinished {
		t.Errorf("Expected live job to survive clear, got %s", got.Status)
	}
}
