package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/cesargomez89/vidfetch/internal/logger"
	"github.com/cesargomez89/vidfetch/internal/storage"
	"github.com/cesargomez89/vidfetch/internal/store"
)

// Janitor evicts terminal jobs older than TTL from the registry and deletes
// their files.
type Janitor struct {
	ctx          context.Context
	Registry     *store.Registry
	Logger       *logger.Logger
	cancel       context.CancelFunc
	now          func() time.Time
	DownloadsDir string
	wg           sync.WaitGroup
	TTL          time.Duration
	Interval     time.Duration
}

func NewJanitor(registry *store.Registry, downloadsDir string, ttl, interval time.Duration, log *logger.Logger) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.Default()
	}

	return &Janitor{
		Registry:     registry,
		DownloadsDir: downloadsDir,
		TTL:          ttl,
		Interval:     interval,
		Logger:       log.WithComponent("janitor"),
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the sweep loop. A zero TTL disables eviction.
func (j *Janitor) Start() {
	if j.TTL <= 0 || j.Interval <= 0 {
		j.Logger.Info("Job eviction disabled")
		return
	}

	j.Logger.Info("Starting janitor", "ttl", j.TTL, "interval", j.Interval)
	j.wg.Add(1)
	go j.loop()
}

func (j *Janitor) Stop() {
	j.cancel()
	j.wg.Wait()
}

func (j *Janitor) loop() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep performs one eviction pass and returns the number of jobs removed.
func (j *Janitor) Sweep() int {
	expired := j.Registry.Expired(j.TTL, j.now())
	for _, job := range expired {
		if _, err := storage.RemoveArtifacts(j.DownloadsDir, job.ID); err != nil {
			j.Logger.Warn("Failed to remove artifacts", "job_id", job.ID, "error", err)
		}
		j.Registry.Delete(job.ID)
	}

	if len(expired) > 0 {
		j.Logger.Info("Evicted expired jobs", "count", len(expired))
	}
	return len(expired)
}
