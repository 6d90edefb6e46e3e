package domain

import "time"

type JobStatus string

const (
	JobStatusStarting    JobStatus = "starting"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusFinished    JobStatus = "finished"
	JobStatusError       JobStatus = "error"
	// JobStatusNotFound is reported for unknown ids and is never stored.
	JobStatusNotFound JobStatus = "not_found"
)

// IsTerminal reports whether no further mutation may happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusError
}

// Job is the tracked state of one submitted download
type Job struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	Status    JobStatus `json:"status"`
	Progress  string    `json:"progress,omitempty"`
	ETA       string    `json:"eta,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// NotFoundJob is the synthetic snapshot returned for unknown ids
func NotFoundJob(id string) Job {
	return Job{ID: id, Status: JobStatusNotFound}
}

// HistoryEntry is the archived outcome of a terminal job
type HistoryEntry struct {
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
	ID         string    `json:"id" db:"id"`
	URL        string    `json:"url" db:"url"`
	Format     string    `json:"format" db:"format"`
	Status     JobStatus `json:"status" db:"status"`
	Title      string    `json:"title,omitempty" db:"title"`
	Message    string    `json:"message,omitempty" db:"message"`
}

// NewHistoryEntry builds the archive row for a terminal job
func NewHistoryEntry(j Job) HistoryEntry {
	return HistoryEntry{
		ID:         j.ID,
		URL:        j.URL,
		Format:     j.Format,
		Status:     j.Status,
		Title:      j.Title,
		Message:    j.Message,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.UpdatedAt,
	}
}
