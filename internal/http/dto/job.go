package dto

import (
	"github.com/cesargomez89/vidfetch/internal/app"
	"github.com/cesargomez89/vidfetch/internal/domain"
	"github.com/cesargomez89/vidfetch/internal/store"
)

type ConvertRequest struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
}

type ConvertResponse struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// ProgressResponse is the public view of a job; bookkeeping fields stay internal.
type ProgressResponse struct {
	Status   string `json:"status"`
	Progress string `json:"progress,omitempty"`
	ETA      string `json:"eta,omitempty"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
}

func NewProgressResponse(j domain.Job) ProgressResponse {
	return ProgressResponse{
		Status:   string(j.Status),
		Progress: j.Progress,
		ETA:      j.ETA,
		Title:    j.Title,
		Message:  j.Message,
	}
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	History     *store.HistoryStats `json:"history,omitempty"`
	Status      string              `json:"status"`
	ActiveJobs  int                 `json:"active_jobs"`
	TrackedJobs int                 `json:"tracked_jobs"`
}

func NewHealthResponse(stats *app.Stats) HealthResponse {
	resp := HealthResponse{Status: "ok"}
	if stats != nil {
		resp.ActiveJobs = stats.ActiveJobs
		resp.TrackedJobs = stats.Tracked
		resp.History = stats.History
	}
	return resp
}
