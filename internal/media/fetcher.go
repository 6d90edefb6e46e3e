// Package media wraps the external tool that retrieves media files.
package media

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cesargomez89/vidfetch/internal/constants"
)

type EventKind string

const (
	EventDownloading EventKind = "downloading"
	EventFinished    EventKind = "finished"
)

// Event is a progress notification emitted during a fetch. Percent and ETA
// are display strings.
type Event struct {
	Kind    EventKind
	Percent string
	ETA     string
}

// ProgressFunc receives events synchronously on the fetching goroutine.
type ProgressFunc func(Event)

type Result struct {
	Title string
}

// Fetcher retrieves url in the requested format to outputTemplate, where the
// template's extension placeholder is filled in by the fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url, outputTemplate, format string, onProgress ProgressFunc) (*Result, error)
}

// FetchError is returned for any failure inside the fetcher. Message is
// suitable for showing to clients.
type FetchError struct {
	Err     error
	URL     string
	Message string
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("failed to fetch %s", e.URL)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FormatPercent renders a percentage the way yt-dlp prints it, e.g. "42.0%".
func FormatPercent(p float64) string {
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return fmt.Sprintf("%.1f%%", p)
}

// FormatETA renders a remaining-time estimate as MM:SS or HH:MM:SS.
func FormatETA(d time.Duration) string {
	if d < 0 {
		return constants.ETAUnknown
	}
	secs := int(d.Round(time.Second).Seconds())
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
