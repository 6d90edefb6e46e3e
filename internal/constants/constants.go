// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort            = "5000"
	DefaultDBPath          = "vidfetch.db"
	DefaultDownloadsDir    = "downloads"
	DefaultFormat          = "best"
	DefaultConcurrency     = 4
	DefaultMaxPending      = 0
	DefaultJobTimeout      = 1 * time.Hour
	DefaultJobTTL          = 24 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
	DefaultHistoryLimit    = 20
	MaxHistoryLimit        = 500
	ShutdownTimeout        = 5 * time.Second
)

// Progress reporting
const (
	ProgressUpdateFreq = 500 * time.Millisecond
	WSPollInterval     = 500 * time.Millisecond
	WSWriteTimeout     = 10 * time.Second
	ProgressComplete   = "100%"
	ETAComplete        = "0s"
	ETAUnknown         = "N/A"
	ProgressZero       = "0%"
)

// ArtifactExtensions lists the container extensions probed, in order, when
// looking up a job's downloaded file.
var ArtifactExtensions = []string{".mp4", ".webm", ".mkv", ".mov", ".avi"}

// OutputTemplateExt is the yt-dlp placeholder for the chosen extension.
const OutputTemplateExt = ".%(ext)s"

// Error messages returned to clients
const (
	MsgURLRequired     = "URL is required"
	MsgInvalidURL      = "Invalid YouTube URL"
	MsgInvalidBody     = "Invalid request body"
	MsgFileNotFound    = "File not found"
	MsgJobNotFound     = "Job not found"
	MsgJobFinished     = "Job already finished"
	MsgQueueFull       = "Too many pending jobs"
	MsgCancelled       = "Download cancelled"
	MsgTimedOut        = "Download timed out"
	MsgShutdown        = "Server shutting down"
	MsgInvalidLimit    = "limit must be a positive number"
	DefaultTitlePrefix = "Video "
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)
