package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/cesargomez89/vidfetch/internal/constants"
)

// YtDlpFetcher drives the yt-dlp binary through go-ytdlp.
type YtDlpFetcher struct {
	binaryPath   string
	progressFreq time.Duration
}

func NewYtDlpFetcher(binaryPath string) *YtDlpFetcher {
	return &YtDlpFetcher{
		binaryPath:   binaryPath,
		progressFreq: constants.ProgressUpdateFreq,
	}
}

// Install downloads a yt-dlp build into the go-ytdlp cache when none is
// available on the host.
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

func (f *YtDlpFetcher) Fetch(ctx context.Context, url, outputTemplate, format string, onProgress ProgressFunc) (*Result, error) {
	dl := ytdlp.New().
		Format(format).
		Output(outputTemplate).
		NoPlaylist()

	if f.binaryPath != "" {
		dl.SetExecutable(f.binaryPath)
	}

	var title string
	dl.ProgressFunc(f.progressFreq, func(update ytdlp.ProgressUpdate) {
		if update.Info != nil && update.Info.Title != nil && *update.Info.Title != "" {
			title = *update.Info.Title
		}
		if ev, ok := eventFromUpdate(update); ok && onProgress != nil {
			onProgress(ev)
		}
	})

	res, err := dl.Run(ctx, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &FetchError{URL: url, Err: ctxErr, Message: ctxErr.Error()}
		}
		return nil, &FetchError{URL: url, Err: err, Message: errorMessage(err, res)}
	}

	result := &Result{Title: title}
	if result.Title == "" && res != nil {
		if info, infoErr := res.GetExtractedInfo(); infoErr == nil && len(info) > 0 && info[0].Title != nil {
			result.Title = *info[0].Title
		}
	}
	return result, nil
}

func eventFromUpdate(update ytdlp.ProgressUpdate) (Event, bool) {
	switch update.Status {
	case ytdlp.ProgressStatusDownloading:
		eta := constants.ETAUnknown
		if update.TotalBytes > 0 {
			eta = FormatETA(update.ETA())
		}
		return Event{
			Kind:    EventDownloading,
			Percent: FormatPercent(update.Percent()),
			ETA:     eta,
		}, true
	case ytdlp.ProgressStatusFinished:
		return Event{
			Kind:    EventFinished,
			Percent: constants.ProgressComplete,
			ETA:     constants.ETAComplete,
		}, true
	default:
		return Event{}, false
	}
}

// errorMessage prefers the last "ERROR:" line yt-dlp printed over the bare
// exit status.
func errorMessage(err error, res *ytdlp.Result) string {
	if res != nil {
		if msg := lastErrorLine(res.Stderr); msg != "" {
			return msg
		}
	}
	return err.Error()
}

func lastErrorLine(stderr string) string {
	lines := strings.Split(stderr, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	return ""
}
