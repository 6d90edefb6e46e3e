package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cesargomez89/vidfetch/internal/constants"
)

// MockFetcher replays a scripted sequence of events and optionally writes an
// artifact. It is safe for concurrent use.
type MockFetcher struct {
	Err       error
	PanicWith any
	Title     string
	Ext       string
	Events    []Event
	Delay     time.Duration
	// Block makes Fetch wait for ctx to be done (or Release) before finishing.
	Block   bool
	release chan struct{}
	calls   []MockCall
	mu      sync.Mutex
	once    sync.Once
}

type MockCall struct {
	URL            string
	OutputTemplate string
	Format         string
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Title: "Mock Video",
		Ext:   "mp4",
		Events: []Event{
			{Kind: EventDownloading, Percent: "42.0%", ETA: "00:10"},
			{Kind: EventFinished, Percent: constants.ProgressComplete, ETA: constants.ETAComplete},
		},
	}
}

// Release unblocks every Fetch waiting because of Block.
func (m *MockFetcher) Release() {
	m.once.Do(func() {
		m.mu.Lock()
		if m.release == nil {
			m.release = make(chan struct{})
		}
		ch := m.release
		m.mu.Unlock()
		close(ch)
	})
}

func (m *MockFetcher) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockFetcher) Fetch(ctx context.Context, url, outputTemplate, format string, onProgress ProgressFunc) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{URL: url, OutputTemplate: outputTemplate, Format: format})
	if m.release == nil {
		m.release = make(chan struct{})
	}
	release := m.release
	m.mu.Unlock()

	if m.PanicWith != nil {
		panic(m.PanicWith)
	}

	for _, ev := range m.Events {
		if m.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, &FetchError{URL: url, Err: ctx.Err(), Message: ctx.Err().Error()}
			case <-time.After(m.Delay):
			}
		}
		if onProgress != nil {
			onProgress(ev)
		}
	}

	if m.Block {
		select {
		case <-ctx.Done():
			return nil, &FetchError{URL: url, Err: ctx.Err(), Message: ctx.Err().Error()}
		case <-release:
		}
	}

	if m.Err != nil {
		var fe *FetchError
		if errors.As(m.Err, &fe) {
			return nil, m.Err
		}
		return nil, &FetchError{URL: url, Err: m.Err, Message: m.Err.Error()}
	}

	filename := strings.Replace(outputTemplate, "%(ext)s", m.Ext, 1)
	if err := os.MkdirAll(filepath.Dir(filename), constants.DirPermissions); err != nil {
		return nil, &FetchError{URL: url, Err: err, Message: err.Error()}
	}
	if err := os.WriteFile(filename, []byte("mock media"), constants.FilePermissions); err != nil {
		return nil, &FetchError{URL: url, Err: err, Message: err.Error()}
	}

	return &Result{Title: m.Title}, nil
}
