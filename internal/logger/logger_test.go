package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cfg := Config{
		Level:  "info",
		Format: "text",
	}
	logger := New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}

	cfg.Format = "json"
	logger = New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}

	// Invalid level falls back to info
	cfg.Level = "invalid"
	logger = New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: "info", Format: "text"})
	logger.WithComponent("worker").Info("hello")

	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("Expected component attribute in output, got %q", buf.String())
	}
}

func TestWithJob(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: "info", Format: "json"})
	logger.WithJob("job-123", "https://youtu.be/abc").Info("running")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec["job_id"] != "job-123" {
		t.Errorf("Expected job_id job-123, got %v", rec["job_id"])
	}
	if rec["url"] != "https://youtu.be/abc" {
		t.Errorf("Expected url attribute, got %v", rec["url"])
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: "warn", Format: "text"})
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("Expected info record to be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("Expected warn record to be written")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Error("Expected default logger to not be nil")
	}
	if Discard() == nil {
		t.Error("Expected discard logger to not be nil")
	}
}
