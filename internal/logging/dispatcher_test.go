package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return logEntry
}

func TestNewDispatcherLogger(t *testing.T) {
	dl := NewDispatcherLogger(zerolog.New(&bytes.Buffer{}))

	if dl == nil {
		t.Fatal("expected non-nil DispatcherLogger")
	}
}

func TestDispatcherLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("test message", "key1", "value1", "key2", 42)

	logEntry := decodeLine(t, &buf)
	if logEntry["level"] != "debug" {
		t.Errorf("expected level 'debug', got %v", logEntry["level"])
	}
	if logEntry["message"] != "test message" {
		t.Errorf("expected message 'test message', got %v", logEntry["message"])
	}
	if logEntry["key1"] != "value1" {
		t.Errorf("expected key1='value1', got %v", logEntry["key1"])
	}
	if logEntry["key2"] != float64(42) { // JSON numbers are float64
		t.Errorf("expected key2=42, got %v", logEntry["key2"])
	}
	if logEntry["component"] != "loop" {
		t.Errorf("expected component='loop', got %v", logEntry["component"])
	}
}

func TestDispatcherLogger_Warn(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Warn("audio blocked", "reason", "autoplay")

	logEntry := decodeLine(t, &buf)
	if logEntry["level"] != "warn" {
		t.Errorf("expected level 'warn', got %v", logEntry["level"])
	}
	if logEntry["reason"] != "autoplay" {
		t.Errorf("expected reason='autoplay', got %v", logEntry["reason"])
	}
}

func TestDispatcherLogger_ErrorWithDuration(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("event failed", "command", "load", "duration", 1500*time.Millisecond)

	logEntry := decodeLine(t, &buf)
	if logEntry["level"] != "error" {
		t.Errorf("expected level 'error', got %v", logEntry["level"])
	}
	if logEntry["durationMs"] != float64(1500) {
		t.Errorf("expected durationMs=1500, got %v", logEntry["durationMs"])
	}
	if _, ok := logEntry["duration"]; ok {
		t.Error("raw duration should be replaced by durationMs")
	}
}

func TestDispatcherLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %q", buf.String())
	}
}

func TestToFields_OddAndNonStringKeys(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "skipped", "dangling"})

	if len(fields) != 1 || fields["a"] != 1 {
		t.Errorf("unexpected fields: %v", fields)
	}
}
