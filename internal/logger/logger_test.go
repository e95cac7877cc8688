package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-co-op/gocron/v2"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "info", true)

	log.Debug("hidden")
	log.Info("shown", "chat_id", int64(7))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON log line: %v", err)
	}
	if entry["msg"] != "shown" {
		t.Errorf("Expected msg 'shown', got %v", entry["msg"])
	}
	if entry["chat_id"] != float64(7) {
		t.Errorf("Expected chat_id 7, got %v", entry["chat_id"])
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "debug", false)

	log.Debug("visible")

	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("Expected text handler output, got %q", buf.String())
	}
}

func TestCommandName(t *testing.T) {
	tests := map[string]string{
		"/task":             "task",
		"/task@shad_bot":    "task",
		"/scan_tasks now":   "scan_tasks",
		"/start@bot please": "start",
		"hello":             "",
		"":                  "",
	}

	for in, want := range tests {
		if got := commandName(in); got != want {
			t.Errorf("commandName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGocronLoggerTagsErrors(t *testing.T) {
	var buf bytes.Buffer
	l := NewGocronLogger(newLogger(&buf, "debug", true))

	l.Error("job lookup failed", "error", gocron.ErrJobNotFound, "job", "daily_dispatch")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Invalid JSON log line: %v\n%s", err, buf.String())
	}
	if entry["component"] != "gocron" || entry["error_kind"] != "job_not_found" || entry["job"] != "daily_dispatch" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestTagSchedulerErrorsOddArgs(t *testing.T) {
	got := tagSchedulerErrors([]any{"a", 1, "dangling"})
	if len(got) != 3 || got[2] != "dangling" {
		t.Errorf("Unexpected args: %v", got)
	}
}
