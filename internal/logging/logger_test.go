package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loudsync/internal/logging"
	"loudsync/internal/services"
)

func TestNewConsoleWritesComponentPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loudsync.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "pipeline")
	component.Info("file complete", logging.String("output", "track_norm.wav"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.Contains(line, "INFO pipeline: file complete") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "output=track_norm.wav") {
		t.Fatalf("missing attribute in console line: %q", line)
	}
}

func TestNewConsoleSuppressesDebugAtInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loudsync.log")
	logger, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("probe detail")
	logger.Info("probe complete")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "probe detail") {
		t.Fatalf("debug record leaked at info level: %q", string(data))
	}
	if !strings.Contains(string(data), "probe complete") {
		t.Fatalf("info record missing: %q", string(data))
	}
}

func TestNewJSONEmitsLowercaseLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loudsync.jsonl")
	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Warn("clamped overlap", logging.Float64("overlap_seconds", 1.25))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode json record: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("level = %v, want warn", record["level"])
	}
	if record["msg"] != "clamped overlap" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("missing ts key: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAttachesRunFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loudsync.log")
	logger, err := logging.New(logging.Options{OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithRunID(t.Context(), "run-42")
	ctx = services.WithStage(ctx, "measuring")
	ctx = services.WithFileID(ctx, 7)

	logging.WithContext(ctx, logger).Info("stage started")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	for _, want := range []string{"run_id=run-42", "stage=measuring", "file_id=7"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestContextFieldsEmptyContext(t *testing.T) {
	if fields := logging.ContextFields(t.Context()); len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
}
