package ffmpeg_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"loudsync/internal/ffmpeg"
	"loudsync/internal/services"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive /bin/sh")
	}
}

func TestCommandRunnerStreamsBothStreams(t *testing.T) {
	requireShell(t)

	var mu sync.Mutex
	var lines []string
	runner := ffmpeg.NewRunner(0)
	err := runner.Run(t.Context(), "sh", []string{"-c", "echo out-line; echo err-line >&2"}, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := map[string]bool{}
	for _, line := range lines {
		seen[line] = true
	}
	if !seen["out-line"] || !seen["err-line"] {
		t.Fatalf("missing output lines: %v", lines)
	}
}

func TestCommandRunnerNonZeroExit(t *testing.T) {
	requireShell(t)

	runner := ffmpeg.NewRunner(0)
	err := runner.Run(t.Context(), "sh", []string{"-c", "exit 3"}, func(string) {})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	code, ok := ffmpeg.ExitCode(err)
	if !ok || code != 3 {
		t.Fatalf("exit code = %d (ok=%v), want 3", code, ok)
	}
}

func TestCommandRunnerTimeoutKillsProcess(t *testing.T) {
	requireShell(t)

	runner := ffmpeg.NewRunner(100 * time.Millisecond)
	start := time.Now()
	err := runner.Run(t.Context(), "sh", []string{"-c", "sleep 10"}, func(string) {})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("process was not killed promptly: %s", elapsed)
	}
}

func TestCommandRunnerCancellation(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	runner := ffmpeg.NewRunner(0)
	err := runner.Run(ctx, "sh", []string{"-c", "sleep 10"}, func(string) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
