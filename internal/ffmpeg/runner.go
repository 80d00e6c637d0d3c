// Package ffmpeg wraps invocation of the external filter executor. All
// planning packages stay process-free; anything that actually runs ffmpeg
// goes through a Runner so tests can substitute scripted output.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"loudsync/internal/services"
)

// Runner abstracts command execution for testability. onLine receives each
// output line from both stdout and stderr; ffmpeg writes its diagnostics to
// stderr, so callers that parse output must not assume a stream.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// CommandRunner executes the real binary, applying a per-invocation timeout.
type CommandRunner struct {
	Timeout time.Duration
}

// NewRunner returns a Runner with the given per-invocation timeout. A zero
// timeout disables the limit.
func NewRunner(timeout time.Duration) Runner {
	return CommandRunner{Timeout: timeout}
}

// Run starts the binary and streams its combined output through onLine. On
// timeout the process is killed and the returned error matches
// services.ErrTimeout.
func (r CommandRunner) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(rd io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(rd)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onLine != nil {
			onLine(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s exceeded %s", services.ErrTimeout, filepath.Base(binary), r.Timeout)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("run %s: %w", filepath.Base(binary), ctx.Err())
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// ExitCode extracts the process exit code from a Run error when the process
// started and exited non-zero.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
