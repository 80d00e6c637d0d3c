package loudness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"loudsync/internal/ffmpeg"
	"loudsync/internal/logging"
	"loudsync/internal/services"
)

// ErrNoResult marks analysis output that contained no parsable result block.
var ErrNoResult = errors.New("no parsable loudness result")

// DefaultTargetI and DefaultTargetTP parameterize standalone measurement
// runs, where no normalization target has been resolved yet.
const (
	DefaultTargetI  = -16.0
	DefaultTargetTP = -1.5
)

// Analyzer runs the executor in analysis-only mode.
type Analyzer struct {
	binary string
	runner ffmpeg.Runner
	logger *slog.Logger
}

// NewAnalyzer constructs an Analyzer bound to a resolved executor binary.
func NewAnalyzer(binary string, runner ffmpeg.Runner, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{
		binary: binary,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "loudness"),
	}
}

// Measure analyzes one input without writing any output file. targetI and
// targetTP feed the analysis filter so the reported correction offset is
// relative to the caller's actual target.
func (a *Analyzer) Measure(ctx context.Context, path string, targetI, targetTP float64) (Stats, error) {
	if strings.TrimSpace(path) == "" {
		return Stats{}, errors.New("measure: empty path")
	}

	filter := fmt.Sprintf("loudnorm=I=%s:TP=%s:LRA=11:print_format=json",
		FormatValue(targetI), FormatValue(targetTP))
	args := []string{
		"-hide_banner", "-nostats",
		"-i", path,
		"-af", filter,
		"-f", "null", "-",
	}

	var mu sync.Mutex
	var lines []string
	err := a.runner.Run(ctx, a.binary, args, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		if errors.Is(err, services.ErrTimeout) || ctx.Err() != nil {
			return Stats{}, err
		}
		detail := outputTail(lines, 5)
		if code, ok := ffmpeg.ExitCode(err); ok {
			return Stats{}, fmt.Errorf("%w: analysis exited %d: %s", services.ErrExternalTool, code, detail)
		}
		return Stats{}, fmt.Errorf("%w: analysis failed: %v: %s", services.ErrExternalTool, err, detail)
	}

	block, ok := extractJSONBlock(lines)
	if !ok {
		a.logger.Warn("analysis produced no result block", logging.String("path", path))
		return Stats{}, fmt.Errorf("measure %s: %w", path, ErrNoResult)
	}
	stats, err := parseStats(block)
	if err != nil {
		a.logger.Warn("analysis block unparsable",
			logging.String("path", path), logging.Error(err))
		return Stats{}, fmt.Errorf("measure %s: %w: %v", path, ErrNoResult, err)
	}

	a.logger.Debug("measured input",
		logging.String("path", path),
		logging.Float64("integrated_lufs", stats.IntegratedLUFS),
		logging.Float64("true_peak_dbtp", stats.TruePeakDBTP),
		logging.Float64("loudness_range", stats.LoudnessRangeDB))
	return stats, nil
}

// extractJSONBlock pulls the result object out of noisy diagnostic lines.
// The block starts at the first line containing '{' and runs through the
// next line containing '}'; the executor prints it flat, so brace counting
// is unnecessary.
func extractJSONBlock(lines []string) (string, bool) {
	started := false
	var block []string
	for _, line := range lines {
		if !started {
			if strings.Contains(line, "{") {
				started = true
				line = line[strings.Index(line, "{"):]
			} else {
				continue
			}
		}
		block = append(block, line)
		if strings.Contains(line, "}") {
			return strings.Join(block, "\n"), true
		}
	}
	return "", false
}

func outputTail(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
