// Package pipeline sequences measurement, normalization, fade, and
// crossfade across a batch of input files. Every per-file error is folded
// into that file's outcome; the batch itself always runs to completion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"loudsync/internal/config"
	"loudsync/internal/crossfade"
	"loudsync/internal/fade"
	"loudsync/internal/ffmpeg"
	"loudsync/internal/fileutil"
	"loudsync/internal/journal"
	"loudsync/internal/logging"
	"loudsync/internal/loudness"
	"loudsync/internal/media/ffprobe"
	"loudsync/internal/normalize"
	"loudsync/internal/services"
	"loudsync/internal/target"
)

// Measurer is the analysis capability the orchestrator consumes.
type Measurer interface {
	Measure(ctx context.Context, path string, targetI, targetTP float64) (loudness.Stats, error)
}

// DurationProber reports an audio file's duration in seconds.
type DurationProber func(ctx context.Context, path string) (float64, error)

// Pipeline drives one batch run. Construct with New; a Pipeline is good
// for a single Run call.
type Pipeline struct {
	cfg      *config.Config
	mode     Mode
	tgt      target.Target
	runner   ffmpeg.Runner
	measurer Measurer
	probe    DurationProber
	store    *journal.Store
	logger   *slog.Logger

	ffmpegBin string
	runID     string
	started   time.Time

	names     *namer
	artifacts *artifactSet
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunner injects a custom executor runner (primarily for tests).
func WithRunner(runner ffmpeg.Runner) Option {
	return func(p *Pipeline) {
		if runner != nil {
			p.runner = runner
		}
	}
}

// WithMeasurer injects a custom analyzer (primarily for tests).
func WithMeasurer(measurer Measurer) Option {
	return func(p *Pipeline) {
		if measurer != nil {
			p.measurer = measurer
		}
	}
}

// WithDurationProber injects a custom duration probe (primarily for tests).
func WithDurationProber(probe DurationProber) Option {
	return func(p *Pipeline) {
		if probe != nil {
			p.probe = probe
		}
	}
}

// WithJournal records run and file outcomes in the given store.
func WithJournal(store *journal.Store) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

// New constructs a Pipeline for one batch run. ffmpegBin and ffprobeBin
// must already be resolved; resolution failures abort before any file is
// touched.
func New(cfg *config.Config, mode Mode, tgt target.Target, ffmpegBin, ffprobeBin string, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:       cfg,
		mode:      mode,
		tgt:       tgt,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		ffmpegBin: ffmpegBin,
		runID:     uuid.NewString(),
		names:     newNamer(cfg.Output.Overwrite),
		artifacts: newArtifactSet(cfg.Output.KeepIntermediates),
	}
	p.runner = ffmpeg.NewRunner(cfg.ProcessTimeout())
	p.probe = func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, ffprobeBin, path)
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.measurer == nil {
		p.measurer = loudness.NewAnalyzer(ffmpegBin, p.runner, logger)
	}
	return p
}

// RunID identifies this batch run in logs and the journal.
func (p *Pipeline) RunID() string {
	return p.runID
}

// fileResult pairs a terminal outcome with the crossfade-ready artifact a
// successful full-mode pipeline produced.
type fileResult struct {
	index    int
	outcome  Outcome
	artifact string
}

// Run executes the batch and returns the aggregated result. The returned
// error covers batch-level failures only (scan, journal); per-file errors
// live in the outcomes.
func (p *Pipeline) Run(ctx context.Context) (*BatchResult, error) {
	ctx = services.WithRunID(ctx, p.runID)
	p.started = time.Now()

	inputs, err := scanInputs(p.cfg.Paths.InputDir)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{RunID: p.runID}
	if p.store != nil {
		run := journal.Run{
			ID:        p.runID,
			StartedAt: time.Now(),
			Mode:      string(p.mode),
			Preset:    p.cfg.Normalize.Preset,
			TargetI:   p.tgt.IntegratedLUFS,
			TargetTP:  p.tgt.TruePeakCeilingDBTP,
			InputDir:  p.cfg.Paths.InputDir,
			OutputDir: p.cfg.Paths.OutputDir,
		}
		if err := p.store.StartRun(ctx, run); err != nil {
			return nil, fmt.Errorf("journal run start: %w", err)
		}
	}

	p.logger.Info("batch started",
		logging.String("mode", string(p.mode)),
		logging.Int("inputs", len(inputs)),
		logging.Bool("two_pass", p.cfg.Normalize.TwoPass),
		logging.Float64("target_lufs", p.tgt.IntegratedLUFS),
		logging.Float64("target_tp", p.tgt.TruePeakCeilingDBTP))

	finals := p.reserveOutputs(inputs)
	results := p.processAll(ctx, inputs, finals)

	// Collect in input order; the workers finish in completion order and
	// the crossfade sequence must follow the scan order.
	outcomes := make([]Outcome, len(inputs))
	byIndex := make([]fileResult, len(inputs))
	for _, res := range results {
		outcomes[res.index] = res.outcome
		byIndex[res.index] = res
	}
	ready := make([]fileResult, 0, len(inputs))
	for _, res := range byIndex {
		if res.artifact != "" {
			ready = append(ready, res)
		}
	}
	result.Outcomes = outcomes

	if p.mode.crossfades() {
		p.runCrossfade(ctx, inputs, ready, result)
	}

	p.writeCSV(result)
	p.finish(ctx, result)
	return result, nil
}

// reserveOutputs claims every final output path up front, in scan order,
// so the input-to-name mapping never depends on worker scheduling. Measure
// runs produce no outputs and crossfade runs converge on one merged file.
func (p *Pipeline) reserveOutputs(inputs []scannedInput) []string {
	finals := make([]string, len(inputs))
	if p.mode == ModeMeasure || p.mode.crossfades() {
		return finals
	}
	for i, input := range inputs {
		if !input.supported {
			continue
		}
		finals[i] = p.names.reserve(p.cfg.Paths.OutputDir,
			outputBase(input.path), outputExt(input.path, p.cfg.Output.Extension))
	}
	return finals
}

// processAll fans the inputs across a bounded worker pool and aggregates
// results through a single collector goroutine.
func (p *Pipeline) processAll(ctx context.Context, inputs []scannedInput, finals []string) []fileResult {
	jobs := make(chan int)
	resultCh := make(chan fileResult)

	workers := p.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				resultCh <- p.processFile(ctx, int64(index), inputs[index], finals[index])
			}
		}()
	}

	done := make(chan []fileResult)
	go func() {
		collected := make([]fileResult, 0, len(inputs))
		for res := range resultCh {
			collected = append(collected, res)
		}
		done <- collected
	}()

	for index := range inputs {
		jobs <- index
	}
	close(jobs)
	wg.Wait()
	close(resultCh)
	return <-done
}

func (p *Pipeline) processFile(ctx context.Context, id int64, input scannedInput, final string) fileResult {
	ctx = services.WithFileID(ctx, id)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, p.logger)
	outcome := Outcome{InputPath: input.path}

	if !input.supported {
		outcome.Kind = OutcomeSkipped
		outcome.Reason = ReasonUnsupportedFormat
		logger.Info("skipping unsupported input", logging.String("path", input.path))
		return fileResult{index: int(id), outcome: outcome}
	}
	if ctx.Err() != nil {
		return fileResult{index: int(id), outcome: p.cancelled(outcome)}
	}

	// Measuring.
	var stats *loudness.Stats
	var measureErr error
	needsMeasure := p.mode == ModeMeasure || (p.mode.normalizes() && p.cfg.Normalize.TwoPass)
	if needsMeasure {
		measureCtx := services.WithStage(ctx, "measuring")
		measured, err := p.measurer.Measure(measureCtx, input.path, p.tgt.IntegratedLUFS, p.tgt.TruePeakCeilingDBTP)
		if err != nil {
			measureErr = err
		} else {
			stats = &measured
		}
	}
	outcome.Stats = stats

	if p.mode == ModeMeasure {
		if measureErr != nil {
			return fileResult{index: int(id), outcome: p.failed(outcome, ReasonMeasurement, measureErr)}
		}
		outcome.Kind = OutcomeSuccess
		return fileResult{index: int(id), outcome: outcome}
	}
	if ctx.Err() != nil {
		return fileResult{index: int(id), outcome: p.cancelled(outcome)}
	}

	// A measurement killed by the timeout or by cancellation fails the
	// file; only unusable results degrade to one-pass.
	if measureErr != nil && (errors.Is(measureErr, services.ErrTimeout) ||
		errors.Is(measureErr, context.Canceled) || errors.Is(measureErr, context.DeadlineExceeded)) {
		return fileResult{index: int(id), outcome: p.failed(outcome, ReasonMeasurement, measureErr)}
	}

	// Normalizing.
	plan := normalize.Build(stats, p.tgt, p.cfg.Normalize.TwoPass)
	if plan.Fallback {
		outcome.FallbackOnePass = true
		warning := "measurement unusable, degraded to one-pass normalization"
		if measureErr != nil {
			warning = fmt.Sprintf("%s: %v", warning, measureErr)
		}
		outcome.Warnings = append(outcome.Warnings, warning)
		logger.Warn("falling back to one-pass normalization",
			logging.String("path", input.path), logging.Error(measureErr))
	}

	ext := outputExt(input.path, p.cfg.Output.Extension)
	base := outputBase(input.path)

	var normalized string
	if p.mode.fades() {
		normalized = p.intermediatePath(p.cfg.NormalizedCacheDir(), base, "norm", ext)
	} else {
		normalized = final
	}

	normCtx := services.WithStage(ctx, "normalizing")
	args := normalizeArgs(input.path, normalized, plan.CorrectionFilter(), p.cfg.Output.SampleRate, ext)
	if err := p.runner.Run(normCtx, p.ffmpegBin, args, nil); err != nil {
		return fileResult{index: int(id), outcome: p.failed(outcome, ReasonNormalization, err)}
	}
	if p.mode.fades() {
		p.artifacts.track(normalized)
	}

	if !p.mode.fades() {
		outcome.Kind = OutcomeSuccess
		outcome.OutputPath = normalized
		logger.Info("file complete", logging.String("output", normalized))
		return fileResult{index: int(id), outcome: outcome}
	}
	if ctx.Err() != nil {
		return fileResult{index: int(id), outcome: p.cancelled(outcome)}
	}

	// Fading.
	faded, err := p.runFade(ctx, base, ext, normalized)
	if err != nil {
		return fileResult{index: int(id), outcome: p.failed(outcome, ReasonFade, err)}
	}
	if faded != normalized {
		p.artifacts.release(normalized, p.logger)
	}

	if !p.mode.crossfades() {
		if err := p.promote(faded, final); err != nil {
			return fileResult{index: int(id), outcome: p.failed(outcome, ReasonIO, err)}
		}
		outcome.Kind = OutcomeSuccess
		outcome.OutputPath = final
		logger.Info("file complete", logging.String("output", final))
		return fileResult{index: int(id), outcome: outcome}
	}

	// Crossfade-ready; the merge itself runs after every file has been
	// attempted.
	outcome.Kind = OutcomeSuccess
	return fileResult{index: int(id), outcome: outcome, artifact: faded}
}

// runFade applies the fade stage to src and returns the resulting
// artifact. A zero-length fade spec returns src untouched.
func (p *Pipeline) runFade(ctx context.Context, base, ext, src string) (string, error) {
	if !p.cfg.Fade.Enabled {
		return src, nil
	}
	spec := fade.Spec{
		FadeInMs:         p.cfg.Fade.FadeInMs,
		FadeOutMs:        p.cfg.Fade.FadeOutMs,
		FadeOutAnchor:    fade.Anchor(p.cfg.Fade.FadeOutAnchor),
		FadeOutStartSecs: p.cfg.Fade.FadeOutStartSeconds,
	}
	if spec.FadeInMs == 0 && spec.FadeOutMs == 0 {
		return src, nil
	}

	fadeCtx := services.WithStage(ctx, "fading")
	duration, err := p.probe(fadeCtx, src)
	if err != nil {
		return "", fmt.Errorf("probe duration: %w", err)
	}
	filter, err := fade.Plan(spec, duration)
	if err != nil {
		return "", err
	}
	if filter == "" {
		return src, nil
	}

	faded := p.intermediatePath(p.cfg.FadedCacheDir(), base, "fade", ext)
	if err := p.runner.Run(fadeCtx, p.ffmpegBin, fadeArgs(src, faded, filter, ext), nil); err != nil {
		return "", err
	}
	p.artifacts.track(faded)
	return faded, nil
}

// runCrossfade merges the crossfade-ready artifacts into one output.
// Files that failed earlier stages were already pruned; the merge needs
// at least two survivors unless the batch only ever had a single
// supported input, which is copied through.
func (p *Pipeline) runCrossfade(ctx context.Context, inputs []scannedInput, ready []fileResult, result *BatchResult) {
	supported := 0
	for _, input := range inputs {
		if input.supported {
			supported++
		}
	}
	pruned := supported - len(ready)
	if pruned > 0 {
		result.CrossfadeWarnings = append(result.CrossfadeWarnings,
			fmt.Sprintf("%d of %d inputs failed before the merge and were dropped from the sequence", pruned, supported))
	}

	ext := "." + p.cfg.Output.Extension
	if p.cfg.Output.Extension == "" && len(ready) > 0 {
		ext = filepath.Ext(ready[0].artifact)
	}

	if len(ready) < 2 {
		if len(ready) == 1 && supported == 1 {
			// Single-input batch: nothing to overlap, promote the artifact.
			final := p.names.reserve(p.cfg.Paths.OutputDir, "combined", ext)
			if err := p.promote(ready[0].artifact, final); err != nil {
				p.failReady(result, ready, ReasonIO, err)
				result.CrossfadeErr = err
				return
			}
			result.CrossfadeOutput = final
			result.CrossfadeWarnings = append(result.CrossfadeWarnings, "single input, copied without crossfade")
			p.setReadyOutput(result, ready, final)
			return
		}
		err := fmt.Errorf("crossfade: %w: %d survivor(s)", crossfade.ErrInsufficientInputs, len(ready))
		result.CrossfadeErr = err
		p.failReady(result, ready, ReasonCrossfade, err)
		return
	}

	crossCtx := services.WithStage(ctx, "crossfading")
	operands := make([]crossfade.Input, 0, len(ready))
	for _, res := range ready {
		duration, err := p.probe(crossCtx, res.artifact)
		if err != nil {
			result.CrossfadeErr = fmt.Errorf("probe %s: %w", res.artifact, err)
			p.failReady(result, ready, ReasonCrossfade, result.CrossfadeErr)
			return
		}
		operands = append(operands, crossfade.Input{Path: res.artifact, DurationSeconds: duration})
	}

	ops, err := crossfade.Plan(operands, crossfade.Spec{
		OverlapSeconds: p.cfg.Crossfade.OverlapSeconds,
		Curve:          p.cfg.Crossfade.Curve,
	})
	if err != nil {
		result.CrossfadeErr = err
		p.failReady(result, ready, ReasonCrossfade, err)
		return
	}

	final := p.names.reserve(p.cfg.Paths.OutputDir, "combined", ext)
	left := operands[0].Path
	for k, op := range ops {
		out := final
		if k < len(ops)-1 {
			out = p.intermediatePath(p.cfg.Paths.CacheDir, "combined", fmt.Sprintf("cross%d", k), ext)
		}
		if op.Clamped {
			result.CrossfadeWarnings = append(result.CrossfadeWarnings, op.Warning)
			p.logger.Warn("crossfade overlap clamped", logging.String("detail", op.Warning))
		}
		args := crossfadeArgs(left, op.RightPath, op.Filter, out, ext)
		if err := p.runner.Run(crossCtx, p.ffmpegBin, args, nil); err != nil {
			result.CrossfadeErr = err
			reason := ReasonCrossfade
			if errors.Is(err, services.ErrTimeout) {
				reason = ReasonTimeout
			} else if crossCtx.Err() != nil {
				reason = ReasonCancelled
			}
			p.failReady(result, ready, reason, err)
			return
		}
		p.artifacts.release(left, p.logger)
		p.artifacts.release(op.RightPath, p.logger)
		if out != final {
			p.artifacts.track(out)
		}
		left = out
	}

	result.CrossfadeOutput = final
	p.setReadyOutput(result, ready, final)
	p.logger.Info("crossfade complete",
		logging.Int("inputs", len(ready)), logging.String("output", final))
}

func (p *Pipeline) setReadyOutput(result *BatchResult, ready []fileResult, output string) {
	for _, res := range ready {
		result.Outcomes[res.index].OutputPath = output
	}
}

func (p *Pipeline) failReady(result *BatchResult, ready []fileResult, reason string, err error) {
	for _, res := range ready {
		outcome := result.Outcomes[res.index]
		outcome.Kind = OutcomeFailed
		outcome.Reason = reason
		outcome.Err = err
		outcome.OutputPath = ""
		result.Outcomes[res.index] = outcome
	}
}

// promote moves an intermediate artifact to its final path.
func (p *Pipeline) promote(artifact, final string) error {
	if err := fileutil.CopyFileVerified(artifact, final); err != nil {
		return fmt.Errorf("promote artifact: %w", err)
	}
	p.artifacts.release(artifact, p.logger)
	return nil
}

func (p *Pipeline) intermediatePath(dir, base, stage, ext string) string {
	short := p.runID
	if len(short) > 8 {
		short = short[:8]
	}
	unique := uuid.NewString()[:8]
	return filepath.Join(dir, fmt.Sprintf("%s__%s_%s_%s%s", base, stage, short, unique, ext))
}

func (p *Pipeline) failed(outcome Outcome, reason string, err error) Outcome {
	switch {
	case errors.Is(err, services.ErrTimeout):
		reason = ReasonTimeout
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		reason = ReasonCancelled
	}
	outcome.Kind = OutcomeFailed
	outcome.Reason = reason
	outcome.Err = err
	p.logger.Error("file failed",
		logging.String("path", outcome.InputPath),
		logging.String("reason", reason),
		logging.Error(err))
	return outcome
}

func (p *Pipeline) cancelled(outcome Outcome) Outcome {
	outcome.Kind = OutcomeFailed
	outcome.Reason = ReasonCancelled
	outcome.Err = context.Canceled
	return outcome
}

// writeCSV persists the measurement report when measurement ran.
func (p *Pipeline) writeCSV(result *BatchResult) {
	if !p.cfg.Output.WriteCSV {
		return
	}
	if p.mode != ModeMeasure && !p.cfg.Normalize.TwoPass {
		return
	}

	records := make([]loudness.Record, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		if outcome.Kind == OutcomeSkipped {
			continue
		}
		record := loudness.Record{File: outcome.InputPath}
		if outcome.Stats != nil {
			record.Stats = outcome.Stats
			record.Status = loudness.StatusOK
		} else if outcome.Reason != "" {
			record.Status = outcome.Reason
		} else {
			record.Status = ReasonMeasurement
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return
	}

	path := filepath.Join(p.cfg.Paths.OutputDir, p.cfg.Output.CSVName)
	if err := loudness.WriteCSV(path, records); err != nil {
		p.logger.Error("write measurement report", logging.Error(err))
		return
	}
	result.CSVPath = path
}

func (p *Pipeline) finish(ctx context.Context, result *BatchResult) {
	p.artifacts.cleanup(p.logger)
	if !p.cfg.Output.KeepIntermediates {
		_ = os.RemoveAll(p.cfg.NormalizedCacheDir())
		_ = os.RemoveAll(p.cfg.FadedCacheDir())
		_ = os.Remove(p.cfg.Paths.CacheDir)
	}

	if p.store != nil {
		// Journal writes are best effort once outcomes exist; the batch
		// result is already complete. A cancelled run still gets recorded.
		ctx = context.WithoutCancel(ctx)
		for _, outcome := range result.Outcomes {
			record := journal.FileRecord{
				RunID:           p.runID,
				InputPath:       outcome.InputPath,
				OutputPath:      outcome.OutputPath,
				Detail:          outcome.Reason,
				FallbackOnePass: outcome.FallbackOnePass,
				Warnings:        outcome.Warnings,
			}
			switch outcome.Kind {
			case OutcomeSuccess:
				record.Status = journal.FileStatusSuccess
				record.Detail = ""
			case OutcomeSkipped:
				record.Status = journal.FileStatusSkipped
			default:
				record.Status = journal.FileStatusFailed
				if outcome.Err != nil {
					record.Detail = fmt.Sprintf("%s: %v", outcome.Reason, outcome.Err)
				}
			}
			if outcome.Stats != nil {
				record.IntegratedLUFS = &outcome.Stats.IntegratedLUFS
				record.LoudnessRange = &outcome.Stats.LoudnessRangeDB
				record.TruePeakDBTP = &outcome.Stats.TruePeakDBTP
			}
			if err := p.store.RecordFile(ctx, record); err != nil {
				p.logger.Warn("journal file outcome", logging.Error(err))
			}
		}
		if err := p.store.FinishRun(ctx, p.runID, time.Now()); err != nil {
			p.logger.Warn("journal run finish", logging.Error(err))
		}
	}

	succeeded, skipped, failed := result.Counts()
	p.logger.Info("batch complete",
		logging.Int("succeeded", succeeded),
		logging.Int("skipped", skipped),
		logging.Int("failed", failed),
		logging.Duration("elapsed", time.Since(p.started).Round(time.Millisecond)))
}

// normalizeArgs builds the transform invocation for the correction pass.
func normalizeArgs(input, output, filter string, sampleRate int, ext string) []string {
	args := []string{"-hide_banner", "-y", "-i", input, "-af", filter, "-ar", fmt.Sprintf("%d", sampleRate)}
	args = append(args, ffmpeg.CodecArgs(ext)...)
	return append(args, output)
}

func fadeArgs(input, output, filter, ext string) []string {
	args := []string{"-hide_banner", "-y", "-i", input, "-vn", "-af", filter}
	args = append(args, ffmpeg.CodecArgs(ext)...)
	return append(args, output)
}

func crossfadeArgs(left, right, filter, output, ext string) []string {
	args := []string{
		"-hide_banner", "-y",
		"-i", left, "-i", right,
		"-filter_complex", "[0:a][1:a]" + filter + "[a]",
		"-map", "[a]",
	}
	args = append(args, ffmpeg.CodecArgs(ext)...)
	return append(args, output)
}
