package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"loudsync/internal/config"
	"loudsync/internal/deps"
	"loudsync/internal/ffmpeg"
	"loudsync/internal/journal"
	"loudsync/internal/logging"
	"loudsync/internal/loudness"
	"loudsync/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var presetFlag string
	var keepFlag bool
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the input directory through the configured pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if presetFlag != "" {
				cfg.Normalize.Preset = presetFlag
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if keepFlag {
				cfg.Output.KeepIntermediates = true
			}
			mode := pipeline.ModeFor(cfg)
			if modeFlag != "" {
				mode, err = pipeline.ParseMode(modeFlag)
				if err != nil {
					return err
				}
			}
			return executeBatch(cmd, cfg, mode, !noJournal)
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Pipeline mode (measure, normalize, normalize+fade, full)")
	cmd.Flags().StringVarP(&presetFlag, "preset", "p", "", "Override the loudness preset for this run")
	cmd.Flags().BoolVar(&keepFlag, "keep-intermediates", false, "Keep cache intermediates after the run")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Skip recording this run in the journal")
	return cmd
}

// executeBatch wires the shared run plumbing: single-instance lock,
// executor resolution, target resolution, journal, and the end-of-run
// report.
func executeBatch(cmd *cobra.Command, cfg *config.Config, mode pipeline.Mode, useJournal bool) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, logPath, err := newRunLogger(cfg)
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "loudsync.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another loudsync run is active (lock %s)", lock.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release run lock", logging.Error(err))
		}
	}()

	ffmpegBin, err := deps.Resolve("ffmpeg", cfg.Paths.FFmpeg)
	if err != nil {
		return err
	}
	ffprobeBin, err := deps.Resolve("ffprobe", cfg.Paths.FFprobe)
	if err != nil {
		return err
	}

	runner := ffmpeg.NewRunner(cfg.ProcessTimeout())
	measurer := loudness.NewAnalyzer(ffmpegBin, runner, logger)

	tgt, err := resolveTarget(signalCtx, cmd.OutOrStdout(), cfg, measurer)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithRunner(runner),
		pipeline.WithMeasurer(measurer),
	}
	if useJournal {
		store, err := journal.Open(cfg.Paths.JournalPath)
		if err != nil {
			logger.Warn("journal unavailable, continuing without history", logging.Error(err))
		} else {
			defer store.Close()
			opts = append(opts, pipeline.WithJournal(store))
		}
	}

	p := pipeline.New(cfg, mode, tgt, ffmpegBin, ffprobeBin, logger, opts...)
	result, err := p.Run(signalCtx)
	if err != nil {
		return err
	}

	renderBatchResult(cmd.OutOrStdout(), result, logPath)

	_, _, failed := result.Counts()
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}
