package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"loudsync/internal/journal"
	"loudsync/internal/loudness"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent runs, or the per-file detail of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg.Paths.JournalPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return renderRunDetail(cmd, store, args[0])
			}
			return renderRecentRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	return cmd
}

func renderRecentRuns(cmd *cobra.Command, store *journal.Store, limit int) error {
	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		finished := "running"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Local().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.RFC3339),
			finished,
			run.Mode,
			run.Preset,
			loudness.FormatValue(run.TargetI),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Run", "Started", "Finished", "Mode", "Preset", "Target"},
		rows, 5))
	return nil
}

func renderRunDetail(cmd *cobra.Command, store *journal.Store, runID string) error {
	files, err := store.FilesForRun(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("list run files: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No files recorded for run %s.\n", runID)
		return nil
	}

	rows := make([][]string, 0, len(files))
	for _, file := range files {
		lufs := ""
		if file.IntegratedLUFS != nil {
			lufs = loudness.FormatValue(*file.IntegratedLUFS)
		}
		rows = append(rows, []string{
			file.InputPath,
			file.Status,
			lufs,
			yesNo(file.FallbackOnePass),
			file.Detail,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"File", "Status", "LUFS", "One-pass", "Detail"},
		rows, 2))
	return nil
}
