package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"loudsync/internal/loudness"
	"loudsync/internal/pipeline"
)

// renderBatchResult prints the end-of-run report: per-file table, batch
// warnings, and pointers to the report and log artifacts.
func renderBatchResult(out io.Writer, result *pipeline.BatchResult, logPath string) {
	rows := make([][]string, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		rows = append(rows, []string{
			filepath.Base(outcome.InputPath),
			string(outcome.Kind),
			formatLoudness(outcome.Stats),
			outcomeDetail(outcome),
			outputCell(outcome),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"File", "Result", "LUFS", "Detail", "Output"},
			rows, 2))
	}

	for _, warning := range result.CrossfadeWarnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	if result.CrossfadeErr != nil {
		fmt.Fprintf(out, "crossfade failed: %v\n", result.CrossfadeErr)
	} else if result.CrossfadeOutput != "" {
		fmt.Fprintf(out, "Merged output: %s\n", result.CrossfadeOutput)
	}
	if result.CSVPath != "" {
		fmt.Fprintf(out, "Measurement report: %s\n", result.CSVPath)
	}

	succeeded, skipped, failed := result.Counts()
	fmt.Fprintf(out, "Run %s: %d succeeded, %d skipped, %d failed (log: %s)\n",
		result.RunID, succeeded, skipped, failed, logPath)
}

func formatLoudness(stats *loudness.Stats) string {
	if stats == nil {
		return ""
	}
	return loudness.FormatValue(stats.IntegratedLUFS)
}

func outcomeDetail(outcome pipeline.Outcome) string {
	parts := make([]string, 0, 2)
	if outcome.Reason != "" {
		parts = append(parts, outcome.Reason)
	}
	if outcome.FallbackOnePass {
		parts = append(parts, "one-pass fallback")
	}
	if len(parts) == 0 && outcome.Err != nil {
		parts = append(parts, outcome.Err.Error())
	}
	return strings.Join(parts, ", ")
}

func outputCell(outcome pipeline.Outcome) string {
	if outcome.OutputPath == "" {
		return ""
	}
	return filepath.Base(outcome.OutputPath)
}
