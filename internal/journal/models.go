package journal

import (
	"strings"
	"time"
)

// Run is one batch run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Mode       string
	Preset     string
	TargetI    float64
	TargetTP   float64
	InputDir   string
	OutputDir  string
}

// File statuses mirror the per-file outcome set.
const (
	FileStatusSuccess = "success"
	FileStatusSkipped = "skipped"
	FileStatusFailed  = "failed"
)

// FileRecord is one file's outcome within a run. The loudness columns are
// nil when measurement never succeeded for the file.
type FileRecord struct {
	ID              int64
	RunID           string
	InputPath       string
	OutputPath      string
	Status          string
	Detail          string
	IntegratedLUFS  *float64
	LoudnessRange   *float64
	TruePeakDBTP    *float64
	FallbackOnePass bool
	Warnings        []string
	CreatedAt       time.Time
}

const warningSeparator = "\n"

func joinWarnings(warnings []string) string {
	return strings.Join(warnings, warningSeparator)
}

func splitWarnings(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, warningSeparator)
}
