package pipeline

import "loudsync/internal/loudness"

// OutcomeKind classifies a file's terminal result.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// Failure and skip reason tags. These end up in the journal, the CSV
// status column, and the end-of-run table.
const (
	ReasonMeasurement       = "MEASUREMENT"
	ReasonNormalization     = "NORMALIZATION"
	ReasonFade              = "FADE"
	ReasonCrossfade         = "CROSSFADE"
	ReasonTimeout           = "TIMEOUT"
	ReasonCancelled         = "CANCELLED"
	ReasonUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ReasonIO                = "IO"
)

// Outcome is one file's terminal result within a batch.
type Outcome struct {
	InputPath  string
	Kind       OutcomeKind
	OutputPath string
	Reason     string
	Err        error
	Stats      *loudness.Stats

	// FallbackOnePass records a two-pass request that degraded to one
	// pass after an unusable measurement.
	FallbackOnePass bool
	Warnings        []string
}

// BatchResult aggregates every file's outcome. It is finalized only after
// all files have been attempted; a batch never aborts on a per-file error.
type BatchResult struct {
	RunID    string
	Outcomes []Outcome

	// CrossfadeOutput is the merged output path in full mode.
	CrossfadeOutput   string
	CrossfadeErr      error
	CrossfadeWarnings []string

	// CSVPath is the measurement report location, empty when not written.
	CSVPath string
}

// ByInput returns the outcome recorded for an input path.
func (r *BatchResult) ByInput(path string) (Outcome, bool) {
	for _, outcome := range r.Outcomes {
		if outcome.InputPath == path {
			return outcome, true
		}
	}
	return Outcome{}, false
}

// Counts returns success, skipped, and failed totals.
func (r *BatchResult) Counts() (succeeded, skipped, failed int) {
	for _, outcome := range r.Outcomes {
		switch outcome.Kind {
		case OutcomeSuccess:
			succeeded++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return
}
