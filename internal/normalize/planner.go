// Package normalize plans loudness-correction filter parameters. Planning
// is pure: no file or process access, only the decision of which passes to
// run and the exact filter descriptor for each.
package normalize

import (
	"fmt"

	"loudsync/internal/loudness"
	"loudsync/internal/target"
)

// Plan is an ordered list of filter descriptors, consumed exactly once by
// the executor. One descriptor for a single estimate-and-apply pass, two
// when the correction pass carries measured values.
type Plan struct {
	Passes []string

	// Fallback is set when two-pass planning had no usable pass-1 stats
	// and degraded to one pass. Callers must surface this as a warning,
	// never as a plain success.
	Fallback bool
}

// CorrectionFilter returns the descriptor for the pass that writes output,
// always the last pass.
func (p Plan) CorrectionFilter() string {
	if len(p.Passes) == 0 {
		return ""
	}
	return p.Passes[len(p.Passes)-1]
}

// Build constructs the plan for one file. stats may be nil when
// measurement produced nothing usable; with twoPass set that triggers the
// one-pass fallback.
func Build(stats *loudness.Stats, tgt target.Target, twoPass bool) Plan {
	base := fmt.Sprintf("loudnorm=I=%s:TP=%s:LRA=%s",
		loudness.FormatValue(tgt.IntegratedLUFS),
		loudness.FormatValue(tgt.TruePeakCeilingDBTP),
		loudness.FormatValue(tgt.LoudnessRangeHint))

	if !twoPass {
		return Plan{Passes: []string{base}}
	}
	if stats == nil {
		return Plan{Passes: []string{base}, Fallback: true}
	}

	analysis := base + ":print_format=json"
	correction := base + fmt.Sprintf(
		":measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true:print_format=summary",
		loudness.FormatValue(stats.IntegratedLUFS),
		loudness.FormatValue(stats.TruePeakDBTP),
		loudness.FormatValue(stats.LoudnessRangeDB),
		loudness.FormatValue(stats.Threshold),
		loudness.FormatValue(stats.TargetOffset))
	return Plan{Passes: []string{analysis, correction}}
}
