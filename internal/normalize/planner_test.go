package normalize_test

import (
	"strings"
	"testing"

	"loudsync/internal/loudness"
	"loudsync/internal/normalize"
	"loudsync/internal/target"
)

var testTarget = target.Target{IntegratedLUFS: -16.0, TruePeakCeilingDBTP: -1.5, LoudnessRangeHint: 11.0}

func TestBuildOnePass(t *testing.T) {
	plan := normalize.Build(nil, testTarget, false)
	if len(plan.Passes) != 1 {
		t.Fatalf("expected 1 pass, got %d", len(plan.Passes))
	}
	if plan.Fallback {
		t.Fatal("explicit one-pass is not a fallback")
	}
	if got := plan.CorrectionFilter(); got != "loudnorm=I=-16:TP=-1.5:LRA=11" {
		t.Fatalf("unexpected filter: %s", got)
	}
}

func TestBuildTwoPassCarriesMeasuredValuesExactly(t *testing.T) {
	stats := &loudness.Stats{
		IntegratedLUFS:  -12.84,
		TruePeakDBTP:    1.28,
		LoudnessRangeDB: 11.0,
		Threshold:       -23.47,
		TargetOffset:    0.42,
	}
	plan := normalize.Build(stats, testTarget, true)
	if len(plan.Passes) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(plan.Passes))
	}
	if plan.Fallback {
		t.Fatal("fallback must not be set with usable stats")
	}

	analysis := plan.Passes[0]
	if !strings.Contains(analysis, "print_format=json") {
		t.Fatalf("pass 1 must request a structured block: %s", analysis)
	}
	if strings.Contains(analysis, "measured_I") {
		t.Fatalf("pass 1 must not carry measured values: %s", analysis)
	}

	correction := plan.CorrectionFilter()
	for _, want := range []string{
		"loudnorm=I=-16:TP=-1.5:LRA=11",
		"measured_I=-12.84",
		"measured_TP=1.28",
		"measured_LRA=11",
		"measured_thresh=-23.47",
		"offset=0.42",
		"linear=true",
	} {
		if !strings.Contains(correction, want) {
			t.Fatalf("correction filter missing %q: %s", want, correction)
		}
	}
}

func TestBuildTwoPassWithoutStatsFallsBack(t *testing.T) {
	plan := normalize.Build(nil, testTarget, true)
	if len(plan.Passes) != 1 {
		t.Fatalf("expected 1 pass, got %d", len(plan.Passes))
	}
	if !plan.Fallback {
		t.Fatal("fallback must be flagged")
	}
	if strings.Contains(plan.CorrectionFilter(), "measured_I") {
		t.Fatalf("fallback filter must not carry measured values: %s", plan.CorrectionFilter())
	}
}

func TestBuildBroadcastCeiling(t *testing.T) {
	broadcast := target.Target{IntegratedLUFS: -23.0, TruePeakCeilingDBTP: -1.0, LoudnessRangeHint: 11.0}
	plan := normalize.Build(nil, broadcast, false)
	if got := plan.CorrectionFilter(); got != "loudnorm=I=-23:TP=-1:LRA=11" {
		t.Fatalf("unexpected filter: %s", got)
	}
}
