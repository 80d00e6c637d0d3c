// Package target resolves a requested loudness profile into the concrete
// target every file in a batch is normalized against.
package target

import (
	"context"
	"errors"
	"fmt"
	"math"

	"loudsync/internal/loudness"
)

// Target is the resolved normalization goal, shared read-only by all files
// in a batch. TruePeakCeilingDBTP is always <= 0.
type Target struct {
	IntegratedLUFS      float64
	TruePeakCeilingDBTP float64
	LoudnessRangeHint   float64
}

// ErrReferenceAnalysis marks a reference file whose measurement failed.
// The resolver never substitutes a default target; falling back is the
// caller's decision.
var ErrReferenceAnalysis = errors.New("reference analysis failed")

// ErrUnknownProfile marks a profile name outside the preset table.
var ErrUnknownProfile = errors.New("unknown loudness profile")

// ProfileReference selects reference-file resolution.
const ProfileReference = "reffile"

const (
	defaultCeiling   = -1.5
	broadcastCeiling = -1.0
	defaultLRAHint   = 11.0
)

var presets = map[string]Target{
	"-16": {IntegratedLUFS: -16.0, TruePeakCeilingDBTP: defaultCeiling, LoudnessRangeHint: defaultLRAHint},
	"-18": {IntegratedLUFS: -18.0, TruePeakCeilingDBTP: defaultCeiling, LoudnessRangeHint: defaultLRAHint},
	"-19": {IntegratedLUFS: -19.0, TruePeakCeilingDBTP: defaultCeiling, LoudnessRangeHint: defaultLRAHint},
	"-20": {IntegratedLUFS: -20.0, TruePeakCeilingDBTP: defaultCeiling, LoudnessRangeHint: defaultLRAHint},
	"-23": {IntegratedLUFS: -23.0, TruePeakCeilingDBTP: broadcastCeiling, LoudnessRangeHint: defaultLRAHint},
}

// Preset describes one table entry for display.
type Preset struct {
	Name        string
	Target      Target
	Description string
}

// Presets returns the fixed preset table in display order.
func Presets() []Preset {
	return []Preset{
		{Name: "-16", Target: presets["-16"], Description: "podcast"},
		{Name: "-18", Target: presets["-18"], Description: "bgm"},
		{Name: "-19", Target: presets["-19"], Description: "bgm"},
		{Name: "-20", Target: presets["-20"], Description: "bgm"},
		{Name: "-23", Target: presets["-23"], Description: "broadcast"},
		{Name: ProfileReference, Target: Target{TruePeakCeilingDBTP: defaultCeiling, LoudnessRangeHint: defaultLRAHint}, Description: "match a reference file"},
	}
}

// Measurer is the single external capability resolution needs.
type Measurer interface {
	Measure(ctx context.Context, path string, targetI, targetTP float64) (loudness.Stats, error)
}

// Resolve maps a profile name to a concrete Target. Reference-file
// resolution measures refPath once; its integrated loudness is rounded to
// one decimal place and the ceiling is the safe default.
func Resolve(ctx context.Context, profile, refPath string, measurer Measurer) (Target, error) {
	if preset, ok := presets[profile]; ok {
		return preset, nil
	}
	if profile != ProfileReference {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
	}

	if refPath == "" {
		return Target{}, fmt.Errorf("%w: no reference path", ErrReferenceAnalysis)
	}
	if measurer == nil {
		return Target{}, fmt.Errorf("%w: no measurer available", ErrReferenceAnalysis)
	}
	stats, err := measurer.Measure(ctx, refPath, loudness.DefaultTargetI, loudness.DefaultTargetTP)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %s: %v", ErrReferenceAnalysis, refPath, err)
	}
	return Target{
		IntegratedLUFS:      roundToDecimal(stats.IntegratedLUFS, 1),
		TruePeakCeilingDBTP: defaultCeiling,
		LoudnessRangeHint:   defaultLRAHint,
	}, nil
}

func roundToDecimal(value float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(value*scale) / scale
}
