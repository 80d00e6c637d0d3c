// Package fade computes fade-in/out filter parameters. Planning needs only
// the spec and the input's duration; running the filter is the caller's
// job.
package fade

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Anchor selects how the fade-out is positioned.
type Anchor string

const (
	// AnchorEndRelative places the fade-out so it ends exactly at the end
	// of the input.
	AnchorEndRelative Anchor = "end"
	// AnchorAbsoluteStart starts the fade-out at an explicit offset.
	AnchorAbsoluteStart Anchor = "absolute"
)

// Spec is the per-file fade request.
type Spec struct {
	FadeInMs         int
	FadeOutMs        int
	FadeOutAnchor    Anchor
	FadeOutStartSecs float64
}

// ErrDurationTooShort marks an input too short to hold both requested
// fades without overlap.
var ErrDurationTooShort = errors.New("duration too short for requested fades")

// Plan returns the afade filter chain for the spec, or an empty string
// when both fades are zero length and the stage should be skipped.
func Plan(spec Spec, durationSeconds float64) (string, error) {
	if spec.FadeInMs < 0 || spec.FadeOutMs < 0 {
		return "", fmt.Errorf("fade lengths must be >= 0 (in=%dms out=%dms)", spec.FadeInMs, spec.FadeOutMs)
	}
	if durationSeconds <= 0 {
		return "", fmt.Errorf("fade plan: non-positive duration %v", durationSeconds)
	}

	fadeIn := float64(spec.FadeInMs) / 1000
	fadeOut := float64(spec.FadeOutMs) / 1000

	var outStart float64
	switch spec.FadeOutAnchor {
	case AnchorEndRelative, "":
		if fadeIn+fadeOut > durationSeconds {
			return "", fmt.Errorf("%w: %vs + %vs fades into %vs input", ErrDurationTooShort, fadeIn, fadeOut, durationSeconds)
		}
		outStart = durationSeconds - fadeOut
	case AnchorAbsoluteStart:
		if spec.FadeOutStartSecs < 0 {
			return "", fmt.Errorf("fade plan: negative fade-out start %v", spec.FadeOutStartSecs)
		}
		outStart = spec.FadeOutStartSecs
	default:
		return "", fmt.Errorf("fade plan: unknown anchor %q", spec.FadeOutAnchor)
	}

	var filters []string
	if spec.FadeInMs > 0 {
		filters = append(filters, "afade=t=in:st=0:d="+formatSeconds(fadeIn))
	}
	if spec.FadeOutMs > 0 {
		filters = append(filters, "afade=t=out:st="+formatSeconds(outStart)+":d="+formatSeconds(fadeOut))
	}
	return strings.Join(filters, ","), nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
