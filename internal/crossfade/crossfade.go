// Package crossfade plans the pairwise overlap-concatenation sequence that
// merges N ordered inputs into one output. N inputs always produce N-1
// operations; each result becomes the left operand of the next.
package crossfade

import (
	"errors"
	"fmt"
	"strconv"
)

// Spec is the batch-wide crossfade request. Curve is passed through to the
// executor uninterpreted once validated.
type Spec struct {
	OverlapSeconds float64
	Curve          string
}

// Input is one ordered crossfade operand.
type Input struct {
	Path            string
	DurationSeconds float64
}

// Op is one pairwise overlap. LeftPath is set only for the first
// operation; every later operation consumes the previous result.
type Op struct {
	LeftPath       string
	RightPath      string
	OverlapSeconds float64
	Filter         string
	Clamped        bool
	Warning        string

	// ResultDurationSeconds is the expected duration of this operation's
	// output, used to clamp the next overlap.
	ResultDurationSeconds float64
}

var (
	// ErrInsufficientInputs marks a plan request with fewer than two inputs.
	ErrInsufficientInputs = errors.New("crossfade needs at least 2 inputs")
	// ErrInvalidCurve marks an unrecognized easing curve, raised before
	// any process is invoked.
	ErrInvalidCurve = errors.New("invalid crossfade curve")
)

// clampEpsilon keeps a clamped overlap strictly shorter than the shorter
// operand.
const clampEpsilon = 0.05

var curves = map[string]struct{}{
	"tri": {}, "qsin": {}, "esin": {}, "hsin": {}, "log": {},
	"ipar": {}, "qua": {}, "cub": {}, "squ": {}, "cbr": {},
	"par": {}, "exp": {}, "iqsin": {}, "ihsin": {}, "dese": {},
	"desi": {}, "losi": {}, "sinc": {}, "isinc": {}, "nofade": {},
}

// ValidCurve reports whether name is a recognized easing curve.
func ValidCurve(name string) bool {
	_, ok := curves[name]
	return ok
}

// Plan builds the ordered operation sequence. Overlaps that exceed the
// shorter operand are clamped and annotated, never failed; the
// concatenation must complete whenever both operands exist.
func Plan(inputs []Input, spec Spec) ([]Op, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientInputs, len(inputs))
	}
	if !ValidCurve(spec.Curve) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurve, spec.Curve)
	}
	if spec.OverlapSeconds <= 0 {
		return nil, fmt.Errorf("crossfade overlap must be positive, got %v", spec.OverlapSeconds)
	}

	ops := make([]Op, 0, len(inputs)-1)
	accumulated := inputs[0].DurationSeconds
	for k := 1; k < len(inputs); k++ {
		right := inputs[k]
		op := Op{
			RightPath:      right.Path,
			OverlapSeconds: spec.OverlapSeconds,
		}
		if k == 1 {
			op.LeftPath = inputs[0].Path
		}

		shorter := min(accumulated, right.DurationSeconds)
		if op.OverlapSeconds > shorter {
			clamped := shorter - clampEpsilon
			if clamped <= 0 {
				clamped = shorter / 2
			}
			op.Warning = fmt.Sprintf("overlap %ss exceeds shorter operand %ss, clamped to %ss",
				formatSeconds(op.OverlapSeconds), formatSeconds(shorter), formatSeconds(clamped))
			op.OverlapSeconds = clamped
			op.Clamped = true
		}

		op.Filter = fmt.Sprintf("acrossfade=d=%s:c1=%s:c2=%s",
			formatSeconds(op.OverlapSeconds), spec.Curve, spec.Curve)

		accumulated = accumulated + right.DurationSeconds - op.OverlapSeconds
		op.ResultDurationSeconds = accumulated
		ops = append(ops, op)
	}
	return ops, nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
