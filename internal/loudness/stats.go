// Package loudness measures perceptual loudness by running the executor in
// analysis-only mode and parsing the structured block it prints among its
// diagnostics.
package loudness

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Stats holds the loudness statistics reported for one input. Threshold and
// TargetOffset only matter for two-pass correction; the measurement report
// uses the first three fields.
type Stats struct {
	IntegratedLUFS  float64
	TruePeakDBTP    float64
	LoudnessRangeDB float64
	Threshold       float64
	TargetOffset    float64
}

// parseStats decodes a loudnorm JSON block. The executor reports every
// numeric value as a string and uses "-inf" for silence.
func parseStats(block string) (Stats, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return Stats{}, fmt.Errorf("decode analysis block: %w", err)
	}

	stats := Stats{}
	for key, dst := range map[string]*float64{
		"input_i":       &stats.IntegratedLUFS,
		"input_tp":      &stats.TruePeakDBTP,
		"input_lra":     &stats.LoudnessRangeDB,
		"input_thresh":  &stats.Threshold,
		"target_offset": &stats.TargetOffset,
	} {
		raw, ok := fields[key]
		if !ok {
			if key == "input_thresh" || key == "target_offset" {
				continue
			}
			return Stats{}, fmt.Errorf("analysis block missing %s", key)
		}
		value, err := coerceFloat(raw)
		if err != nil {
			return Stats{}, fmt.Errorf("analysis field %s: %w", key, err)
		}
		*dst = value
	}
	return stats, nil
}

func coerceFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		cleaned := strings.TrimSpace(v)
		switch strings.ToLower(cleaned) {
		case "-inf":
			return math.Inf(-1), nil
		case "inf", "+inf":
			return math.Inf(1), nil
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", v, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unexpected value type %T", raw)
	}
}

// FormatValue renders a measured value the way the executor reports it,
// trimming a trailing zero but never padding.
func FormatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
