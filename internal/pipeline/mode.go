package pipeline

import (
	"fmt"

	"loudsync/internal/config"
)

// Mode selects which stages a run visits.
type Mode string

const (
	// ModeMeasure analyzes inputs and writes the measurement report only.
	ModeMeasure Mode = "measure"
	// ModeNormalize runs measurement and normalization.
	ModeNormalize Mode = "normalize"
	// ModeNormalizeFade adds the fade stage after normalization.
	ModeNormalizeFade Mode = "normalize+fade"
	// ModeFull chains normalize, fade, and crossfade into one output.
	ModeFull Mode = "full"
)

// ParseMode validates a mode name.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeMeasure, ModeNormalize, ModeNormalizeFade, ModeFull:
		return Mode(raw), nil
	}
	return "", fmt.Errorf("unknown pipeline mode %q (measure, normalize, normalize+fade, full)", raw)
}

// ModeFor derives the widest mode the configuration enables.
func ModeFor(cfg *config.Config) Mode {
	switch {
	case cfg.Crossfade.Enabled:
		return ModeFull
	case cfg.Fade.Enabled:
		return ModeNormalizeFade
	default:
		return ModeNormalize
	}
}

func (m Mode) normalizes() bool {
	return m == ModeNormalize || m == ModeNormalizeFade || m == ModeFull
}

func (m Mode) fades() bool {
	return m == ModeNormalizeFade || m == ModeFull
}

func (m Mode) crossfades() bool {
	return m == ModeFull
}
