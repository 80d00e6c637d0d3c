package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"loudsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.CacheDir = filepath.Join(base, "output", "_cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.JournalPath = filepath.Join(base, "journal.db")
	cfgVal.Fade.Enabled = false
	cfgVal.Crossfade.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("mkdir input dir: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPreset selects the normalization preset on the test config.
func WithPreset(preset string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Normalize.Preset = preset
	}
}

// WithFade enables the fade stage with the given envelope.
func WithFade(fadeInMs, fadeOutMs int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fade.Enabled = true
		b.cfg.Fade.FadeInMs = fadeInMs
		b.cfg.Fade.FadeOutMs = fadeOutMs
	}
}

// WithCrossfade enables the crossfade stage with the given overlap.
func WithCrossfade(overlapSeconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Crossfade.Enabled = true
		b.cfg.Crossfade.OverlapSeconds = overlapSeconds
	}
}

// WithWorkers sets the worker count on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = workers
	}
}

// WithExtension forces the output container on the test config.
func WithExtension(ext string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Extension = ext
	}
}
