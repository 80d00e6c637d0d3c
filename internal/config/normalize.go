package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.applyBundle(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNormalize()
	c.normalizeFade()
	c.normalizeCrossfade()
	c.normalizeOutput()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

// applyBundle overwrites the affected sections with the named bundle's
// values. Individual keys set in the config file for those sections lose to
// the bundle; bundles exist to make a run reproducible from one word.
func (c *Config) applyBundle() error {
	bundle := strings.ToLower(strings.TrimSpace(c.Bundle))
	c.Bundle = bundle
	switch bundle {
	case "":
		return nil
	case "podcast":
		c.Normalize.Preset = "-16"
		c.Fade = Fade{Enabled: true, FadeInMs: 500, FadeOutMs: 2000, FadeOutAnchor: "end"}
		c.Crossfade.Enabled = false
		c.Output.Extension = "mp3"
	case "bgm":
		c.Normalize.Preset = "-18"
		c.Fade = Fade{Enabled: true, FadeInMs: 1000, FadeOutMs: 3000, FadeOutAnchor: "end"}
		c.Crossfade.Enabled = true
		c.Crossfade.OverlapSeconds = 3.0
		c.Output.Extension = "wav"
	case "broadcast":
		c.Normalize.Preset = "-23"
		c.Fade = Fade{Enabled: true, FadeInMs: 300, FadeOutMs: 1000, FadeOutAnchor: "end"}
		c.Crossfade.Enabled = false
		c.Output.Extension = "wav"
	default:
		return fmt.Errorf("bundle: unknown value %q (podcast, bgm, broadcast)", bundle)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" && c.Paths.OutputDir != "" {
		c.Paths.CacheDir = filepath.Join(c.Paths.OutputDir, "_cache")
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalPath) == "" {
		c.Paths.JournalPath = defaultJournalPath
	}
	if c.Paths.JournalPath, err = expandPath(c.Paths.JournalPath); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}

	c.Paths.FFmpeg = strings.TrimSpace(c.Paths.FFmpeg)
	if c.Paths.FFmpeg == "" {
		if value, ok := os.LookupEnv("LOUDSYNC_FFMPEG"); ok {
			c.Paths.FFmpeg = strings.TrimSpace(value)
		}
	}
	if c.Paths.FFmpeg != "" {
		if c.Paths.FFmpeg, err = expandPath(c.Paths.FFmpeg); err != nil {
			return fmt.Errorf("paths.ffmpeg: %w", err)
		}
	}
	c.Paths.FFprobe = strings.TrimSpace(c.Paths.FFprobe)
	if c.Paths.FFprobe == "" {
		if value, ok := os.LookupEnv("LOUDSYNC_FFPROBE"); ok {
			c.Paths.FFprobe = strings.TrimSpace(value)
		}
	}
	if c.Paths.FFprobe != "" {
		if c.Paths.FFprobe, err = expandPath(c.Paths.FFprobe); err != nil {
			return fmt.Errorf("paths.ffprobe: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeNormalize() {
	c.Normalize.Preset = strings.ToLower(strings.TrimSpace(c.Normalize.Preset))
	if c.Normalize.Preset == "" {
		c.Normalize.Preset = defaultPreset
	}
	c.Normalize.RefPath = strings.TrimSpace(c.Normalize.RefPath)
	if c.Normalize.RefPath != "" {
		if expanded, err := expandPath(c.Normalize.RefPath); err == nil {
			c.Normalize.RefPath = expanded
		}
	}
}

func (c *Config) normalizeFade() {
	c.Fade.FadeOutAnchor = strings.ToLower(strings.TrimSpace(c.Fade.FadeOutAnchor))
	if c.Fade.FadeOutAnchor == "" {
		c.Fade.FadeOutAnchor = defaultFadeOutAnchor
	}
}

func (c *Config) normalizeCrossfade() {
	c.Crossfade.Curve = strings.ToLower(strings.TrimSpace(c.Crossfade.Curve))
	if c.Crossfade.Curve == "" {
		c.Crossfade.Curve = defaultCrossfadeCurve
	}
	if c.Crossfade.OverlapSeconds == 0 {
		c.Crossfade.OverlapSeconds = defaultCrossfadeOverlapSec
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Extension = strings.ToLower(strings.TrimSpace(c.Output.Extension))
	c.Output.Extension = strings.TrimPrefix(c.Output.Extension, ".")
	if c.Output.SampleRate == 0 {
		c.Output.SampleRate = defaultSampleRate
	}
	c.Output.CSVName = strings.TrimSpace(c.Output.CSVName)
	if c.Output.CSVName == "" {
		c.Output.CSVName = defaultCSVName
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers == 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.ProcessTimeoutSeconds == 0 {
		c.Workflow.ProcessTimeoutSeconds = defaultProcessTimeoutSec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
