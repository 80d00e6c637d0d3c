package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var knownPresets = map[string]struct{}{
	"-16":     {},
	"-18":     {},
	"-19":     {},
	"-20":     {},
	"-23":     {},
	"reffile": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNormalize(); err != nil {
		return err
	}
	if err := c.validateFade(); err != nil {
		return err
	}
	if err := c.validateCrossfade(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		return errors.New("paths.input_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if isSubPath(c.Paths.InputDir, c.Paths.OutputDir) {
		return fmt.Errorf("paths.output_dir %q must not be inside paths.input_dir %q", c.Paths.OutputDir, c.Paths.InputDir)
	}
	return nil
}

// isSubPath reports whether child is parent or lives under parent. Both
// arguments must already be absolute and cleaned.
func isSubPath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (c *Config) validateNormalize() error {
	if _, ok := knownPresets[c.Normalize.Preset]; !ok {
		return fmt.Errorf("normalize.preset: unknown value %q (-16, -18, -19, -20, -23, reffile)", c.Normalize.Preset)
	}
	if c.Normalize.Preset == "reffile" && c.Normalize.RefPath == "" {
		return errors.New("normalize.ref_path must be set when normalize.preset is \"reffile\"")
	}
	return nil
}

func (c *Config) validateFade() error {
	if !c.Fade.Enabled {
		return nil
	}
	if c.Fade.FadeInMs < 0 {
		return errors.New("fade.fade_in_ms must be >= 0")
	}
	if c.Fade.FadeOutMs < 0 {
		return errors.New("fade.fade_out_ms must be >= 0")
	}
	switch c.Fade.FadeOutAnchor {
	case "end", "absolute":
	default:
		return fmt.Errorf("fade.fade_out_anchor: unknown value %q (end, absolute)", c.Fade.FadeOutAnchor)
	}
	if c.Fade.FadeOutAnchor == "absolute" && c.Fade.FadeOutStartSeconds < 0 {
		return errors.New("fade.fade_out_start_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateCrossfade() error {
	if !c.Crossfade.Enabled {
		return nil
	}
	if c.Crossfade.OverlapSeconds <= 0 {
		return errors.New("crossfade.overlap_seconds must be positive")
	}
	if strings.TrimSpace(c.Crossfade.Curve) == "" {
		return errors.New("crossfade.curve must be set when crossfade.enabled is true")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.SampleRate <= 0 {
		return errors.New("output.sample_rate must be positive")
	}
	switch c.Output.Extension {
	case "", "wav", "mp3", "m4a":
	default:
		return fmt.Errorf("output.extension: unsupported value %q (wav, mp3, m4a, or empty to keep the input extension)", c.Output.Extension)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be >= 1")
	}
	if c.Workflow.ProcessTimeoutSeconds <= 0 {
		return errors.New("workflow.process_timeout must be positive (seconds)")
	}
	return nil
}
