package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loudsync/internal/config"
	"loudsync/internal/services"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func baseConfig(t *testing.T, extra string) string {
	t.Helper()
	return bundleConfig(t, "", extra)
}

func bundleConfig(t *testing.T, top, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := top + `
[paths]
input_dir = "` + filepath.Join(dir, "in") + `"
output_dir = "` + filepath.Join(dir, "out") + `"
` + extra
	return writeConfig(t, body)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(baseConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Normalize.Preset != "-16" {
		t.Fatalf("preset = %q, want -16", cfg.Normalize.Preset)
	}
	if !cfg.Normalize.TwoPass {
		t.Fatal("two_pass should default to true")
	}
	if cfg.Output.SampleRate != 48000 {
		t.Fatalf("sample_rate = %d, want 48000", cfg.Output.SampleRate)
	}
	if cfg.Workflow.Workers != 2 {
		t.Fatalf("workers = %d, want 2", cfg.Workflow.Workers)
	}
	if cfg.Output.CSVName != "loudness_measurement.csv" {
		t.Fatalf("csv_name = %q", cfg.Output.CSVName)
	}
	wantCache := filepath.Join(cfg.Paths.OutputDir, "_cache")
	if cfg.Paths.CacheDir != wantCache {
		t.Fatalf("cache_dir = %q, want %q", cfg.Paths.CacheDir, wantCache)
	}
}

func TestLoadRejectsOutputInsideInput(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[paths]
input_dir = "`+dir+`"
output_dir = "`+filepath.Join(dir, "out")+`"
`)
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for output_dir inside input_dir")
	}
	if !strings.Contains(err.Error(), "output_dir") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadClassifiesErrors(t *testing.T) {
	path := baseConfig(t, `
[normalize]
preset = "-14"
`)
	_, _, _, err := config.Load(path)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("preset error = %v, want validation marker", err)
	}

	path = bundleConfig(t, `bundle = "club"`, "")
	_, _, _, err = config.Load(path)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("bundle error = %v, want configuration marker", err)
	}
}

func TestLoadRejectsUnknownPreset(t *testing.T) {
	path := baseConfig(t, `
[normalize]
preset = "-14"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestLoadRequiresRefPathForReffile(t *testing.T) {
	path := baseConfig(t, `
[normalize]
preset = "reffile"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for reffile preset without ref_path")
	}
}

func TestLoadRejectsBadFadeAnchor(t *testing.T) {
	path := baseConfig(t, `
[fade]
enabled = true
fade_out_anchor = "middle"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown fade anchor")
	}
}

func TestLoadRejectsNonPositiveOverlap(t *testing.T) {
	path := baseConfig(t, `
[crossfade]
enabled = true
overlap_seconds = -1.0
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for negative overlap")
	}
}

func TestBundlePodcast(t *testing.T) {
	path := bundleConfig(t, `bundle = "podcast"`, "")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Normalize.Preset != "-16" {
		t.Fatalf("preset = %q, want -16", cfg.Normalize.Preset)
	}
	if !cfg.Fade.Enabled || cfg.Fade.FadeInMs != 500 || cfg.Fade.FadeOutMs != 2000 {
		t.Fatalf("fade = %+v", cfg.Fade)
	}
	if cfg.Crossfade.Enabled {
		t.Fatal("podcast bundle should disable crossfade")
	}
	if cfg.Output.Extension != "mp3" {
		t.Fatalf("extension = %q, want mp3", cfg.Output.Extension)
	}
}

func TestBundleBGMEnablesCrossfade(t *testing.T) {
	path := bundleConfig(t, `bundle = "bgm"`, "")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Normalize.Preset != "-18" {
		t.Fatalf("preset = %q, want -18", cfg.Normalize.Preset)
	}
	if !cfg.Crossfade.Enabled || cfg.Crossfade.OverlapSeconds != 3.0 {
		t.Fatalf("crossfade = %+v", cfg.Crossfade)
	}
}

func TestBundleUnknownFails(t *testing.T) {
	path := bundleConfig(t, `bundle = "club"`, "")
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown bundle")
	}
}

func TestOutputExtensionNormalized(t *testing.T) {
	path := baseConfig(t, `
[output]
extension = ".WAV"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Extension != "wav" {
		t.Fatalf("extension = %q, want wav", cfg.Output.Extension)
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg, _, _, err := config.Load(baseConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Paths.JournalPath = filepath.Join(t.TempDir(), "journal", "journal.db")
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{
		cfg.Paths.OutputDir,
		cfg.NormalizedCacheDir(),
		cfg.FadedCacheDir(),
		cfg.Paths.LogDir,
		filepath.Dir(cfg.Paths.JournalPath),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q missing: %v", dir, err)
		}
	}
}

func TestLoadMissingFileUsesDefaultsButFailsValidation(t *testing.T) {
	// Without a file there is no input_dir, so Load must fail validation
	// rather than invent paths.
	missing := filepath.Join(t.TempDir(), "nope.toml")
	if _, _, _, err := config.Load(missing); err == nil {
		t.Fatal("expected validation error when no config exists")
	}
}
