package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loudsync/internal/config"
	"loudsync/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	body := fmt.Sprintf(`[paths]
input_dir = %q
output_dir = %q
cache_dir = %q
log_dir = %q
journal_path = %q

[normalize]
preset = %q
two_pass = %t

[fade]
enabled = %t

[crossfade]
enabled = %t

[workflow]
workers = %d
`,
		cfg.Paths.InputDir,
		cfg.Paths.OutputDir,
		cfg.Paths.CacheDir,
		cfg.Paths.LogDir,
		cfg.Paths.JournalPath,
		cfg.Normalize.Preset,
		cfg.Normalize.TwoPass,
		cfg.Fade.Enabled,
		cfg.Crossfade.Enabled,
		cfg.Workflow.Workers,
	)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	var full []string
	if configPath != "" {
		full = append(full, "--config", configPath)
	}
	full = append(full, args...)
	cmd.SetArgs(full)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output missing %q:\n%s", needle, haystack)
	}
}
