package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"loudsync/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and executable location configuration.
type Paths struct {
	InputDir    string `toml:"input_dir"`
	OutputDir   string `toml:"output_dir"`
	CacheDir    string `toml:"cache_dir"`
	LogDir      string `toml:"log_dir"`
	JournalPath string `toml:"journal_path"`
	FFmpeg      string `toml:"ffmpeg"`
	FFprobe     string `toml:"ffprobe"`
}

// Normalize contains loudness target selection.
type Normalize struct {
	Preset  string `toml:"preset"`
	RefPath string `toml:"ref_path"`
	TwoPass bool   `toml:"two_pass"`
}

// Fade contains fade-in/out timing configuration.
type Fade struct {
	Enabled             bool    `toml:"enabled"`
	FadeInMs            int     `toml:"fade_in_ms"`
	FadeOutMs           int     `toml:"fade_out_ms"`
	FadeOutAnchor       string  `toml:"fade_out_anchor"`
	FadeOutStartSeconds float64 `toml:"fade_out_start_seconds"`
}

// Crossfade contains overlap-concatenation configuration.
type Crossfade struct {
	Enabled        bool    `toml:"enabled"`
	OverlapSeconds float64 `toml:"overlap_seconds"`
	Curve          string  `toml:"curve"`
}

// Output contains output encoding and artifact handling configuration.
type Output struct {
	SampleRate        int    `toml:"sample_rate"`
	Extension         string `toml:"extension"`
	Overwrite         bool   `toml:"overwrite"`
	WriteCSV          bool   `toml:"write_csv"`
	CSVName           string `toml:"csv_name"`
	KeepIntermediates bool   `toml:"keep_intermediates"`
}

// Workflow contains worker pool and process timeout configuration.
type Workflow struct {
	Workers               int `toml:"workers"`
	ProcessTimeoutSeconds int `toml:"process_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for LoudSync.
//
// Configuration sections by subsystem:
//   - Paths: input/output/cache directories and executable locations
//   - Normalize: loudness preset or reference file selection
//   - Fade: fade-in/out timing and anchoring
//   - Crossfade: overlap duration and easing curve
//   - Output: sample rate, container extension, CSV and artifact policy
//   - Workflow: worker count and per-process timeout
//   - Logging: log format and level
//
// The top-level bundle key applies a named preset bundle (podcast, bgm,
// broadcast) before individual section values are considered.
type Config struct {
	Bundle    string    `toml:"bundle"`
	Paths     Paths     `toml:"paths"`
	Normalize Normalize `toml:"normalize"`
	Fade      Fade      `toml:"fade"`
	Crossfade Crossfade `toml:"crossfade"`
	Output    Output    `toml:"output"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loudsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return load(path, "")
}

// LoadWithBundle behaves like Load but applies the named bundle on top of
// whatever the config file selects.
func LoadWithBundle(path, bundle string) (*Config, error) {
	cfg, _, _, err := load(path, bundle)
	return cfg, err
}

func load(path, bundle string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if bundle != "" {
		cfg.Bundle = bundle
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "normalize", "", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, services.Wrap(services.ErrValidation, "config", "validate", "", err)
	}

	return &cfg, resolvedPath, exists, nil
}

// ResolvePath reports which configuration file a load would read and
// whether it exists, without parsing or validating it.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loudsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a batch run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.OutputDir,
		c.Paths.LogDir,
		c.NormalizedCacheDir(),
		c.FadedCacheDir(),
	}
	if strings.TrimSpace(c.Paths.JournalPath) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.JournalPath))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// NormalizedCacheDir returns the cache subdirectory holding normalized intermediates.
func (c *Config) NormalizedCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "normalized")
}

// FadedCacheDir returns the cache subdirectory holding faded intermediates.
func (c *Config) FadedCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "faded")
}

// ProcessTimeout returns the per-invocation executor timeout.
func (c *Config) ProcessTimeout() time.Duration {
	return time.Duration(c.Workflow.ProcessTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
