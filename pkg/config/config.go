// Package config loads runtime tuning parameters from a YAML file: cache
// staleness, compact-prompt cardinalities, captcha policy, eventually
// defaults, and backend choice. It is a single flat document, not a
// multi-section store — there is exactly one of these per runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime's full tuning surface.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Captcha    CaptchaConfig    `yaml:"captcha"`
	Eventually EventuallyConfig `yaml:"eventually"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// BackendConfig selects and tunes the browser-control driver.
type BackendConfig struct {
	Driver        string        `yaml:"driver"` // "playwright" or "cdp"
	Headless      bool          `yaml:"headless"`
	ViewportW     int           `yaml:"viewport_width"`
	ViewportH     int           `yaml:"viewport_height"`
	LaunchTimeout time.Duration `yaml:"launch_timeout"`
}

// SnapshotConfig tunes caching and compaction.
type SnapshotConfig struct {
	MaxAgeMs          int64 `yaml:"max_age_ms"`
	DefaultLimit      int   `yaml:"default_limit"`
	ByImportance      int   `yaml:"by_importance"`
	FromDominantGroup int   `yaml:"from_dominant_group"`
	ByPosition        int   `yaml:"by_position"`
	ReadyTimeoutMs    int   `yaml:"ready_timeout_ms"`
}

// CaptchaConfig tunes detection gating.
type CaptchaConfig struct {
	Policy        string  `yaml:"policy"` // "abort" or "callback"
	MinConfidence float64 `yaml:"min_confidence"`
	PollMs        int     `yaml:"poll_ms"`
	TimeoutMs     int     `yaml:"timeout_ms"`
}

// EventuallyConfig holds a retry-with-refresh budget. It is loaded and
// kept on Config only: no component reads it, and a verification without
// its own eventually.Config is evaluated once rather than with this budget.
type EventuallyConfig struct {
	TimeoutMs  int `yaml:"timeout_ms"`
	PollMs     int `yaml:"poll_ms"`
	MaxRetries int `yaml:"max_retries"`
}

// LoggingConfig names an operational log verbosity. Validate checks the
// value and defaults it to "normal"; pkg/logging does not read it, and
// every logger call writes regardless of it. Trace events are governed
// separately (pkg/trace).
type LoggingConfig struct {
	Verbosity string `yaml:"verbosity"` // quiet, normal, verbose, debug
}

// Default returns the spec's default tuning values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Driver:        "playwright",
			Headless:      true,
			ViewportW:     1280,
			ViewportH:     800,
			LaunchTimeout: 30 * time.Second,
		},
		Snapshot: SnapshotConfig{
			MaxAgeMs:          500,
			DefaultLimit:      50,
			ByImportance:      60,
			FromDominantGroup: 15,
			ByPosition:        10,
			ReadyTimeoutMs:    15_000,
		},
		Captcha: CaptchaConfig{
			Policy:        "abort",
			MinConfidence: 0.7,
			PollMs:        1000,
			TimeoutMs:     120_000,
		},
		Eventually: EventuallyConfig{
			TimeoutMs:  10_000,
			PollMs:     500,
			MaxRetries: 0,
		},
		Logging: LoggingConfig{Verbosity: "normal"},
	}
}

// Load reads and parses a YAML config file at path, starting from Default
// and overlaying only the fields present in the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the tuning values are internally consistent.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case "playwright", "cdp":
	default:
		return fmt.Errorf("invalid backend.driver: %q (must be 'playwright' or 'cdp')", c.Backend.Driver)
	}

	switch c.Captcha.Policy {
	case "abort", "callback":
	default:
		return fmt.Errorf("invalid captcha.policy: %q (must be 'abort' or 'callback')", c.Captcha.Policy)
	}

	if c.Captcha.MinConfidence < 0 || c.Captcha.MinConfidence > 1 {
		return fmt.Errorf("captcha.min_confidence must be in [0,1], got %f", c.Captcha.MinConfidence)
	}

	if c.Snapshot.MaxAgeMs < 0 {
		return fmt.Errorf("snapshot.max_age_ms cannot be negative")
	}

	validVerbosity := map[string]bool{"quiet": true, "normal": true, "verbose": true, "debug": true}
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if !validVerbosity[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging.verbosity: %q", c.Logging.Verbosity)
	}

	return nil
}
