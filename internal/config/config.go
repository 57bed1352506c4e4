// Package config loads and validates the engine's TOML configuration:
// the tunable constants left to the implementer (dwell timers, escalation
// thresholds, tick interval) plus the paths the ambient stack needs
// (session log directory, metrics listen address).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable the engine and its ambient stack expose.
type Config struct {
	// SessionDir is where SessionLogger writes NDJSON session files.
	// Empty means logging.SessionsDir()'s platform default.
	SessionDir string `toml:"session_dir"`

	// BaselineOverridePath is read from the config file, but no code uses
	// it: the engine always uses its embedded baseline.yaml asset.
	BaselineOverridePath string `toml:"baseline_override_path"`

	// TickIntervalMS is validated and exposed through TickInterval. The
	// Supervisor does not read it; its 1Hz analysis gate is a fixed
	// constant.
	TickIntervalMS int `toml:"tick_interval_ms"`

	// NudgeEnter and WallEnter are the p_stuck thresholds the
	// intervention machine escalates on.
	NudgeEnter float64 `toml:"nudge_enter"`
	WallEnter  float64 `toml:"wall_enter"`

	// WallDwellSeconds is how long p_stuck must stay above WallEnter
	// before Nudge escalates to Wall.
	WallDwellSeconds int `toml:"wall_dwell_seconds"`

	// WallSafetyCapMinutes auto-releases Wall even with no motion signal.
	WallSafetyCapMinutes int `toml:"wall_safety_cap_minutes"`

	// MetricsAddr is the Prometheus-text listen address, empty disables it.
	MetricsAddr string `toml:"metrics_addr"`

	// EventStorePath is the optional SQLite mirror of the NDJSON session
	// log; empty disables the mirror.
	EventStorePath string `toml:"event_store_path"`

	// LogLevel is the minimum level the operational logger emits:
	// debug, info, warn, or error.
	LogLevel string `toml:"log_level"`

	// LogFormat selects the operational logger's output encoding: text
	// or json.
	LogFormat string `toml:"log_format"`
}

// DefaultConfig returns the engine's built-in defaults, matching the
// constants hardcoded in internal/intervention and internal/supervisor.
func DefaultConfig() *Config {
	return &Config{
		SessionDir:           "",
		TickIntervalMS:       1000,
		NudgeEnter:           0.60,
		WallEnter:            0.70,
		WallDwellSeconds:     30,
		WallSafetyCapMinutes: 5,
		MetricsAddr:          "127.0.0.1:9464",
		EventStorePath:       "",
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// ConfigDir returns the platform-specific config directory.
func ConfigDir() string {
	switch currentGOOS() {
	case "darwin":
		return macOSSupportDir()
	case "windows":
		return windowsAppDataDir()
	default:
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
}

// ConfigPath returns the default config file path, <ConfigDir>/gse.toml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "gse.toml")
}

// Load reads configuration from path, overlaying it onto DefaultConfig.
// A missing file is not an error -- the defaults apply unmodified, so a
// fresh install runs before any config file has been written.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.TickIntervalMS < 1 {
		return errors.New("config: tick_interval_ms must be at least 1")
	}
	if c.NudgeEnter <= 0 || c.NudgeEnter >= 1 {
		return errors.New("config: nudge_enter must be in (0,1)")
	}
	if c.WallEnter <= c.NudgeEnter || c.WallEnter >= 1 {
		return errors.New("config: wall_enter must be in (nudge_enter,1)")
	}
	if c.WallDwellSeconds < 1 {
		return errors.New("config: wall_dwell_seconds must be at least 1")
	}
	if c.WallSafetyCapMinutes < 1 {
		return errors.New("config: wall_safety_cap_minutes must be at least 1")
	}
	return nil
}

// TickInterval returns TickIntervalMS as a time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// WallDwell returns WallDwellSeconds as a time.Duration.
func (c *Config) WallDwell() time.Duration {
	return time.Duration(c.WallDwellSeconds) * time.Second
}

// WallSafetyCap returns WallSafetyCapMinutes as a time.Duration.
func (c *Config) WallSafetyCap() time.Duration {
	return time.Duration(c.WallSafetyCapMinutes) * time.Minute
}
