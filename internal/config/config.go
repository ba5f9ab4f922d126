package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete HangFixer configuration
type Config struct {
	Sentinel SentinelConfig `mapstructure:"sentinel" yaml:"sentinel"`
	Recovery RecoveryConfig `mapstructure:"recovery" yaml:"recovery"`
	Locking  LockingConfig  `mapstructure:"locking" yaml:"locking"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// SentinelConfig controls where the in-progress marker lives and what it says
type SentinelConfig struct {
	// Extension replaces the descriptor's extension to form the sentinel path (default: ".tmp")
	Extension string `mapstructure:"extension" yaml:"extension"`
	// Label is written at the top of the sentinel as a diagnostic stamp (default: "HangFixer")
	Label string `mapstructure:"label" yaml:"label"`
}

// RecoveryConfig lists the stale-cache targets purged after an unfinished load.
// Both are resolved relative to the workspace root.
type RecoveryConfig struct {
	// CacheDirs are removed recursively (default: [".vs"])
	CacheDirs []string `mapstructure:"cache_dirs" yaml:"cache_dirs"`
	// SessionGlobs match legacy session files directly in the root (default: ["*.suo"])
	SessionGlobs []string `mapstructure:"session_globs" yaml:"session_globs"`
}

// LockingConfig controls how concurrent handling of one workspace is serialized
type LockingConfig struct {
	// CrossProcess adds an advisory file lock on top of the in-process mutex
	CrossProcess bool `mapstructure:"cross_process" yaml:"cross_process"`
	// Dir holds the advisory lock files (default: <tmp>/hangfixer-locks)
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where hangfixer.log is written; empty means stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// MetricsConfig controls the Prometheus endpoint served by `hangfixer listen`
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Sentinel: SentinelConfig{
			Extension: ".tmp",
			Label:     "HangFixer",
		},
		Recovery: RecoveryConfig{
			CacheDirs:    []string{".vs"},
			SessionGlobs: []string{"*.suo"},
		},
		Locking: LockingConfig{
			CrossProcess: false,
			Dir:          filepath.Join(os.TempDir(), "hangfixer-locks"),
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("sentinel.extension", defaults.Sentinel.Extension)
	viper.SetDefault("sentinel.label", defaults.Sentinel.Label)

	viper.SetDefault("recovery.cache_dirs", defaults.Recovery.CacheDirs)
	viper.SetDefault("recovery.session_globs", defaults.Recovery.SessionGlobs)

	viper.SetDefault("locking.cross_process", defaults.Locking.CrossProcess)
	viper.SetDefault("locking.dir", defaults.Locking.Dir)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if it
// cannot be loaded
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hangfixer")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hangfixer"
	}
	return filepath.Join(home, ".config", "hangfixer")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
