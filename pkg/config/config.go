// Package config provides configuration management for FaceSentinel.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all FaceSentinel configuration. Every value is a plain
// tunable; behavior lives in the packages the values parameterize.
type Config struct {
	Verification VerificationConfig `yaml:"verification"`
	Liveness     LivenessConfig     `yaml:"liveness"`
	Watchlist    WatchlistConfig    `yaml:"watchlist"`
	Detector     DetectorConfig     `yaml:"detector"`
	Storage      StorageConfig      `yaml:"storage"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// VerificationConfig holds similarity calibration and cadence.
type VerificationConfig struct {
	// Threshold is the minimum similarity accepted as a match.
	Threshold float64 `yaml:"threshold"`
	// HighCutoff and VeryHighCutoff bound the upper confidence bands.
	HighCutoff     float64 `yaml:"high_cutoff"`
	VeryHighCutoff float64 `yaml:"very_high_cutoff"`
	// IntervalMS is the periodic verification cadence in milliseconds.
	IntervalMS int `yaml:"interval_ms"`
}

// LivenessConfig holds anti-spoofing calibration.
type LivenessConfig struct {
	Threshold    float64 `yaml:"threshold"`
	MotionWindow int     `yaml:"motion_window"`
}

// WatchlistConfig holds encounter log settings.
type WatchlistConfig struct {
	LogCapacity int `yaml:"log_capacity"`
}

// DetectorConfig holds face detection model settings.
type DetectorConfig struct {
	ModelPath string `yaml:"model_path"`
}

// StorageConfig holds profile storage settings.
type StorageConfig struct {
	DataDir           string `yaml:"data_dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Verification: VerificationConfig{
			Threshold:      0.78,
			HighCutoff:     0.84,
			VeryHighCutoff: 0.90,
			IntervalMS:     500,
		},
		Liveness: LivenessConfig{
			Threshold:    0.60,
			MotionWindow: 5,
		},
		Watchlist: WatchlistConfig{
			LogCapacity: 100,
		},
		Detector: DetectorConfig{
			ModelPath: filepath.Join(homeDir, ".local/share/facesentinel/models"),
		},
		Storage: StorageConfig{
			DataDir:           filepath.Join(homeDir, ".local/share/facesentinel"),
			EncryptionEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".local/share/facesentinel/facesentinel.log"),
		},
	}
}

// Load loads configuration from the specified file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	// Try system config first
	if _, err := os.Stat("/etc/facesentinel/facesentinel.yaml"); err == nil {
		return Load("/etc/facesentinel/facesentinel.yaml")
	}

	// Try user config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, ".config/facesentinel/facesentinel.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	return DefaultConfig(), nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Detector.ModelPath = ExpandPath(c.Detector.ModelPath)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	v := c.Verification
	if v.Threshold < 0 || v.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", v.Threshold)
	}
	if v.HighCutoff < 0 || v.HighCutoff > 1 {
		return fmt.Errorf("high_cutoff must be between 0 and 1, got %f", v.HighCutoff)
	}
	if v.VeryHighCutoff < v.HighCutoff || v.VeryHighCutoff > 1 {
		return fmt.Errorf("very_high_cutoff must be between high_cutoff and 1, got %f", v.VeryHighCutoff)
	}
	if v.IntervalMS <= 0 {
		return fmt.Errorf("interval_ms must be positive, got %d", v.IntervalMS)
	}

	if c.Liveness.Threshold < 0 || c.Liveness.Threshold > 1 {
		return fmt.Errorf("liveness threshold must be between 0 and 1, got %f", c.Liveness.Threshold)
	}
	if c.Liveness.MotionWindow < 3 {
		return fmt.Errorf("motion_window must be at least 3, got %d", c.Liveness.MotionWindow)
	}

	if c.Watchlist.LogCapacity <= 0 {
		return fmt.Errorf("log_capacity must be positive, got %d", c.Watchlist.LogCapacity)
	}

	// Validate logging level
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// EnsureDirectories creates necessary directories for storage and logging.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.MkdirAll(c.Detector.ModelPath, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	logDir := filepath.Dir(c.Logging.File)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	return nil
}
