package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Verification.Threshold != 0.78 {
		t.Errorf("expected threshold 0.78, got %f", cfg.Verification.Threshold)
	}
	if cfg.Verification.HighCutoff != 0.84 {
		t.Errorf("expected high_cutoff 0.84, got %f", cfg.Verification.HighCutoff)
	}
	if cfg.Verification.VeryHighCutoff != 0.90 {
		t.Errorf("expected very_high_cutoff 0.90, got %f", cfg.Verification.VeryHighCutoff)
	}
	if cfg.Verification.IntervalMS != 500 {
		t.Errorf("expected interval_ms 500, got %d", cfg.Verification.IntervalMS)
	}
	if cfg.Liveness.Threshold != 0.60 {
		t.Errorf("expected liveness threshold 0.60, got %f", cfg.Liveness.Threshold)
	}
	if cfg.Liveness.MotionWindow != 5 {
		t.Errorf("expected motion_window 5, got %d", cfg.Liveness.MotionWindow)
	}
	if cfg.Watchlist.LogCapacity != 100 {
		t.Errorf("expected log_capacity 100, got %d", cfg.Watchlist.LogCapacity)
	}
	if !cfg.Storage.EncryptionEnabled {
		t.Error("encryption should be enabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "facesentinel.yaml")

	content := `
verification:
  threshold: 0.82
  interval_ms: 250
liveness:
  motion_window: 8
watchlist:
  log_capacity: 50
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Verification.Threshold != 0.82 {
		t.Errorf("expected threshold 0.82, got %f", cfg.Verification.Threshold)
	}
	if cfg.Verification.IntervalMS != 250 {
		t.Errorf("expected interval_ms 250, got %d", cfg.Verification.IntervalMS)
	}
	if cfg.Liveness.MotionWindow != 8 {
		t.Errorf("expected motion_window 8, got %d", cfg.Liveness.MotionWindow)
	}
	if cfg.Watchlist.LogCapacity != 50 {
		t.Errorf("expected log_capacity 50, got %d", cfg.Watchlist.LogCapacity)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}

	// Values the file omits keep their defaults
	if cfg.Verification.HighCutoff != 0.84 {
		t.Errorf("omitted high_cutoff should stay 0.84, got %f", cfg.Verification.HighCutoff)
	}
	if cfg.Liveness.Threshold != 0.60 {
		t.Errorf("omitted liveness threshold should stay 0.60, got %f", cfg.Liveness.Threshold)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if cfg == nil {
		t.Fatal("Load should still return the defaults")
	}
	if cfg.Verification.Threshold != 0.78 {
		t.Errorf("expected default threshold, got %f", cfg.Verification.Threshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Verification.Threshold = 1.5 },
			wantErr: "threshold",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Verification.Threshold = -0.1 },
			wantErr: "threshold",
		},
		{
			name:    "very_high below high",
			mutate:  func(c *Config) { c.Verification.VeryHighCutoff = 0.80 },
			wantErr: "very_high_cutoff",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Verification.IntervalMS = 0 },
			wantErr: "interval_ms",
		},
		{
			name:    "liveness threshold out of range",
			mutate:  func(c *Config) { c.Liveness.Threshold = 2.0 },
			wantErr: "liveness threshold",
		},
		{
			name:    "motion window too small",
			mutate:  func(c *Config) { c.Liveness.MotionWindow = 2 },
			wantErr: "motion_window",
		},
		{
			name:    "zero log capacity",
			mutate:  func(c *Config) { c.Watchlist.LogCapacity = 0 },
			wantErr: "log_capacity",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	expanded := ExpandPath("~/data")
	if expanded != filepath.Join(homeDir, "data") {
		t.Errorf("expected %s, got %s", filepath.Join(homeDir, "data"), expanded)
	}

	t.Setenv("FACESENTINEL_TEST_DIR", "/var/lib/test")
	expanded = ExpandPath("$FACESENTINEL_TEST_DIR/profiles")
	if expanded != "/var/lib/test/profiles" {
		t.Errorf("expected /var/lib/test/profiles, got %s", expanded)
	}
}

func TestExpandPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = "~/sentinel-data"
	cfg.Detector.ModelPath = "~/sentinel-models"
	cfg.Logging.File = "~/sentinel.log"
	cfg.ExpandPaths()

	for _, p := range []string{cfg.Storage.DataDir, cfg.Detector.ModelPath, cfg.Logging.File} {
		if strings.HasPrefix(p, "~") {
			t.Errorf("path %s was not expanded", p)
		}
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(tmpDir, "data")
	cfg.Detector.ModelPath = filepath.Join(tmpDir, "models")
	cfg.Logging.File = filepath.Join(tmpDir, "logs", "facesentinel.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Storage.DataDir, cfg.Detector.ModelPath, filepath.Join(tmpDir, "logs")} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory %s was not created", dir)
		}
	}
}
