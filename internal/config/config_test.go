// ABOUTME: Tests for stress configuration management.
// ABOUTME: Covers defaults, load, save, path resolution, and validation.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Training.TestWindowDays != 90 {
		t.Errorf("TestWindowDays = %d, want 90", cfg.Training.TestWindowDays)
	}
	if cfg.Training.MinModelAgeDays != 7 {
		t.Errorf("MinModelAgeDays = %d, want 7", cfg.Training.MinModelAgeDays)
	}
	if cfg.Training.Target != "stress_score" {
		t.Errorf("Target = %q, want %q", cfg.Training.Target, "stress_score")
	}
	if cfg.Sources.Heart.Heart == nil || cfg.Sources.Heart.Heart.MinName != "heart_min_rate" {
		t.Error("Expected heart output names in defaults")
	}
}

func TestGetDataDirDefault(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetDataDir(); got != "." {
		t.Errorf("GetDataDir() = %q, want %q", got, ".")
	}
}

func TestResolve(t *testing.T) {
	cfg := &Config{DataDir: "/srv/stress"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"relative", "models", "/srv/stress/models"},
		{"absolute", "/tmp/models", "/tmp/models"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Resolve(tt.in); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolvedPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"

	if got := cfg.DatasetPath(); got != "/data/data/processed/data.csv" {
		t.Errorf("DatasetPath() = %q", got)
	}
	if got := cfg.ModelsDir(); got != "/data/models" {
		t.Errorf("ModelsDir() = %q", got)
	}
	if got := cfg.MetricsLogPath(); got != "/data/logs/metrics_log.csv" {
		t.Errorf("MetricsLogPath() = %q", got)
	}
	src := cfg.ResolvedSource(cfg.Sources.Stress)
	if src.FilePath != "/data/data/raw/stress.csv" {
		t.Errorf("ResolvedSource().FilePath = %q", src.FilePath)
	}
	if cfg.Sources.Stress.FilePath != "data/raw/stress.csv" {
		t.Error("ResolvedSource must not mutate the config")
	}
}

func TestExpandPathTildeSlash(t *testing.T) {
	home, _ := os.UserHomeDir()

	got := ExpandPath("~/data/stress")
	want := filepath.Join(home, "data/stress")
	if got != want {
		t.Errorf("ExpandPath(\"~/data/stress\") = %q, want %q", got, want)
	}
	if got := ExpandPath("data/stress"); got != "data/stress" {
		t.Errorf("ExpandPath(\"data/stress\") = %q", got)
	}
}

func TestGetConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	got := GetConfigPath()
	want := filepath.Join(tmpDir, "stress", "config.yaml")
	if got != want {
		t.Errorf("GetConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() with no config file should not error: %v", err)
	}
	if cfg.Features.DatasetPath != "data/processed/data.csv" {
		t.Errorf("Expected default dataset path, got %q", cfg.Features.DatasetPath)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /var/lib/stress
training:
  test_window_days: 30
  candidates:
    - n_estimators: 50
      max_depth: 3
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DataDir != "/var/lib/stress" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Training.TestWindowDays != 30 {
		t.Errorf("TestWindowDays = %d, want 30", cfg.Training.TestWindowDays)
	}
	if cfg.Training.MinModelAgeDays != 7 {
		t.Errorf("MinModelAgeDays = %d, want default 7", cfg.Training.MinModelAgeDays)
	}
	if len(cfg.Training.Candidates) != 1 || cfg.Training.Candidates[0].MaxDepth != 3 {
		t.Errorf("Candidates = %+v", cfg.Training.Candidates)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.DataDir = "/tmp/stress-data"
	cfg.Server.Addr = ":9000"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.DataDir != "/tmp/stress-data" {
		t.Errorf("DataDir mismatch: got %q", loaded.DataDir)
	}
	if loaded.Server.Addr != ":9000" {
		t.Errorf("Server.Addr mismatch: got %q", loaded.Server.Addr)
	}
	if loaded.Sources.Heart.Heart.RateColumn != cfg.Sources.Heart.Heart.RateColumn {
		t.Errorf("Heart columns did not round trip")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("training: [not, a, map"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid YAML config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing stress path", func(c *Config) { c.Sources.Stress.FilePath = "" }},
		{"missing date column", func(c *Config) { c.Sources.Heart.DateColumn = "" }},
		{"heart without columns", func(c *Config) { c.Sources.Heart.Heart = nil }},
		{"stress without columns", func(c *Config) { c.Sources.Stress.Columns = nil }},
		{"zero lag", func(c *Config) { c.Features.MaxLag = 0 }},
		{"no target", func(c *Config) { c.Training.Target = "" }},
		{"one fold", func(c *Config) { c.Training.Folds = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
