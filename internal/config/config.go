// ABOUTME: Stress pipeline configuration: raw sources, feature, training, and server settings.
// ABOUTME: Loaded from YAML over built-in defaults; relative paths resolve against DataDir.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/stress/internal/gbm"
	"gopkg.in/yaml.v3"
)

// SourceTypeHeart selects the max/min/median heart-rate aggregation.
const SourceTypeHeart = "heart"

// Config stores stress tool configuration.
type Config struct {
	// DataDir is the root that relative paths below resolve against.
	// Supports ~ expansion. Defaults to the working directory.
	DataDir string `yaml:"data_dir,omitempty"`

	Sources   Sources         `yaml:"sources"`
	Features  FeatureConfig   `yaml:"features"`
	Training  TrainingConfig  `yaml:"training"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Registry  RegistryConfig  `yaml:"registry"`
}

// Sources lists the raw exports merged into the training dataset.
type Sources struct {
	Heart  Source `yaml:"heart"`
	Stress Source `yaml:"stress"`
}

// Source describes one raw per-source daily export.
type Source struct {
	Name       string   `yaml:"name"`
	FilePath   string   `yaml:"file_path"`
	DateColumn string   `yaml:"date_column"`
	Columns    []string `yaml:"columns,omitempty"`
	Prefix     string   `yaml:"prefix"`
	Type       string   `yaml:"type,omitempty"`

	// Heart names the raw columns and output names used when Type is "heart".
	Heart *HeartColumns `yaml:"heart,omitempty"`
}

// HeartColumns maps raw heart-rate columns to their aggregated output names.
type HeartColumns struct {
	MaxColumn  string `yaml:"max_column"`
	MinColumn  string `yaml:"min_column"`
	RateColumn string `yaml:"rate_column"`
	MaxName    string `yaml:"max_name"`
	MinName    string `yaml:"min_name"`
	RateName   string `yaml:"rate_name"`
}

// FeatureConfig controls dataset assembly.
type FeatureConfig struct {
	LagFeatures []string `yaml:"lag_features"`
	MaxLag      int      `yaml:"max_lag"`
	DatasetPath string   `yaml:"dataset_path"`
}

// TrainingConfig controls model fitting and artifact persistence.
type TrainingConfig struct {
	Target          string       `yaml:"target"`
	ModelsDir       string       `yaml:"models_dir"`
	MetricsLogPath  string       `yaml:"metrics_log_path"`
	TestWindowDays  int          `yaml:"test_window_days"`
	MinModelAgeDays int          `yaml:"min_model_age_days"`
	Folds           int          `yaml:"folds"`
	SearchIter      int          `yaml:"search_iterations"`
	Seed            uint64       `yaml:"seed"`
	Candidates      []gbm.Params `yaml:"candidates,omitempty"`
}

// ServerConfig controls the prediction HTTP endpoint.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development,omitempty"`
}

// TelemetryConfig controls OpenTelemetry tracing and metric pushes.
// Tracing is off when Endpoint is empty.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint,omitempty"`

	// Pushgateway is the Prometheus Pushgateway URL that train, transform,
	// and mcp push their pipeline metrics to. Empty disables pushing.
	Pushgateway string `yaml:"pushgateway,omitempty"`
}

// RegistryConfig locates the SQLite training-run registry.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration for Samsung Health exports.
func Default() *Config {
	return &Config{
		Sources: Sources{
			Heart: Source{
				Name:       "heart_rate",
				FilePath:   "data/raw/heart_rate.csv",
				DateColumn: "com.samsung.health.heart_rate.start_time",
				Prefix:     "heart_",
				Type:       SourceTypeHeart,
				Heart: &HeartColumns{
					MaxColumn:  "com.samsung.health.heart_rate.max",
					MinColumn:  "com.samsung.health.heart_rate.min",
					RateColumn: "com.samsung.health.heart_rate.heart_rate",
					MaxName:    "heart_max_rate",
					MinName:    "heart_min_rate",
					RateName:   "heart_rate",
				},
			},
			Stress: Source{
				Name:       "stress",
				FilePath:   "data/raw/stress.csv",
				DateColumn: "start_time",
				Columns:    []string{"max", "min", "score"},
				Prefix:     "stress_",
			},
		},
		Features: FeatureConfig{
			LagFeatures: []string{"heart_min_rate"},
			MaxLag:      3,
			DatasetPath: "data/processed/data.csv",
		},
		Training: TrainingConfig{
			Target:          "stress_score",
			ModelsDir:       "models",
			MetricsLogPath:  "logs/metrics_log.csv",
			TestWindowDays:  90,
			MinModelAgeDays: 7,
			Folds:           5,
			SearchIter:      1,
			Seed:            42,
		},
		Server: ServerConfig{
			Addr: ":2000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "stress",
		},
		Registry: RegistryConfig{
			Path: "logs/runs.db",
		},
	}
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the working directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return "."
	}
	return ExpandPath(c.DataDir)
}

// Resolve expands p and anchors it at the data directory when relative.
func (c *Config) Resolve(p string) string {
	p = ExpandPath(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetDataDir(), p)
}

// DatasetPath returns the resolved merged dataset path.
func (c *Config) DatasetPath() string {
	return c.Resolve(c.Features.DatasetPath)
}

// ModelsDir returns the resolved model artifact directory.
func (c *Config) ModelsDir() string {
	return c.Resolve(c.Training.ModelsDir)
}

// MetricsLogPath returns the resolved metrics log path.
func (c *Config) MetricsLogPath() string {
	return c.Resolve(c.Training.MetricsLogPath)
}

// RegistryPath returns the resolved run registry database path.
func (c *Config) RegistryPath() string {
	return c.Resolve(c.Registry.Path)
}

// ResolvedSource returns src with its file path resolved.
func (c *Config) ResolvedSource(src Source) Source {
	src.FilePath = c.Resolve(src.FilePath)
	return src
}

// Validate reports configuration the pipeline cannot run with.
func (c *Config) Validate() error {
	for _, src := range []Source{c.Sources.Heart, c.Sources.Stress} {
		if src.FilePath == "" {
			return fmt.Errorf("source %q: file_path is required", src.Name)
		}
		if src.DateColumn == "" {
			return fmt.Errorf("source %q: date_column is required", src.Name)
		}
		if src.Type == SourceTypeHeart {
			if src.Heart == nil {
				return fmt.Errorf("source %q: heart columns are required for type %q", src.Name, SourceTypeHeart)
			}
		} else if len(src.Columns) == 0 {
			return fmt.Errorf("source %q: columns are required", src.Name)
		}
	}
	if c.Features.MaxLag < 1 {
		return fmt.Errorf("features: max_lag must be positive")
	}
	if c.Training.Target == "" {
		return fmt.Errorf("training: target is required")
	}
	if c.Training.TestWindowDays < 1 {
		return fmt.Errorf("training: test_window_days must be positive")
	}
	if c.Training.Folds < 2 {
		return fmt.Errorf("training: folds must be at least 2")
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "stress", "config.yaml")
}

// Load reads config from path over the defaults. An empty path means
// GetConfigPath; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to path, or GetConfigPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = GetConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
