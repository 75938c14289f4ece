// ABOUTME: Root Cobra command for stress CLI.
// ABOUTME: Loads config, logger, and tracing before each command and flushes them after.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/stress/internal/config"
	"github.com/harperreed/stress/internal/logging"
	"github.com/harperreed/stress/internal/storage"
	"github.com/harperreed/stress/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath  string
	logLevel string

	cfg           *config.Config
	logger        *zap.Logger
	shutdownTrace func(context.Context) error

	initTracing = telemetry.Init
)

var rootCmd = &cobra.Command{
	Use:   "stress",
	Short: "Daily stress-score training pipeline and prediction service",
	Long: `Stress trains a model that predicts your daily stress score from wearable
health exports, keeps it fresh, and serves predictions.

HOW IT WORKS:

  Raw exports     heart-rate and stress CSVs exported from Samsung Health
  Dataset         one row per day, outer-joined on date, with lagged features
  Model           gradient-boosted trees tuned by time-series cross-validation
  Metrics log     one CSV row per trained model with its held-out RMSE

QUICK START:

  $ stress config init                  # Write the default config
  $ stress transform                    # Build the merged dataset
  $ stress train                        # Train if there is no model or new data
  $ stress train --force-retrain        # Train even if the model is fresh
  $ stress predict heart_min_rate=55 heart_min_rate_lag1=54 ...
  $ stress serve                        # POST /predict on :2000

HISTORY:

  $ stress log                          # Metrics log (date, model, rmse, path)
  $ stress runs                         # Training runs with their trigger
  $ stress runs show abc123             # One run in detail

MCP INTEGRATION:

  Run 'stress mcp' to start the Model Context Protocol server for use with
  Claude Desktop or other MCP-compatible AI assistants. Add to your Claude
  config:

  {
    "mcpServers": {
      "stress": { "command": "stress", "args": ["mcp"] }
    }
  }

DATA LOCATION:

  Paths in the config are relative to data_dir (default: the working
  directory). The config lives at ~/.config/stress/config.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "install-skill" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(level, cfg.Logging.Development)
		if err != nil {
			return err
		}

		shutdownTrace, err = initTracing(cmd.Context(), cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		return nil
	},
}

// run executes the root command and flushes traces and logs whether or
// not the command failed.
func run() error {
	defer shutdown()
	return rootCmd.Execute()
}

// shutdown flushes pending spans and syncs the logger. Safe to call twice.
func shutdown() {
	if shutdownTrace != nil {
		if err := shutdownTrace(context.Background()); err != nil && logger != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
		shutdownTrace = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// openRegistry opens the run registry. The registry is bookkeeping only,
// so a failure is logged and nil returned.
func openRegistry() *storage.DB {
	db, err := storage.Open(cfg.RegistryPath())
	if err != nil {
		logger.Warn("run registry unavailable", zap.String("path", cfg.RegistryPath()), zap.Error(err))
		return nil
	}
	return db
}

// requireRegistry opens the run registry for commands that cannot work without it.
func requireRegistry() (*storage.DB, error) {
	db, err := storage.Open(cfg.RegistryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open run registry: %w", err)
	}
	return db, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: ~/.config/stress/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
