// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for Claude integration.
package main

import (
	"github.com/harperreed/stress/internal/mcp"
	"github.com/harperreed/stress/internal/predict"
	"github.com/harperreed/stress/internal/retrain"
	"github.com/harperreed/stress/internal/training"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

MCP allows AI assistants like Claude to ask for stress predictions, check
whether the model is stale, and browse training history. The server
communicates via stdin/stdout; logs go to stderr.

CLAUDE DESKTOP CONFIGURATION:

  Add this to your Claude Desktop config (claude_desktop_config.json):

  {
    "mcpServers": {
      "stress": {
        "command": "stress",
        "args": ["mcp"]
      }
    }
  }

  On macOS, the config is at:
    ~/Library/Application Support/Claude/claude_desktop_config.json

AVAILABLE TOOLS:

  predict_stress   Predict the stress score for one feature row
  retrain_status   Report whether the model would be retrained now
  retrain          Apply the retrain policy
  list_runs        List recent training runs
  get_run          Get one training run

AVAILABLE RESOURCES:

  stress://metrics-log    Every logged training run
  stress://latest-model   The artifact predictions are served from

Retrain metrics collected while the server runs are pushed to
telemetry.pushgateway on exit when it is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := mcp.Deps{
			Config:    cfg,
			Predictor: predict.New(cfg.ModelsDir(), predict.ArtifactLoader),
		}

		reg, m := newMetrics()
		defer pushMetrics(reg, "mcp")

		trainDeps := training.Deps{Logger: logger, Metrics: m}
		if db := openRegistry(); db != nil {
			defer func() { _ = db.Close() }()
			trainDeps.Registry = db
			deps.Repo = db
		}
		deps.Retrainer = retrain.NewPipeline(cfg, training.NewTrainer(cfg, trainDeps), retrain.Options{Logger: logger, Metrics: m})

		server, err := mcp.NewServer(deps)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
