// ABOUTME: CLI command for serving predictions over HTTP.
// ABOUTME: Registers Prometheus collectors and runs the Gin server until interrupted.
package main

import (
	"github.com/harperreed/stress/internal/metrics"
	"github.com/harperreed/stress/internal/predict"
	"github.com/harperreed/stress/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	Long: `Start the prediction HTTP server.

ENDPOINTS:

  POST /predict   JSON object of feature name to value
                  200 {"Prediction": 41.24}
                  400 {"Error": "No data was provided"}
                  500 {"Error": "..."}
  GET  /health    {"status": "ok"}
  GET  /metrics   Prometheus metrics

The newest model artifact is loaded on every request, so a model trained
while the server runs is picked up without a restart.

EXAMPLES:

  stress serve                  # Listen on server.addr (default :2000)
  stress serve --addr :8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		srv := server.NewServer(predict.New(cfg.ModelsDir(), predict.ArtifactLoader), server.Options{
			Logger:   logger,
			Metrics:  metrics.New(reg),
			Gatherer: reg,
		})

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		logger.Info("serving predictions", zap.String("addr", addr), zap.String("models", cfg.ModelsDir()))
		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}
