// ABOUTME: Prometheus wiring for commands that train or rebuild the dataset.
// ABOUTME: Collected metrics are pushed to a Pushgateway when one is configured.
package main

import (
	"context"
	"time"

	"github.com/harperreed/stress/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const pushTimeout = 10 * time.Second

// newMetrics returns pipeline collectors registered on a fresh registry.
func newMetrics() (*prometheus.Registry, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	return reg, metrics.New(reg)
}

// pushMetrics sends everything g gathered to telemetry.pushgateway, grouped
// by command. A failed push is logged and never fails the command.
func pushMetrics(g prometheus.Gatherer, command string) {
	url := cfg.Telemetry.Pushgateway
	if url == "" {
		return
	}
	job := cfg.Telemetry.ServiceName
	if job == "" {
		job = "stress"
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	err := push.New(url, job).
		Grouping("command", command).
		Gatherer(g).
		PushContext(ctx)
	if err != nil {
		logger.Warn("push metrics", zap.String("url", url), zap.Error(err))
		return
	}
	logger.Debug("pushed metrics", zap.String("url", url), zap.String("command", command))
}
