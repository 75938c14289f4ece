// ABOUTME: MCP resource implementations for the model lifecycle.
// ABOUTME: Provides stress://metrics-log and stress://latest-model resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/harperreed/stress/internal/artifacts"
	"github.com/harperreed/stress/internal/gbm"
	"github.com/harperreed/stress/internal/training"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	metricsLogURI  = "stress://metrics-log"
	latestModelURI = "stress://latest-model"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         metricsLogURI,
		Name:        "Training Metrics Log",
		Description: "Every logged training run with its held-out RMSE",
		MIMEType:    "application/json",
	}, s.handleMetricsLogResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         latestModelURI,
		Name:        "Latest Model",
		Description: "The artifact predictions are served from, with its features and parameters",
		MIMEType:    "application/json",
	}, s.handleLatestModelResource)
}

// Resource handlers

func (s *Server) handleMetricsLogResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	log := training.MetricsLog{Path: s.deps.Config.MetricsLogPath()}
	entries, err := log.Entries()
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics log: %w", err)
	}
	if entries == nil {
		entries = []training.LogEntry{}
	}
	return jsonResource(metricsLogURI, map[string]interface{}{"entries": entries})
}

func (s *Server) handleLatestModelResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	path, ok, err := artifacts.Latest(s.deps.Config.ModelsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	if !ok {
		return jsonResource(latestModelURI, map[string]interface{}{"message": "No model has been trained yet."})
	}

	m, err := gbm.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	result := map[string]interface{}{
		"artifact":   path,
		"model":      m.Name,
		"features":   m.Features(),
		"params":     m.Params,
		"trees":      len(m.Trees),
		"trained_at": m.TrainedAt,
	}
	if s.deps.Repo != nil {
		if run, err := s.deps.Repo.GetLatestRun(); err == nil {
			result["latest_run"] = toRunOutput(run)
		}
	}
	return jsonResource(latestModelURI, result)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
