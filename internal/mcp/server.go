// ABOUTME: MCP server exposing stress predictions, retrain status, and the run registry.
// ABOUTME: Wraps the MCP server with the predictor, retrain pipeline, and storage Repository.
package mcp

import (
	"context"
	"fmt"

	"github.com/harperreed/stress/internal/config"
	"github.com/harperreed/stress/internal/predict"
	"github.com/harperreed/stress/internal/retrain"
	"github.com/harperreed/stress/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Predictor scores one feature row.
type Predictor interface {
	Predict(ctx context.Context, row predict.Row) (float64, error)
}

// Retrainer evaluates and runs the retrain policy.
type Retrainer interface {
	Evaluate(ctx context.Context, ro retrain.RunOptions) (retrain.State, error)
	Run(ctx context.Context, ro retrain.RunOptions) (*retrain.Outcome, error)
}

// Deps are the collaborators the tools call. Repo may be nil.
type Deps struct {
	Config    *config.Config
	Predictor Predictor
	Retrainer Retrainer
	Repo      storage.Repository
}

// Server wraps the MCP server with pipeline access.
type Server struct {
	mcpServer *mcp.Server
	deps      Deps
}

// NewServer creates a new MCP server.
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.Predictor == nil || deps.Retrainer == nil {
		return nil, fmt.Errorf("mcp server needs config, predictor, and retrainer")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "stress",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		deps:      deps,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
