// ABOUTME: MCP tool implementations for stress prediction and model lifecycle.
// ABOUTME: Provides predict_stress, retrain_status, retrain, list_runs, and get_run.
package mcp

import (
	"context"
	"fmt"

	"github.com/harperreed/stress/internal/models"
	"github.com/harperreed/stress/internal/predict"
	"github.com/harperreed/stress/internal/retrain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const dateLayout = "2006-01-02"

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "predict_stress",
		Description: "Predict the daily stress score from heart-rate and stress features",
	}, s.handlePredictStress)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "retrain_status",
		Description: "Report whether the model would be retrained now and why",
	}, s.handleRetrainStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "retrain",
		Description: "Apply the retrain policy, training a new model when it calls for one",
	}, s.handleRetrain)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recent training runs, optionally filtered by trigger",
	}, s.handleListRuns)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_run",
		Description: "Get one training run by ID or ID prefix",
	}, s.handleGetRun)
}

// Tool input/output types

type predictInput struct {
	Features map[string]float64 `json:"features" jsonschema:"Feature name to value, e.g. heart_min_rate and heart_min_rate_lag1"`
}

type predictOutput struct {
	Prediction float64 `json:"prediction"`
	Message    string  `json:"message"`
}

type retrainInput struct {
	Force       bool `json:"force,omitempty" jsonschema:"Retrain even when the model is up to date"`
	RefreshData bool `json:"refresh_data,omitempty" jsonschema:"Rebuild the dataset from raw exports before checking freshness"`
}

type statusOutput struct {
	Action        string `json:"action"`
	Trigger       string `json:"trigger,omitempty"`
	Reason        string `json:"reason"`
	HasModel      bool   `json:"has_model"`
	LastDataDate  string `json:"last_data_date,omitempty"`
	LastModelDate string `json:"last_model_date,omitempty"`
}

type retrainOutput struct {
	Status   statusOutput `json:"status"`
	RMSE     float64      `json:"rmse,omitempty"`
	Artifact string       `json:"artifact,omitempty"`
	Message  string       `json:"message"`
}

type listRunsInput struct {
	Trigger string `json:"trigger,omitempty" jsonschema:"Filter by trigger (cold_start, fresh_data, forced, manual)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type runOutput struct {
	ID       string  `json:"id"`
	RunDate  string  `json:"run_date"`
	Model    string  `json:"model"`
	Trigger  string  `json:"trigger"`
	Reason   string  `json:"reason"`
	RMSE     float64 `json:"rmse"`
	CVScore  float64 `json:"cv_score"`
	Artifact string  `json:"artifact"`
	Notes    string  `json:"notes,omitempty"`
}

type listRunsOutput struct {
	Runs    []runOutput `json:"runs"`
	Message string      `json:"message"`
}

type getRunInput struct {
	ID string `json:"id" jsonschema:"Run ID or prefix"`
}

// Tool handlers

func (s *Server) handlePredictStress(ctx context.Context, req *mcp.CallToolRequest, input predictInput) (*mcp.CallToolResult, predictOutput, error) {
	score, err := s.deps.Predictor.Predict(ctx, predict.Row(input.Features))
	if err != nil {
		return nil, predictOutput{}, err
	}
	score = roundScore(score)
	return nil, predictOutput{
		Prediction: score,
		Message:    fmt.Sprintf("Predicted stress score: %.2f", score),
	}, nil
}

func (s *Server) handleRetrainStatus(ctx context.Context, req *mcp.CallToolRequest, input retrainInput) (*mcp.CallToolResult, statusOutput, error) {
	state, err := s.deps.Retrainer.Evaluate(ctx, retrain.RunOptions{Force: input.Force, RefreshData: input.RefreshData})
	if err != nil {
		return nil, statusOutput{}, fmt.Errorf("failed to evaluate retrain state: %w", err)
	}
	return nil, toStatus(state, retrain.Decide(state, s.deps.Config.Training.MinModelAgeDays)), nil
}

func (s *Server) handleRetrain(ctx context.Context, req *mcp.CallToolRequest, input retrainInput) (*mcp.CallToolResult, retrainOutput, error) {
	out, err := s.deps.Retrainer.Run(ctx, retrain.RunOptions{Force: input.Force, RefreshData: input.RefreshData})
	if err != nil {
		return nil, retrainOutput{}, fmt.Errorf("failed to retrain: %w", err)
	}

	result := retrainOutput{Status: toStatus(out.State, out.Decision), Message: out.Decision.Reason}
	if out.Result != nil {
		result.RMSE = out.Result.RMSE
		result.Artifact = out.Result.ArtifactPath
		result.Message = fmt.Sprintf("Trained %s (RMSE %.2f)", out.Result.ArtifactPath, out.Result.RMSE)
	}
	return nil, result, nil
}

func (s *Server) handleListRuns(ctx context.Context, req *mcp.CallToolRequest, input listRunsInput) (*mcp.CallToolResult, listRunsOutput, error) {
	if s.deps.Repo == nil {
		return nil, listRunsOutput{}, fmt.Errorf("run registry is not available")
	}
	if input.Limit <= 0 {
		input.Limit = 20
	}

	var trigger *models.Trigger
	if input.Trigger != "" {
		if !models.IsValidTrigger(input.Trigger) {
			return nil, listRunsOutput{}, fmt.Errorf("unknown trigger: %s", input.Trigger)
		}
		tr := models.Trigger(input.Trigger)
		trigger = &tr
	}

	runs, err := s.deps.Repo.ListRuns(trigger, input.Limit)
	if err != nil {
		return nil, listRunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	out := listRunsOutput{Runs: make([]runOutput, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, toRunOutput(r))
	}
	if len(out.Runs) == 0 {
		out.Message = "No training runs found."
	} else {
		out.Message = fmt.Sprintf("Found %d training runs.", len(out.Runs))
	}
	return nil, out, nil
}

func (s *Server) handleGetRun(ctx context.Context, req *mcp.CallToolRequest, input getRunInput) (*mcp.CallToolResult, runOutput, error) {
	if s.deps.Repo == nil {
		return nil, runOutput{}, fmt.Errorf("run registry is not available")
	}
	r, err := s.deps.Repo.GetRun(input.ID)
	if err != nil {
		return nil, runOutput{}, fmt.Errorf("failed to get run: %w", err)
	}
	return nil, toRunOutput(r), nil
}

func toStatus(state retrain.State, d retrain.Decision) statusOutput {
	out := statusOutput{
		Action:   string(d.Action),
		Trigger:  string(d.Trigger),
		Reason:   d.Reason,
		HasModel: state.HasArtifact,
	}
	if state.HasDataDate {
		out.LastDataDate = state.LastDataDate.Format(dateLayout)
	}
	if state.HasModelDate {
		out.LastModelDate = state.LastModelDate.Format(dateLayout)
	}
	return out
}

func toRunOutput(r *models.TrainingRun) runOutput {
	out := runOutput{
		ID:       r.ID.String()[:8],
		RunDate:  r.RunDate.Format(dateLayout),
		Model:    r.Model,
		Trigger:  string(r.Trigger),
		Reason:   r.Trigger.Description(),
		RMSE:     r.RMSE,
		CVScore:  r.CVScore,
		Artifact: r.ArtifactPath,
	}
	if r.Notes != nil {
		out.Notes = *r.Notes
	}
	return out
}
