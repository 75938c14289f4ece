// ABOUTME: Gathers retrain state from artifacts, the dataset, and the metrics log, then acts on it.
// ABOUTME: Cold start trains exactly once and stops.
package retrain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/stress/internal/artifacts"
	"github.com/harperreed/stress/internal/config"
	"github.com/harperreed/stress/internal/features"
	"github.com/harperreed/stress/internal/logging"
	"github.com/harperreed/stress/internal/metrics"
	"github.com/harperreed/stress/internal/models"
	"github.com/harperreed/stress/internal/telemetry"
	"github.com/harperreed/stress/internal/training"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Trainer runs one training pass.
type Trainer interface {
	Run(ctx context.Context, trigger models.Trigger) (*training.Result, error)
}

// Options configures a Pipeline. Every field is optional.
type Options struct {
	// Refresher regenerates the dataset for RunOptions.RefreshData.
	Refresher training.DatasetBuilder
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// RunOptions are per-invocation flags.
type RunOptions struct {
	Force       bool
	RefreshData bool
}

// Outcome is what Run decided and, when it trained, the result.
type Outcome struct {
	State    State
	Decision Decision
	Result   *training.Result
}

// Pipeline decides whether to retrain and invokes the trainer.
type Pipeline struct {
	cfg     *config.Config
	trainer Trainer
	opts    Options
}

// NewPipeline creates a pipeline around trainer.
func NewPipeline(cfg *config.Config, trainer Trainer, opts Options) *Pipeline {
	opts.Logger = logging.OrNop(opts.Logger)
	if opts.Refresher == nil {
		opts.Refresher = features.NewMerger(cfg, opts.Logger, opts.Metrics)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{cfg: cfg, trainer: trainer, opts: opts}
}

// Evaluate collects the retrain State without training.
func (p *Pipeline) Evaluate(ctx context.Context, ro RunOptions) (State, error) {
	state := State{Today: p.opts.Now(), Force: ro.Force}

	latest, ok, err := artifacts.Latest(p.cfg.ModelsDir())
	if err != nil {
		return state, err
	}
	state.HasArtifact = ok
	if !ok {
		return state, nil
	}

	if ro.RefreshData {
		if _, err := p.opts.Refresher.Run(ctx); err != nil {
			return state, fmt.Errorf("refresh dataset: %w", err)
		}
	}

	frame, err := features.ReadFile(p.cfg.DatasetPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		p.opts.Logger.Warn("no merged dataset; freshness check skipped", zap.String("path", p.cfg.DatasetPath()))
	case err != nil:
		return state, fmt.Errorf("read dataset: %w", err)
	default:
		state.LastDataDate, state.HasDataDate = frame.MaxDate()
	}

	log := training.MetricsLog{Path: p.cfg.MetricsLogPath()}
	state.LastModelDate, state.HasModelDate, err = log.LastDate()
	if err != nil {
		return state, err
	}
	if !state.HasModelDate {
		day, err := artifacts.DateOf(latest)
		if err != nil {
			return state, err
		}
		state.LastModelDate, state.HasModelDate = day, true
		p.opts.Logger.Warn("metrics log is empty; using artifact date", zap.String("artifact", latest))
	}
	return state, nil
}

// Run evaluates the policy and trains at most once.
func (p *Pipeline) Run(ctx context.Context, ro RunOptions) (*Outcome, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "retrain.run")
	defer span.End()

	state, err := p.Evaluate(ctx, ro)
	if err != nil {
		return nil, fmt.Errorf("evaluate retrain state: %w", err)
	}

	decision := Decide(state, p.cfg.Training.MinModelAgeDays)
	span.SetAttributes(
		attribute.String("decision.action", string(decision.Action)),
		attribute.String("decision.trigger", string(decision.Trigger)),
	)
	p.opts.Metrics.RetrainDecided(string(decision.Action))

	out := &Outcome{State: state, Decision: decision}
	if !decision.Train() {
		p.opts.Logger.Info(decision.Reason)
		return out, nil
	}

	p.opts.Logger.Info("retraining", zap.String("trigger", string(decision.Trigger)), zap.String("reason", decision.Reason))
	res, err := p.trainer.Run(ctx, decision.Trigger)
	if err != nil {
		return out, err
	}
	out.Result = res
	return out, nil
}
