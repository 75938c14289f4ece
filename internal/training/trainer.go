// ABOUTME: Orchestrates one training run: rebuild dataset, search, evaluate, persist.
// ABOUTME: The artifact and log row are written only after evaluation succeeds.
package training

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/stress/internal/artifacts"
	"github.com/harperreed/stress/internal/config"
	"github.com/harperreed/stress/internal/features"
	"github.com/harperreed/stress/internal/gbm"
	"github.com/harperreed/stress/internal/logging"
	"github.com/harperreed/stress/internal/metrics"
	"github.com/harperreed/stress/internal/models"
	"github.com/harperreed/stress/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// TrainError wraps any failure of a training run.
type TrainError struct {
	Stage string
	Err   error
}

func (e *TrainError) Error() string {
	return fmt.Sprintf("train model: %s: %v", e.Stage, e.Err)
}

func (e *TrainError) Unwrap() error {
	return e.Err
}

// DatasetBuilder regenerates the merged dataset file.
type DatasetBuilder interface {
	Run(ctx context.Context) (*features.Frame, error)
	Path() string
}

// RunRecorder stores completed runs.
type RunRecorder interface {
	CreateRun(r *models.TrainingRun) error
}

// Deps are the trainer's collaborators. Only Builder is required.
type Deps struct {
	Builder  DatasetBuilder
	Registry RunRecorder
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Result describes a finished run.
type Result struct {
	Model        *gbm.Model
	RMSE         float64
	CVScore      float64
	ArtifactPath string
	TrainRows    int
	TestRows     int
	Cutoff       time.Time
}

// Trainer fits and persists models.
type Trainer struct {
	cfg  *config.Config
	deps Deps
}

// NewTrainer creates a trainer. A nil deps.Builder uses the dataset merger.
func NewTrainer(cfg *config.Config, deps Deps) *Trainer {
	deps.Logger = logging.OrNop(deps.Logger)
	if deps.Builder == nil {
		deps.Builder = features.NewMerger(cfg, deps.Logger, deps.Metrics)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Trainer{cfg: cfg, deps: deps}
}

// Train runs the full pipeline and returns the fitted model.
func (t *Trainer) Train(ctx context.Context) (*gbm.Model, error) {
	res, err := t.Run(ctx, models.TriggerManual)
	if err != nil {
		return nil, err
	}
	return res.Model, nil
}

// Run trains and records why the run happened.
func (t *Trainer) Run(ctx context.Context, trigger models.Trigger) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "training.run")
	defer span.End()
	span.SetAttributes(attribute.String("trigger", string(trigger)))
	start := time.Now()

	res, err := t.run(ctx)
	t.deps.Metrics.TrainingFinished(err, rmseOf(res))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.deps.Logger.Error("training failed", zap.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)
	t.deps.Metrics.ObserveStage("train", elapsed)

	t.record(res, trigger, elapsed)
	t.deps.Logger.Info("model trained",
		zap.String("trigger", string(trigger)),
		zap.Float64("rmse", res.RMSE),
		zap.String("artifact", res.ArtifactPath),
		zap.Int("train_rows", res.TrainRows),
		zap.Int("test_rows", res.TestRows),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

func (t *Trainer) run(ctx context.Context) (*Result, error) {
	if _, err := t.deps.Builder.Run(ctx); err != nil {
		return nil, &TrainError{Stage: "build dataset", Err: err}
	}
	frame, err := features.ReadFile(t.deps.Builder.Path())
	if err != nil {
		return nil, &TrainError{Stage: "read dataset", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &TrainError{Stage: "read dataset", Err: err}
	}

	data, err := FromFrame(frame, t.cfg.Training.Target)
	if err != nil {
		return nil, &TrainError{Stage: "prepare dataset", Err: err}
	}
	train, test, cutoff, err := TemporalSplit(data, t.cfg.Training.TestWindowDays)
	if err != nil {
		return nil, &TrainError{Stage: "split", Err: err}
	}

	_, searchSpan := telemetry.Tracer().Start(ctx, "training.search")
	search := Search{
		Candidates: t.cfg.Training.Candidates,
		Iterations: t.cfg.Training.SearchIter,
		Folds:      t.cfg.Training.Folds,
		Seed:       t.cfg.Training.Seed,
	}
	best, err := search.Fit(train)
	searchSpan.End()
	if err != nil {
		return nil, &TrainError{Stage: "search", Err: err}
	}

	rawRMSE, err := RMSE(test.Y, best.Model.PredictAll(test.X))
	if err != nil {
		return nil, &TrainError{Stage: "evaluate", Err: err}
	}
	rmse := Round2(rawRMSE)

	now := t.deps.Now()
	path := artifacts.Path(t.cfg.ModelsDir(), now)
	if err := t.persist(best.Model, path, rmse, now); err != nil {
		return nil, &TrainError{Stage: "persist", Err: err}
	}

	return &Result{
		Model:        best.Model,
		RMSE:         rmse,
		CVScore:      best.Score,
		ArtifactPath: path,
		TrainRows:    train.Len(),
		TestRows:     test.Len(),
		Cutoff:       cutoff,
	}, nil
}

// persist writes the artifact then appends the log row, holding the models
// directory lock across both.
func (t *Trainer) persist(m *gbm.Model, path string, rmse float64, now time.Time) error {
	unlock, err := artifacts.Lock(t.cfg.ModelsDir())
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	if err := gbm.Save(path, m); err != nil {
		return err
	}
	log := MetricsLog{Path: t.cfg.MetricsLogPath()}
	return log.Append(LogEntry{Date: now, Model: m.Name, RMSE: rmse, Path: path})
}

// record stores the run in the registry. Registry failures are logged only.
func (t *Trainer) record(res *Result, trigger models.Trigger, elapsed time.Duration) {
	if t.deps.Registry == nil {
		return
	}
	run := models.NewTrainingRun(res.Model.Name, res.RMSE, res.ArtifactPath).
		WithTrigger(trigger).
		WithRunDate(t.deps.Now()).
		WithNotes(runNotes(res))
	run.CVScore = res.CVScore
	run.TrainRows = res.TrainRows
	run.TestRows = res.TestRows
	run.Duration = elapsed
	if err := t.deps.Registry.CreateRun(run); err != nil {
		t.deps.Logger.Warn("record training run", zap.Error(err))
	}
}

// runNotes summarizes the split and the chosen hyperparameters.
func runNotes(res *Result) string {
	p := res.Model.Params
	return fmt.Sprintf("cutoff %s, n_estimators=%d max_depth=%d learning_rate=%g",
		res.Cutoff.Format("2006-01-02"), p.NEstimators, p.MaxDepth, p.LearningRate)
}

func rmseOf(res *Result) float64 {
	if res == nil {
		return 0
	}
	return res.RMSE
}
