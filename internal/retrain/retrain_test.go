// ABOUTME: Tests for the retrain policy and the pipeline that applies it.
// ABOUTME: A counting fake trainer stands in for model fitting.
package retrain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/stress/internal/artifacts"
	"github.com/harperreed/stress/internal/config"
	"github.com/harperreed/stress/internal/features"
	"github.com/harperreed/stress/internal/models"
	"github.com/harperreed/stress/internal/training"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDecide(t *testing.T) {
	today := date(2025, 7, 20)
	tests := []struct {
		name    string
		state   State
		action  Action
		trigger models.Trigger
	}{
		{
			name:    "cold start",
			state:   State{Today: today},
			action:  ActionTrain,
			trigger: models.TriggerColdStart,
		},
		{
			name: "fresh data and old model",
			state: State{HasArtifact: true, Today: today,
				HasDataDate: true, LastDataDate: date(2025, 7, 18),
				HasModelDate: true, LastModelDate: date(2025, 7, 1)},
			action:  ActionTrain,
			trigger: models.TriggerFreshData,
		},
		{
			name: "fresh data but model too young",
			state: State{HasArtifact: true, Today: today,
				HasDataDate: true, LastDataDate: date(2025, 7, 19),
				HasModelDate: true, LastModelDate: date(2025, 7, 13)},
			action: ActionSkip,
		},
		{
			name: "model exactly at minimum age",
			state: State{HasArtifact: true, Today: today,
				HasDataDate: true, LastDataDate: date(2025, 7, 19),
				HasModelDate: true, LastModelDate: date(2025, 7, 12)},
			action:  ActionTrain,
			trigger: models.TriggerFreshData,
		},
		{
			name: "old model without newer data",
			state: State{HasArtifact: true, Today: today,
				HasDataDate: true, LastDataDate: date(2025, 6, 1),
				HasModelDate: true, LastModelDate: date(2025, 6, 1)},
			action: ActionSkip,
		},
		{
			name: "forced",
			state: State{HasArtifact: true, Today: today, Force: true,
				HasDataDate: true, LastDataDate: date(2025, 7, 19),
				HasModelDate: true, LastModelDate: date(2025, 7, 19)},
			action:  ActionTrain,
			trigger: models.TriggerForced,
		},
		{
			name: "unknown data date",
			state: State{HasArtifact: true, Today: today,
				HasModelDate: true, LastModelDate: date(2024, 1, 1)},
			action: ActionSkip,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.state, 7)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.trigger, d.Trigger)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

type fakeTrainer struct {
	cfg      *config.Config
	triggers []models.Trigger
	err      error
}

func (f *fakeTrainer) Run(_ context.Context, trigger models.Trigger) (*training.Result, error) {
	f.triggers = append(f.triggers, trigger)
	if f.err != nil {
		return nil, f.err
	}
	return &training.Result{ArtifactPath: artifacts.Path(f.cfg.ModelsDir(), date(2025, 7, 20))}, nil
}

type countingBuilder struct {
	path  string
	frame *features.Frame
	calls int
}

func (b *countingBuilder) Run(context.Context) (*features.Frame, error) {
	b.calls++
	return b.frame, features.WriteFileAtomic(b.path, b.frame)
}

func (b *countingBuilder) Path() string { return b.path }

func datasetThrough(last time.Time) *features.Frame {
	return &features.Frame{
		Columns: []string{"stress_score"},
		Dates:   []time.Time{last.AddDate(0, 0, -1), last},
		Rows:    [][]float64{{30}, {31}},
	}
}

type fixture struct {
	cfg     *config.Config
	trainer *fakeTrainer
	builder *countingBuilder
	pipe    *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	f := &fixture{cfg: cfg, trainer: &fakeTrainer{cfg: cfg}}
	f.builder = &countingBuilder{path: cfg.DatasetPath(), frame: datasetThrough(date(2025, 7, 19))}
	f.pipe = NewPipeline(cfg, f.trainer, Options{
		Refresher: f.builder,
		Now:       func() time.Time { return date(2025, 7, 20) },
	})
	return f
}

func (f *fixture) writeArtifact(t *testing.T, day time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.cfg.ModelsDir(), 0750))
	require.NoError(t, os.WriteFile(artifacts.Path(f.cfg.ModelsDir(), day), []byte("{}"), 0600))
}

func (f *fixture) logModel(t *testing.T, day time.Time) {
	t.Helper()
	log := training.MetricsLog{Path: f.cfg.MetricsLogPath()}
	require.NoError(t, log.Append(training.LogEntry{Date: day, Model: "m", RMSE: 1, Path: artifacts.Path(f.cfg.ModelsDir(), day)}))
}

func (f *fixture) writeDataset(t *testing.T, last time.Time) {
	t.Helper()
	require.NoError(t, features.WriteFileAtomic(f.cfg.DatasetPath(), datasetThrough(last)))
}

func TestColdStartTrainsExactlyOnce(t *testing.T) {
	f := newFixture(t)

	out, err := f.pipe.Run(context.Background(), RunOptions{Force: true, RefreshData: true})
	require.NoError(t, err)

	assert.Equal(t, []models.Trigger{models.TriggerColdStart}, f.trainer.triggers)
	assert.NotNil(t, out.Result)
	assert.Equal(t, 0, f.builder.calls, "cold start leaves dataset building to the trainer")
}

func TestFreshDataRetrains(t *testing.T) {
	f := newFixture(t)
	f.writeArtifact(t, date(2025, 7, 1))
	f.logModel(t, date(2025, 7, 1))
	f.writeDataset(t, date(2025, 7, 19))

	out, err := f.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []models.Trigger{models.TriggerFreshData}, f.trainer.triggers)
	assert.Equal(t, date(2025, 7, 19), out.State.LastDataDate)
	assert.Equal(t, date(2025, 7, 1), out.State.LastModelDate)
}

func TestUpToDateSkips(t *testing.T) {
	f := newFixture(t)
	f.writeArtifact(t, date(2025, 7, 18))
	f.logModel(t, date(2025, 7, 18))
	f.writeDataset(t, date(2025, 7, 19))

	out, err := f.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Empty(t, f.trainer.triggers)
	assert.Equal(t, ActionSkip, out.Decision.Action)
	assert.Equal(t, "model is up to date", out.Decision.Reason)
}

func TestForceRetrains(t *testing.T) {
	f := newFixture(t)
	f.writeArtifact(t, date(2025, 7, 18))
	f.logModel(t, date(2025, 7, 18))
	f.writeDataset(t, date(2025, 7, 19))

	_, err := f.pipe.Run(context.Background(), RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, []models.Trigger{models.TriggerForced}, f.trainer.triggers)
}

func TestEmptyLogFallsBackToArtifactDate(t *testing.T) {
	f := newFixture(t)
	f.writeArtifact(t, date(2025, 6, 1))
	f.writeDataset(t, date(2025, 7, 19))
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.MetricsLogPath()), 0750))
	require.NoError(t, os.WriteFile(f.cfg.MetricsLogPath(), []byte("date,model,rmse,path\n"), 0600))

	state, err := f.pipe.Evaluate(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, state.HasModelDate)
	assert.Equal(t, date(2025, 6, 1), state.LastModelDate)

	_, err = f.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []models.Trigger{models.TriggerFreshData}, f.trainer.triggers)
}

func TestMissingDatasetSkipsFreshness(t *testing.T) {
	f := newFixture(t)
	f.writeArtifact(t, date(2024, 1, 1))
	f.logModel(t, date(2024, 1, 1))

	out, err := f.pipe.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.False(t, out.State.HasDataDate)
	assert.Empty(t, f.trainer.triggers)
}

func TestRefreshDataRebuildsBeforeCheck(t *testing.T) {
	f := newFixture(t)
	f.writeArtifact(t, date(2025, 7, 1))
	f.logModel(t, date(2025, 7, 1))
	f.writeDataset(t, date(2025, 6, 1))

	out, err := f.pipe.Run(context.Background(), RunOptions{RefreshData: true})
	require.NoError(t, err)

	assert.Equal(t, 1, f.builder.calls)
	assert.Equal(t, date(2025, 7, 19), out.State.LastDataDate)
	assert.Equal(t, []models.Trigger{models.TriggerFreshData}, f.trainer.triggers)
}

func TestTrainerFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.trainer.err = &training.TrainError{Stage: "split", Err: errors.New("no rows")}

	_, err := f.pipe.Run(context.Background(), RunOptions{})
	var trainErr *training.TrainError
	assert.ErrorAs(t, err, &trainErr)
}
