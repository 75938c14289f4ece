// ABOUTME: TrainingRun model and Trigger enum for the training-run registry.
// ABOUTME: One record per successful training run, keyed by UUID.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Trigger records why a training run happened.
type Trigger string

const (
	TriggerColdStart Trigger = "cold_start"
	TriggerFreshData Trigger = "fresh_data"
	TriggerForced    Trigger = "forced"
	TriggerManual    Trigger = "manual"
)

// TriggerDescriptions maps triggers to human-readable reasons.
var TriggerDescriptions = map[Trigger]string{
	TriggerColdStart: "no model artifact existed",
	TriggerFreshData: "newer data than the last model",
	TriggerForced:    "retrain was forced",
	TriggerManual:    "trainer invoked directly",
}

// Description returns the human-readable reason for t, or t itself when
// it has none.
func (t Trigger) Description() string {
	if d, ok := TriggerDescriptions[t]; ok {
		return d
	}
	return string(t)
}

// AllTriggers returns all valid triggers.
var AllTriggers = []Trigger{TriggerColdStart, TriggerFreshData, TriggerForced, TriggerManual}

// IsValidTrigger checks if a string is a valid trigger.
func IsValidTrigger(s string) bool {
	for _, t := range AllTriggers {
		if string(t) == s {
			return true
		}
	}
	return false
}

// TrainingRun represents one completed training run.
type TrainingRun struct {
	ID           uuid.UUID
	RunDate      time.Time
	Model        string
	Trigger      Trigger
	RMSE         float64
	CVScore      float64
	ArtifactPath string
	TrainRows    int
	TestRows     int
	Duration     time.Duration
	Notes        *string
	CreatedAt    time.Time
}

// NewTrainingRun creates a TrainingRun with generated UUID and current timestamp.
func NewTrainingRun(model string, rmse float64, artifactPath string) *TrainingRun {
	now := time.Now()
	return &TrainingRun{
		ID:           uuid.New(),
		RunDate:      now,
		Model:        model,
		Trigger:      TriggerManual,
		RMSE:         rmse,
		ArtifactPath: artifactPath,
		CreatedAt:    now,
	}
}

// WithTrigger sets why the run happened.
func (r *TrainingRun) WithTrigger(t Trigger) *TrainingRun {
	r.Trigger = t
	return r
}

// WithRunDate sets a custom run date.
func (r *TrainingRun) WithRunDate(t time.Time) *TrainingRun {
	r.RunDate = t
	return r
}

// WithNotes sets notes on the run.
func (r *TrainingRun) WithNotes(notes string) *TrainingRun {
	r.Notes = &notes
	return r
}
