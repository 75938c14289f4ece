// ABOUTME: Pure retrain policy: cold start, fresh data past the minimum model age, or force.
// ABOUTME: Dates compare by calendar day.
package retrain

import (
	"time"

	"github.com/harperreed/stress/internal/models"
)

// Action is what the pipeline should do.
type Action string

const (
	ActionTrain Action = "train"
	ActionSkip  Action = "skip"
)

// State is everything the policy looks at.
type State struct {
	HasArtifact bool

	// LastDataDate is the newest date in the merged dataset; HasDataDate is
	// false when the dataset is missing or empty.
	LastDataDate time.Time
	HasDataDate  bool

	// LastModelDate is the newest metrics log date, or the date in the
	// latest artifact name when the log has no rows.
	LastModelDate time.Time
	HasModelDate  bool

	Today time.Time
	Force bool
}

// Decision is the policy outcome.
type Decision struct {
	Action  Action
	Trigger models.Trigger
	Reason  string
}

// Train reports whether the decision calls for training.
func (d Decision) Train() bool {
	return d.Action == ActionTrain
}

// Decide applies the retrain policy. Freshness is checked before force.
func Decide(s State, minAgeDays int) Decision {
	if !s.HasArtifact {
		return Decision{Action: ActionTrain, Trigger: models.TriggerColdStart, Reason: "no model found, training from scratch"}
	}

	if s.HasDataDate && s.HasModelDate {
		data, model, today := dateOf(s.LastDataDate), dateOf(s.LastModelDate), dateOf(s.Today)
		if model.Before(data) && model.AddDate(0, 0, minAgeDays).Before(today) {
			return Decision{Action: ActionTrain, Trigger: models.TriggerFreshData, Reason: "newer data than the last model"}
		}
	}

	if s.Force {
		return Decision{Action: ActionTrain, Trigger: models.TriggerForced, Reason: "manual retraining triggered"}
	}
	return Decision{Action: ActionSkip, Reason: "model is up to date"}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
