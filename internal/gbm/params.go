// ABOUTME: Hyperparameters for the gradient-boosted regression tree ensemble.
// ABOUTME: Defaults mirror the squared-error booster defaults the model was tuned against.
package gbm

import "fmt"

// DefaultLambda is the L2 leaf penalty used when Params.Lambda is unset.
const DefaultLambda = 1.0

// Params controls how an ensemble is grown.
type Params struct {
	NEstimators    int     `json:"n_estimators" yaml:"n_estimators"`
	MaxDepth       int     `json:"max_depth" yaml:"max_depth"`
	LearningRate   float64 `json:"learning_rate" yaml:"learning_rate"`
	MinChildWeight float64 `json:"min_child_weight" yaml:"min_child_weight"`
	Gamma          float64 `json:"gamma" yaml:"gamma"`
	Subsample      float64 `json:"subsample" yaml:"subsample"`

	// Lambda is the L2 penalty on leaf weights. Nil means DefaultLambda;
	// an explicit 0 grows unregularized leaves.
	Lambda *float64 `json:"lambda,omitempty" yaml:"lambda,omitempty"`
}

// DefaultParams returns the untuned booster configuration.
func DefaultParams() Params {
	return Params{
		NEstimators:    100,
		MaxDepth:       6,
		LearningRate:   0.3,
		MinChildWeight: 1,
		Gamma:          0,
		Subsample:      1,
		Lambda:         Float(DefaultLambda),
	}
}

// Float returns a pointer to v, for setting Lambda in literals.
func Float(v float64) *float64 {
	return &v
}

// L2 returns the effective leaf penalty.
func (p Params) L2() float64 {
	if p.Lambda == nil {
		return DefaultLambda
	}
	return *p.Lambda
}

// WithDefaults fills zero-valued fields from DefaultParams. Lambda is only
// filled when nil, so an explicit 0 survives.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.NEstimators == 0 {
		p.NEstimators = d.NEstimators
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.LearningRate == 0 {
		p.LearningRate = d.LearningRate
	}
	if p.MinChildWeight == 0 {
		p.MinChildWeight = d.MinChildWeight
	}
	if p.Lambda == nil {
		p.Lambda = d.Lambda
	}
	if p.Subsample == 0 {
		p.Subsample = d.Subsample
	}
	return p
}

// Validate reports parameters the booster cannot work with.
func (p Params) Validate() error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("n_estimators must be positive, got %d", p.NEstimators)
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	case p.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %g", p.LearningRate)
	case p.L2() < 0:
		return fmt.Errorf("lambda must not be negative, got %g", p.L2())
	case p.Gamma < 0:
		return fmt.Errorf("gamma must not be negative, got %g", p.Gamma)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %g", p.Subsample)
	}
	return nil
}
