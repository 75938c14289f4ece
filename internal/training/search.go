// ABOUTME: Randomized hyperparameter search scored by time-series cross-validation.
// ABOUTME: The best candidate by mean negative RMSE is refit on the full training set.
package training

import (
	"fmt"
	"math/rand/v2"

	"github.com/harperreed/stress/internal/gbm"
)

// Search evaluates up to Iterations candidates drawn from Candidates.
type Search struct {
	Candidates []gbm.Params
	Iterations int
	Folds      int
	Seed       uint64
}

// SearchResult is the refit winner of a search.
type SearchResult struct {
	Model  *gbm.Model
	Params gbm.Params
	// Score is the mean negative RMSE across folds, higher is better.
	Score float64
}

// Fit scores the sampled candidates on rolling-origin folds of d and refits
// the best one on all of d. With no candidates the default parameters are used.
func (s Search) Fit(d *Dataset) (*SearchResult, error) {
	candidates := s.sample()

	folds, err := TimeSeriesSplit(d.Len(), s.Folds)
	if err != nil {
		return nil, err
	}

	best := -1
	var bestScore float64
	for ci, p := range candidates {
		p = p.WithDefaults()
		var total float64
		for fi, fold := range folds {
			train, test := d.Subset(fold.Train), d.Subset(fold.Test)
			m, err := gbm.Fit(train.X, train.Y, d.Features, p, s.Seed)
			if err != nil {
				return nil, fmt.Errorf("candidate %d fold %d: %w", ci, fi, err)
			}
			rmse, err := RMSE(test.Y, m.PredictAll(test.X))
			if err != nil {
				return nil, fmt.Errorf("candidate %d fold %d: %w", ci, fi, err)
			}
			total -= rmse
		}
		score := total / float64(len(folds))
		if best < 0 || score > bestScore {
			best, bestScore = ci, score
		}
	}

	params := candidates[best].WithDefaults()
	model, err := gbm.Fit(d.X, d.Y, d.Features, params, s.Seed)
	if err != nil {
		return nil, fmt.Errorf("refit best candidate: %w", err)
	}
	return &SearchResult{Model: model, Params: params, Score: bestScore}, nil
}

// sample draws min(Iterations, len(Candidates)) distinct candidates with a
// seeded shuffle so searches are reproducible.
func (s Search) sample() []gbm.Params {
	if len(s.Candidates) == 0 {
		return []gbm.Params{gbm.DefaultParams()}
	}
	n := s.Iterations
	if n < 1 || n > len(s.Candidates) {
		n = len(s.Candidates)
	}
	pool := append([]gbm.Params(nil), s.Candidates...)
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}
