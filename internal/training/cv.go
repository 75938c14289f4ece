// ABOUTME: Rolling-origin cross-validation folds for time-ordered rows.
// ABOUTME: Each fold trains on a prefix and tests on the block that follows it.
package training

import "fmt"

// Fold holds row indices for one cross-validation split.
type Fold struct {
	Train []int
	Test  []int
}

// TimeSeriesSplit returns splits folds over n rows. Every test block has
// n/(splits+1) rows; the last block ends at the final row, and each train
// set is everything before its test block.
func TimeSeriesSplit(n, splits int) ([]Fold, error) {
	if splits < 2 {
		return nil, fmt.Errorf("time series split: need at least 2 splits, got %d", splits)
	}
	if splits+1 > n {
		return nil, fmt.Errorf("time series split: %d splits need more than %d rows", splits, n)
	}

	testSize := n / (splits + 1)
	folds := make([]Fold, 0, splits)
	for start := n - splits*testSize; start < n; start += testSize {
		folds = append(folds, Fold{
			Train: indexRange(0, start),
			Test:  indexRange(start, start+testSize),
		})
	}
	return folds, nil
}

func indexRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}
