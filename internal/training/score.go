// ABOUTME: Regression scoring helpers.
// ABOUTME: RMSE and the two-decimal rounding used in the metrics log.
package training

import (
	"fmt"
	"math"
)

// RMSE returns the root mean squared error of pred against actual.
func RMSE(actual, pred []float64) (float64, error) {
	if len(actual) != len(pred) {
		return 0, fmt.Errorf("rmse: %d actual values but %d predictions", len(actual), len(pred))
	}
	if len(actual) == 0 {
		return 0, fmt.Errorf("rmse: no values")
	}
	var sum float64
	for i := range actual {
		d := actual[i] - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
