// ABOUTME: Adds shifted copies of selected features as prior-day predictors.
// ABOUTME: Rows without a complete lag history or with any missing cell are dropped.
package features

import (
	"fmt"
	"math"
	"strconv"
)

// LagName returns the column name of feature shifted by n rows.
func LagName(feature string, n int) string {
	return feature + "_lag" + strconv.Itoa(n)
}

// AddLags returns a copy of f sorted by date with feature_lag1..maxLag columns
// appended for each feature. Lags shift by row, not by calendar day.
func AddLags(f *Frame, features []string, maxLag int) (*Frame, error) {
	if maxLag < 1 {
		return nil, fmt.Errorf("max lag must be positive, got %d", maxLag)
	}
	src := make([]int, len(features))
	for i, name := range features {
		src[i] = f.ColumnIndex(name)
		if src[i] < 0 {
			return nil, fmt.Errorf("lag feature %q not in dataset", name)
		}
	}

	out := &Frame{
		Columns: append([]string(nil), f.Columns...),
		Dates:   append(f.Dates[:0:0], f.Dates...),
		Rows:    make([][]float64, len(f.Rows)),
	}
	for i, row := range f.Rows {
		out.Rows[i] = append([]float64(nil), row...)
	}
	out.SortByDate()

	for fi, name := range features {
		for n := 1; n <= maxLag; n++ {
			out.Columns = append(out.Columns, LagName(name, n))
			for i := range out.Rows {
				v := math.NaN()
				if i-n >= 0 {
					v = out.Rows[i-n][src[fi]]
				}
				out.Rows[i] = append(out.Rows[i], v)
			}
		}
	}

	out.DropMissing()
	return out, nil
}
