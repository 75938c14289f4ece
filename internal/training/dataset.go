// ABOUTME: Feature/target matrices derived from the merged dataset and the time-based holdout.
// ABOUTME: The last window of days is the test partition; nothing is shuffled.
package training

import (
	"fmt"
	"time"

	"github.com/harperreed/stress/internal/features"
)

// Dataset is a design matrix with its target, rows in date order.
type Dataset struct {
	Features []string
	Dates    []time.Time
	X        [][]float64
	Y        []float64
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// FromFrame separates target from features. Every column other than the
// target becomes a feature; the date index never does.
func FromFrame(f *features.Frame, target string) (*Dataset, error) {
	ti := f.ColumnIndex(target)
	if ti < 0 {
		return nil, fmt.Errorf("target column %q not in dataset", target)
	}

	sorted := *f
	sorted.SortByDate()

	d := &Dataset{}
	for j, c := range sorted.Columns {
		if j != ti {
			d.Features = append(d.Features, c)
		}
	}
	if len(d.Features) == 0 {
		return nil, fmt.Errorf("dataset has no feature columns")
	}

	for i, row := range sorted.Rows {
		x := make([]float64, 0, len(d.Features))
		for j, v := range row {
			if j != ti {
				x = append(x, v)
			}
		}
		d.Dates = append(d.Dates, sorted.Dates[i])
		d.X = append(d.X, x)
		d.Y = append(d.Y, row[ti])
	}
	return d, nil
}

// Subset returns the rows at idx, sharing row storage with d.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{Features: d.Features}
	for _, i := range idx {
		out.Dates = append(out.Dates, d.Dates[i])
		out.X = append(out.X, d.X[i])
		out.Y = append(out.Y, d.Y[i])
	}
	return out
}

// TemporalSplit holds out rows dated on or after max(date) - windowDays.
// Both partitions must be non-empty.
func TemporalSplit(d *Dataset, windowDays int) (train, test *Dataset, cutoff time.Time, err error) {
	if d.Len() == 0 {
		return nil, nil, time.Time{}, fmt.Errorf("split: dataset is empty")
	}
	latest := d.Dates[0]
	for _, day := range d.Dates {
		if day.After(latest) {
			latest = day
		}
	}
	cutoff = latest.AddDate(0, 0, -windowDays)

	var trainIdx, testIdx []int
	for i, day := range d.Dates {
		if day.Before(cutoff) {
			trainIdx = append(trainIdx, i)
		} else {
			testIdx = append(testIdx, i)
		}
	}
	if len(trainIdx) == 0 {
		return nil, nil, cutoff, fmt.Errorf("split: no rows before cutoff %s", cutoff.Format("2006-01-02"))
	}
	return d.Subset(trainIdx), d.Subset(testIdx), cutoff, nil
}
