// ABOUTME: Tests for raw-source loading, lag generation, and dataset merging.
// ABOUTME: Raw exports are written to temp dirs in the Samsung Health layout.
package features

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/stress/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// writeHeart writes a heart export with two readings per day for days [0, days).
func writeHeart(t *testing.T, path string, days int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("com.samsung.health.heart_rate,6313001,4\n")
	b.WriteString("com.samsung.health.heart_rate.start_time,com.samsung.health.heart_rate.max,com.samsung.health.heart_rate.min,com.samsung.health.heart_rate.heart_rate,comment\n")
	for i := 0; i < days; i++ {
		d := day(i).Format("2006-01-02")
		fmt.Fprintf(&b, "%s 08:00:00.000,%d,%d,%d,\n", d, 100+i, 50+i, 70+i)
		fmt.Fprintf(&b, "%s 20:30:00.000,%d,%d,%d,\n", d, 90+i, 55+i, 74+i)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0600))
}

// writeStress writes a stress export with one reading per day for days [0, days).
func writeStress(t *testing.T, path string, days int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("com.samsung.shealth.stress,6302002,5\n")
	b.WriteString("start_time,max,min,score,create_time\n")
	for i := 0; i < days; i++ {
		fmt.Fprintf(&b, "%s 12:00:00.000,%d,%d,%d,x\n", day(i).Format("2006-01-02"), 80+i, 10+i, 40+i)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0600))
}

func testConfig(t *testing.T, days int) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	writeHeart(t, cfg.Resolve(cfg.Sources.Heart.FilePath), days)
	writeStress(t, cfg.Resolve(cfg.Sources.Stress.FilePath), days)
	return cfg
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 5.0, median([]float64{math.NaN(), 5}))
	assert.True(t, math.IsNaN(median([]float64{math.NaN()})))
}

func TestLoadGenericMedianAndPrefix(t *testing.T) {
	raw := "meta,1,2\n" +
		"start_time,score,max\n" +
		"2025-01-02 09:00:00.000,10,1\n" +
		"2025-01-01 09:00:00.000,30,2\n" +
		"2025-01-01 18:00:00.000,10,4\n" +
		"2025-01-01 21:00:00.000,NaN,9\n" +
		",99,99\n"
	src := config.Source{Name: "stress", DateColumn: "start_time", Columns: []string{"score", "max"}, Prefix: "stress_"}

	f, err := Load(strings.NewReader(raw), src)
	require.NoError(t, err)

	assert.Equal(t, []string{"stress_score", "stress_max"}, f.Columns)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, day(0), f.Dates[0])
	assert.Equal(t, []float64{20, 4}, f.Rows[0])
	assert.Equal(t, []float64{10, 1}, f.Rows[1])
}

func TestLoadHeartAggregation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heart.csv")
	writeHeart(t, path, 2)
	cfg := config.Default()
	src := cfg.Sources.Heart
	src.FilePath = path

	f, err := LoadSource(src)
	require.NoError(t, err)

	assert.Equal(t, []string{"heart_max_rate", "heart_min_rate", "heart_rate"}, f.Columns)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, []float64{100, 50, 72}, f.Rows[0])
	assert.Equal(t, []float64{101, 51, 73}, f.Rows[1])
}

func TestLoadFillsForwardThenBackward(t *testing.T) {
	raw := "meta\n" +
		"start_time,score\n" +
		"2025-01-01,\n" +
		"2025-01-02,5\n" +
		"2025-01-03, \n" +
		"2025-01-04,7\n"
	src := config.Source{DateColumn: "start_time", Columns: []string{"score"}, Prefix: "s_"}

	f, err := Load(strings.NewReader(raw), src)
	require.NoError(t, err)

	got, err := f.Column("s_score")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5, 7}, got)
}

func TestLoadDecodesLatin1(t *testing.T) {
	raw := []byte("r\xe9sum\xe9\nstart_time,niveau_\xe9lev\xe9\n2025-01-01,3\n")
	src := config.Source{DateColumn: "start_time", Columns: []string{"niveau_élevé"}}

	f, err := Load(bytes.NewReader(raw), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"niveau_élevé"}, f.Columns)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"missing date column", "meta\nwhen,score\n2025-01-01,1\n"},
		{"missing metric column", "meta\nstart_time,other\n2025-01-01,1\n"},
		{"bad number", "meta\nstart_time,score\n2025-01-01,abc\n"},
		{"bad timestamp", "meta\nstart_time,score\nyesterday,1\n"},
	}
	src := config.Source{DateColumn: "start_time", Columns: []string{"score"}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.raw), src)
			assert.Error(t, err)
		})
	}
}

func TestLoadSourceWrapsErrors(t *testing.T) {
	src := config.Source{Name: "stress", FilePath: filepath.Join(t.TempDir(), "missing.csv")}

	_, err := LoadSource(src)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "stress", loadErr.Source)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestAddLags(t *testing.T) {
	f := &Frame{Columns: []string{"a"}}
	for i := 4; i >= 0; i-- {
		f.Dates = append(f.Dates, day(i))
		f.Rows = append(f.Rows, []float64{float64(i * 10)})
	}

	out, err := AddLags(f, []string{"a"}, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a_lag1", "a_lag2", "a_lag3"}, out.Columns)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, day(3), out.Dates[0])
	assert.Equal(t, []float64{30, 20, 10, 0}, out.Rows[0])
	assert.Equal(t, []float64{40, 30, 20, 10}, out.Rows[1])
	assert.Equal(t, 5, f.Len(), "input frame must not change")
}

func TestAddLagsErrors(t *testing.T) {
	f := &Frame{Columns: []string{"a"}}
	_, err := AddLags(f, []string{"b"}, 3)
	assert.Error(t, err)
	_, err = AddLags(f, []string{"a"}, 0)
	assert.Error(t, err)
}

func TestOuterJoin(t *testing.T) {
	left := &Frame{Columns: []string{"l"}, Dates: []time.Time{day(0), day(1)}, Rows: [][]float64{{1}, {2}}}
	right := &Frame{Columns: []string{"r"}, Dates: []time.Time{day(1), day(2)}, Rows: [][]float64{{20}, {30}}}

	out, err := OuterJoin(left, right)
	require.NoError(t, err)

	assert.Equal(t, []string{"l", "r"}, out.Columns)
	require.Equal(t, 3, out.Len())
	assert.True(t, math.IsNaN(out.Rows[0][1]))
	assert.Equal(t, []float64{2, 20}, out.Rows[1])
	assert.True(t, math.IsNaN(out.Rows[2][0]))

	_, err = OuterJoin(left, left)
	assert.Error(t, err)
}

func TestMergerTenDays(t *testing.T) {
	cfg := testConfig(t, 10)

	out, err := NewMerger(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, out.Len())
	assert.False(t, out.HasMissing())
	assert.False(t, out.HasDuplicateDates())
	assert.Equal(t, day(3), out.Dates[0])

	cur := out.ColumnIndex("heart_min_rate")
	lag1 := out.ColumnIndex("heart_min_rate_lag1")
	require.GreaterOrEqual(t, cur, 0)
	require.GreaterOrEqual(t, lag1, 0)
	for i := 1; i < out.Len(); i++ {
		assert.Equal(t, out.Rows[i-1][cur], out.Rows[i][lag1])
	}
	assert.Less(t, out.ColumnIndex("heart_rate"), out.ColumnIndex("stress_score"), "heart columns come first")

	written, err := ReadFile(cfg.DatasetPath())
	require.NoError(t, err)
	assert.Equal(t, out.Columns, written.Columns)
	assert.Equal(t, out.Rows, written.Rows)
}

func TestMergerIsIdempotent(t *testing.T) {
	cfg := testConfig(t, 12)
	merger := NewMerger(cfg, nil, nil)

	_, err := merger.Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(cfg.DatasetPath())
	require.NoError(t, err)

	_, err = merger.Run(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.DatasetPath())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(string(first), "date,heart_max_rate,heart_min_rate,heart_rate,stress_max,stress_min,stress_score,heart_min_rate_lag1"))
}

func TestMergerMissingSource(t *testing.T) {
	cfg := testConfig(t, 5)
	require.NoError(t, os.Remove(cfg.Resolve(cfg.Sources.Stress.FilePath)))

	_, err := NewMerger(cfg, nil, nil).Run(context.Background())
	var transformErr *TransformError
	require.ErrorAs(t, err, &transformErr)
	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)

	_, statErr := os.Stat(cfg.DatasetPath())
	assert.True(t, os.IsNotExist(statErr), "no partial dataset on failure")
}

func TestFrameCSVRoundTrip(t *testing.T) {
	f := &Frame{
		Columns: []string{"x", "y"},
		Dates:   []time.Time{day(0), day(1)},
		Rows:    [][]float64{{1.5, math.NaN()}, {-2, 3}},
	}
	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Equal(t, "date,x,y\n2025-01-01,1.5,\n2025-01-02,-2,3\n", buf.String())

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Dates, back.Dates)
	assert.True(t, math.IsNaN(back.Rows[0][1]))
}
