// ABOUTME: Builds the merged daily dataset from heart and stress exports.
// ABOUTME: Outer-joins on date, collapses duplicates, adds lags, and writes the CSV atomically.
package features

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/harperreed/stress/internal/config"
	"github.com/harperreed/stress/internal/logging"
	"github.com/harperreed/stress/internal/metrics"
	"github.com/harperreed/stress/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Merger regenerates the persisted MergedDataset.
type Merger struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewMerger creates a merger. logger and m may be nil.
func NewMerger(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Merger {
	return &Merger{cfg: cfg, logger: logging.OrNop(logger), metrics: m}
}

// Path returns where Run writes the dataset.
func (m *Merger) Path() string {
	return m.cfg.DatasetPath()
}

// Run loads every source, merges, lags, and persists the dataset.
// Failures are returned as *TransformError (wrapping *LoadError for source failures).
func (m *Merger) Run(ctx context.Context) (*Frame, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "features.merge")
	defer span.End()
	start := time.Now()

	heart, err := LoadSource(m.cfg.ResolvedSource(m.cfg.Sources.Heart))
	if err != nil {
		return nil, &TransformError{Stage: "load heart", Err: err}
	}
	stress, err := LoadSource(m.cfg.ResolvedSource(m.cfg.Sources.Stress))
	if err != nil {
		return nil, &TransformError{Stage: "load stress", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &TransformError{Stage: "merge", Err: err}
	}

	merged, err := OuterJoin(heart, stress)
	if err != nil {
		return nil, &TransformError{Stage: "merge", Err: err}
	}
	if merged.HasDuplicateDates() {
		merged.CollapseByDate()
	}

	lagged, err := AddLags(merged, m.cfg.Features.LagFeatures, m.cfg.Features.MaxLag)
	if err != nil {
		return nil, &TransformError{Stage: "lag", Err: err}
	}

	path := m.Path()
	if err := WriteFileAtomic(path, lagged); err != nil {
		return nil, &TransformError{Stage: "persist", Err: err}
	}

	span.SetAttributes(attribute.Int("dataset.rows", lagged.Len()))
	m.metrics.ObserveStage("merge", time.Since(start))
	m.metrics.SetDatasetRows(lagged.Len())
	m.logger.Info("dataset written",
		zap.String("path", path),
		zap.Int("rows", lagged.Len()),
		zap.Int("columns", len(lagged.Columns)))
	return lagged, nil
}

// OuterJoin combines frames on date. Columns keep argument order; a date
// missing from one frame gets NaN cells for that frame's columns.
func OuterJoin(frames ...*Frame) (*Frame, error) {
	out := &Frame{}
	seen := make(map[string]bool)
	for _, f := range frames {
		for _, c := range f.Columns {
			if seen[c] {
				return nil, fmt.Errorf("duplicate column %q across sources", c)
			}
			seen[c] = true
			out.Columns = append(out.Columns, c)
		}
	}

	type slot struct {
		values []float64
		filled []bool
	}
	byDate := make(map[time.Time][]*slot)
	var order []time.Time
	offset := 0
	for fi, f := range frames {
		for i, d := range f.Dates {
			slots, ok := byDate[d]
			if !ok {
				order = append(order, d)
			}
			var target *slot
			for _, s := range slots {
				if !s.filled[fi] {
					target = s
					break
				}
			}
			if target == nil {
				target = &slot{values: nanRow(len(out.Columns)), filled: make([]bool, len(frames))}
				byDate[d] = append(slots, target)
			}
			copy(target.values[offset:], f.Rows[i])
			target.filled[fi] = true
		}
		offset += len(f.Columns)
	}

	sort.Slice(order, func(a, b int) bool { return order[a].Before(order[b]) })
	for _, d := range order {
		for _, s := range byDate[d] {
			out.Dates = append(out.Dates, d)
			out.Rows = append(out.Rows, s.values)
		}
	}
	return out, nil
}

// WriteFileAtomic writes f as CSV to a temp file beside path and renames it
// into place, creating parent directories.
func WriteFileAtomic(path string, f *Frame) error {
	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dataset-*.csv")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset: %w", err)
	}
	if err := os.Chmod(tmpName, 0640); err != nil {
		return fmt.Errorf("chmod dataset: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename dataset: %w", err)
	}
	return nil
}

// ReadFile reads a dataset written by WriteFileAtomic.
func ReadFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	f, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return f, nil
}

func nanRow(n int) []float64 {
	r := make([]float64, n)
	for i := range r {
		r[i] = math.NaN()
	}
	return r
}
