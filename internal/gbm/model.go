// ABOUTME: Gradient-boosted regression ensemble: fitting, prediction, and JSON persistence.
// ABOUTME: Squared-error objective with a mean base score and optional row subsampling.
package gbm

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"
)

// ModelName labels artifacts and metrics log rows produced by this package.
const ModelName = "GradientBoostedRegressor"

// Model is a fitted ensemble. It is immutable once returned by Fit or Load.
type Model struct {
	Name         string    `json:"model"`
	FeatureNames []string  `json:"features"`
	Params       Params    `json:"params"`
	BaseScore    float64   `json:"base_score"`
	Trees        []Tree    `json:"trees"`
	TrainedAt    time.Time `json:"trained_at"`
}

// Fit grows an ensemble on X (one row per sample, columns in features order) and y.
func Fit(x [][]float64, y []float64, features []string, p Params, seed uint64) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("fit: no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("fit: %d rows but %d targets", len(x), len(y))
	}
	for i, row := range x {
		if len(row) != len(features) {
			return nil, fmt.Errorf("fit: row %d has %d values, want %d", i, len(row), len(features))
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("fit: missing value in row %d column %q", i, features[j])
			}
		}
		if math.IsNaN(y[i]) {
			return nil, fmt.Errorf("fit: missing target in row %d", i)
		}
	}

	m := &Model{
		Name:         ModelName,
		FeatureNames: append([]string(nil), features...),
		Params:       p,
		BaseScore:    mean(y),
		TrainedAt:    time.Now().UTC(),
	}

	n := len(x)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.BaseScore
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	rng := rand.New(rand.NewPCG(seed, seed))

	for range p.NEstimators {
		for i := range grad {
			grad[i] = pred[i] - y[i]
			hess[i] = 1
		}
		rows := sampleRows(n, p.Subsample, rng)
		tree := buildTree(x, grad, hess, rows, p)
		for i := range pred {
			pred[i] += tree.Predict(x[i])
		}
		m.Trees = append(m.Trees, tree)
	}

	return m, nil
}

// Features returns the column order the model expects.
func (m *Model) Features() []string {
	return m.FeatureNames
}

// Predict scores a single row given in Features() order.
func (m *Model) Predict(x []float64) float64 {
	out := m.BaseScore
	for i := range m.Trees {
		out += m.Trees[i].Predict(x)
	}
	return out
}

// PredictAll scores every row of x.
func (m *Model) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.Predict(row)
	}
	return out
}

// Save writes the model as JSON. The file is written next to path and renamed
// into place so readers never observe a partial artifact.
func Save(path string, m *Model) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename model: %w", err)
	}
	return nil
}

// Load reads a model previously written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", filepath.Base(path), err)
	}
	if len(m.FeatureNames) == 0 {
		return nil, fmt.Errorf("decode model %s: no features recorded", filepath.Base(path))
	}
	for ti, t := range m.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("decode model %s: tree %d is empty", filepath.Base(path), ti)
		}
		for _, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= len(m.FeatureNames) ||
				n.Left <= 0 || n.Left >= len(t.Nodes) || n.Right <= 0 || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("decode model %s: tree %d is malformed", filepath.Base(path), ti)
			}
		}
	}
	return &m, nil
}

func sampleRows(n int, ratio float64, rng *rand.Rand) []int {
	rows := make([]int, 0, n)
	if ratio >= 1 {
		for i := range n {
			rows = append(rows, i)
		}
		return rows
	}
	for i := range n {
		if rng.Float64() < ratio {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.IntN(n))
	}
	return rows
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
