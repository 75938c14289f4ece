// ABOUTME: Single-row inference against the newest model artifact.
// ABOUTME: Missing inputs are rejected before any artifact is opened.
package predict

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/harperreed/stress/internal/artifacts"
	"github.com/harperreed/stress/internal/gbm"
	"github.com/harperreed/stress/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Row maps feature names to values. NaN marks a missing value.
type Row map[string]float64

// Model is a loaded regressor.
type Model interface {
	Features() []string
	Predict(x []float64) float64
}

// Loader opens a model artifact.
type Loader interface {
	Load(path string) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) (Model, error)

// Load calls f.
func (f LoaderFunc) Load(path string) (Model, error) {
	return f(path)
}

// ArtifactLoader reads JSON artifacts written by the trainer.
var ArtifactLoader = LoaderFunc(func(path string) (Model, error) {
	return gbm.Load(path)
})

// ValidationError reports unusable input.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

// NotFoundError reports that no model artifact exists.
type NotFoundError struct {
	Dir string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no model found in %s", e.Dir)
}

// PredictError wraps every prediction failure.
type PredictError struct {
	Err error
}

func (e *PredictError) Error() string {
	return fmt.Sprintf("predict: %v", e.Err)
}

func (e *PredictError) Unwrap() error {
	return e.Err
}

// Predictor serves predictions from the newest artifact in a directory.
type Predictor struct {
	dir    string
	loader Loader
}

// New creates a predictor over dir. A nil loader uses ArtifactLoader.
func New(dir string, loader Loader) *Predictor {
	if loader == nil {
		loader = ArtifactLoader
	}
	return &Predictor{dir: dir, loader: loader}
}

// Predict returns the model's output for row.
func (p *Predictor) Predict(ctx context.Context, row Row) (float64, error) {
	_, span := telemetry.Tracer().Start(ctx, "predict")
	defer span.End()

	if err := Validate(row); err != nil {
		return 0, &PredictError{Err: err}
	}

	path, ok, err := artifacts.Latest(p.dir)
	if err != nil {
		return 0, &PredictError{Err: err}
	}
	if !ok {
		return 0, &PredictError{Err: &NotFoundError{Dir: p.dir}}
	}
	span.SetAttributes(attribute.String("artifact", path))

	model, err := p.loader.Load(path)
	if err != nil {
		return 0, &PredictError{Err: fmt.Errorf("load model %s: %w", path, err)}
	}

	x, err := Vector(row, model.Features())
	if err != nil {
		return 0, &PredictError{Err: err}
	}
	return model.Predict(x), nil
}

// Validate rejects empty rows and rows with missing values.
func Validate(row Row) error {
	if len(row) == 0 {
		return &ValidationError{Reason: "no data was provided"}
	}
	var missing []string
	for name, v := range row {
		if math.IsNaN(v) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Fields: missing, Reason: "missing values"}
	}
	return nil
}

// Vector orders row by features. The row must carry exactly the model's
// features: absent ones and keys the model never saw are both rejected.
func Vector(row Row, features []string) ([]float64, error) {
	x := make([]float64, len(features))
	known := make(map[string]struct{}, len(features))
	var absent []string
	for i, name := range features {
		known[name] = struct{}{}
		v, ok := row[name]
		if !ok {
			absent = append(absent, name)
			continue
		}
		x[i] = v
	}
	if len(absent) > 0 {
		return nil, &ValidationError{Fields: absent, Reason: "missing features"}
	}
	var unknown []string
	for name := range row {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Fields: unknown, Reason: "unknown features"}
	}
	return x, nil
}
