// ABOUTME: Prometheus collectors for dataset builds, training runs, and predictions.
// ABOUTME: A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the stress pipeline
type Metrics struct {
	// Pipeline metrics
	StageDuration  *prometheus.HistogramVec
	DatasetRows    prometheus.Gauge
	TrainingRuns   *prometheus.CounterVec
	ModelRMSE      prometheus.Gauge
	RetrainActions *prometheus.CounterVec

	// Prediction metrics
	Predictions       *prometheus.CounterVec
	PredictionLatency prometheus.Histogram
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stress_pipeline_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to 20s
			},
			[]string{"stage"},
		),
		DatasetRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stress_dataset_rows",
				Help: "Rows in the most recently written merged dataset",
			},
		),
		TrainingRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stress_training_runs_total",
				Help: "Total number of training runs",
			},
			[]string{"result"},
		),
		ModelRMSE: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "stress_model_rmse",
				Help: "Held-out RMSE of the most recently trained model",
			},
		),
		RetrainActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stress_retrain_decisions_total",
				Help: "Retrain decisions by action",
			},
			[]string{"action"},
		),
		Predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stress_predictions_total",
				Help: "Total number of prediction requests",
			},
			[]string{"status"},
		),
		PredictionLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stress_prediction_duration_seconds",
				Help:    "Prediction latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
		),
	}
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetDatasetRows records the merged dataset size.
func (m *Metrics) SetDatasetRows(n int) {
	if m == nil {
		return
	}
	m.DatasetRows.Set(float64(n))
}

// TrainingFinished counts a training run and, on success, its RMSE.
func (m *Metrics) TrainingFinished(err error, rmse float64) {
	if m == nil {
		return
	}
	if err != nil {
		m.TrainingRuns.WithLabelValues("error").Inc()
		return
	}
	m.TrainingRuns.WithLabelValues("success").Inc()
	m.ModelRMSE.Set(rmse)
}

// RetrainDecided counts a retrain decision.
func (m *Metrics) RetrainDecided(action string) {
	if m == nil {
		return
	}
	m.RetrainActions.WithLabelValues(action).Inc()
}

// PredictionServed counts a prediction by outcome and records its latency.
func (m *Metrics) PredictionServed(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(status).Inc()
	m.PredictionLatency.Observe(d.Seconds())
}
