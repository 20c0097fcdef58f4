package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/voiceid/internal/errors"
)

// ClassifierMetrics covers bundle loading and per-slot inference.
type ClassifierMetrics struct {
	PredictionDuration *prometheus.HistogramVec
	PredictionTotal    *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec
	ModelLoadTotal     *prometheus.CounterVec
	ModelLoadedGauge   *prometheus.GaugeVec
	BundleReadyGauge   prometheus.Gauge
}

// NewClassifierMetrics creates and registers the classifier metrics.
func NewClassifierMetrics(registry *prometheus.Registry) (*ClassifierMetrics, error) {
	m := &ClassifierMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register classifier metrics: %w", err)
	}
	return m, nil
}

func (m *ClassifierMetrics) initMetrics() {
	m.PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_prediction_duration_seconds",
			Help:      "Time taken by a classifier to predict a class id",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~200ms
		},
		[]string{"slot"},
	)
	m.PredictionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_predictions_total",
			Help:      "Total number of classifier predictions",
		},
		[]string{"slot", "status"},
	)
	m.PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_prediction_errors_total",
			Help:      "Total number of classifier or label decoder failures",
		},
		[]string{"slot", "error_type"},
	)
	m.ModelLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_load_total",
			Help:      "Total number of bundle slot load attempts",
		},
		[]string{"slot", "status"},
	)
	m.ModelLoadedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "Whether a bundle slot is loaded (1) or missing (0)",
		},
		[]string{"slot"},
	)
	m.BundleReadyGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_ready",
			Help:      "Whether all four bundle slots are loaded (1) or not (0)",
		},
	)
}

// RecordModelLoad records the outcome of loading one bundle slot.
func (m *ClassifierMetrics) RecordModelLoad(slot string, loaded bool) {
	if m == nil {
		return
	}
	if loaded {
		m.ModelLoadTotal.WithLabelValues(slot, StatusSuccess).Inc()
		m.ModelLoadedGauge.WithLabelValues(slot).Set(1)
		return
	}
	m.ModelLoadTotal.WithLabelValues(slot, StatusError).Inc()
	m.ModelLoadedGauge.WithLabelValues(slot).Set(0)
}

// SetBundleReady records the fully loaded flag.
func (m *ClassifierMetrics) SetBundleReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.BundleReadyGauge.Set(1)
	} else {
		m.BundleReadyGauge.Set(0)
	}
}

// RecordPrediction records one classifier run.
func (m *ClassifierMetrics) RecordPrediction(slot string, durationSeconds float64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PredictionTotal.WithLabelValues(slot, StatusError).Inc()
		m.PredictionErrors.WithLabelValues(slot, categorizeError(err)).Inc()
		return
	}
	m.PredictionTotal.WithLabelValues(slot, StatusSuccess).Inc()
	m.PredictionDuration.WithLabelValues(slot).Observe(durationSeconds)
}

// categorizeError maps an error to a low-cardinality label value.
func categorizeError(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return string(ee.Category)
	}
	return string(errors.CategoryGeneric)
}

// Describe implements the prometheus.Collector interface.
func (m *ClassifierMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.PredictionDuration.Describe(ch)
	m.PredictionTotal.Describe(ch)
	m.PredictionErrors.Describe(ch)
	m.ModelLoadTotal.Describe(ch)
	m.ModelLoadedGauge.Describe(ch)
	ch <- m.BundleReadyGauge.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *ClassifierMetrics) Collect(ch chan<- prometheus.Metric) {
	m.PredictionDuration.Collect(ch)
	m.PredictionTotal.Collect(ch)
	m.PredictionErrors.Collect(ch)
	m.ModelLoadTotal.Collect(ch)
	m.ModelLoadedGauge.Collect(ch)
	ch <- m.BundleReadyGauge
}
