package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// FeatureMetrics covers audio decoding and MFCC feature extraction.
type FeatureMetrics struct {
	ExtractionDuration *prometheus.HistogramVec
	ExtractionTotal    *prometheus.CounterVec
	AudioDuration      prometheus.Histogram
	NormalizedTotal    *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
}

// NewFeatureMetrics creates and registers the feature extraction metrics.
func NewFeatureMetrics(registry *prometheus.Registry) (*FeatureMetrics, error) {
	m := &FeatureMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register feature metrics: %w", err)
	}
	return m, nil
}

func (m *FeatureMetrics) initMetrics() {
	m.ExtractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feature_extraction_duration_seconds",
			Help:      "Time taken to decode audio and extract the feature vector",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"format"},
	)
	m.ExtractionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_extractions_total",
			Help:      "Total number of feature extractions",
		},
		[]string{"format", "status"},
	)
	m.AudioDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decoded_audio_duration_seconds",
			Help:      "Duration of decoded audio clips",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)
	m.NormalizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_normalized_total",
			Help:      "Feature vectors whose length was padded or truncated",
		},
		[]string{"direction"},
	)
	m.CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_cache_lookups_total",
			Help:      "Feature cache lookups partitioned by result",
		},
		[]string{"result"},
	)
}

// RecordExtraction records one extraction attempt.
func (m *FeatureMetrics) RecordExtraction(format string, durationSeconds float64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ExtractionTotal.WithLabelValues(format, StatusError).Inc()
		return
	}
	m.ExtractionTotal.WithLabelValues(format, StatusSuccess).Inc()
	m.ExtractionDuration.WithLabelValues(format).Observe(durationSeconds)
}

// RecordAudioDuration records the length of a decoded clip.
func (m *FeatureMetrics) RecordAudioDuration(seconds float64) {
	if m == nil {
		return
	}
	m.AudioDuration.Observe(seconds)
}

// RecordNormalization counts a pad or truncate of the feature vector.
func (m *FeatureMetrics) RecordNormalization(direction string) {
	if m == nil {
		return
	}
	m.NormalizedTotal.WithLabelValues(direction).Inc()
}

// RecordCacheLookup counts a feature cache hit or miss.
func (m *FeatureMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// Describe implements the prometheus.Collector interface.
func (m *FeatureMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ExtractionDuration.Describe(ch)
	m.ExtractionTotal.Describe(ch)
	ch <- m.AudioDuration.Desc()
	m.NormalizedTotal.Describe(ch)
	m.CacheLookups.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *FeatureMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ExtractionDuration.Collect(ch)
	m.ExtractionTotal.Collect(ch)
	ch <- m.AudioDuration
	m.NormalizedTotal.Collect(ch)
	m.CacheLookups.Collect(ch)
}
