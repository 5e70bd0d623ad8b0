// Package metrics provides audio loading and clip encoding metrics
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// AudioMetrics contains Prometheus metrics for audio loading and playback clip
// encoding. It implements Recorder.
type AudioMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	clipEncodesTotal  *prometheus.CounterVec
	clipDuration      prometheus.Histogram
}

// NewAudioMetrics creates and registers new audio metrics
func NewAudioMetrics(registry *prometheus.Registry) (*AudioMetrics, error) {
	m := &AudioMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AudioMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_operations_total",
			Help: "Total number of audio operations",
		},
		[]string{"operation", "status"}, // operation: audio_load, clip_encode, prepare
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audio_operation_duration_seconds",
			Help:    "Time taken for audio operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	m.operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_operation_errors_total",
			Help: "Total number of audio operation errors",
		},
		[]string{"operation", "error_type"},
	)

	m.clipEncodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_clip_encodes_total",
			Help: "Total number of playback clips encoded",
		},
		[]string{"bit_depth", "time_expansion"},
	)

	m.clipDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audio_clip_duration_seconds",
			Help:    "True-time duration of encoded playback clips",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
		},
	)
}

func (m *AudioMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.operationErrors,
		m.clipEncodesTotal,
		m.clipDuration,
	}
}

// Describe implements the Collector interface
func (m *AudioMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *AudioMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder.
func (m *AudioMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *AudioMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *AudioMetrics) RecordError(operation, errorType string) {
	m.operationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordClip records an encoded playback clip.
func (m *AudioMetrics) RecordClip(bitDepth int, timeExpansion, durationSeconds float64) {
	m.clipEncodesTotal.WithLabelValues(
		strconv.Itoa(bitDepth),
		strconv.FormatFloat(timeExpansion, 'g', -1, 64),
	).Inc()
	m.clipDuration.Observe(durationSeconds)
}
