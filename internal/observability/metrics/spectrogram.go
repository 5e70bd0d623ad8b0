// Package metrics provides spectrogram pipeline metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SpectrogramMetrics contains Prometheus metrics for spectrogram generation and
// the on-disk segment cache. It implements Recorder.
type SpectrogramMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	segmentsWritten   prometheus.Counter
	segmentBytes      prometheus.Histogram
}

// NewSpectrogramMetrics creates and registers new spectrogram metrics
func NewSpectrogramMetrics(registry *prometheus.Registry) (*SpectrogramMetrics, error) {
	m := &SpectrogramMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SpectrogramMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spectrogram_operations_total",
			Help: "Total number of spectrogram operations",
		},
		[]string{"operation", "status"}, // operation: cache_lookup, spectrogram_generate; status: hit, miss, memo, success, error
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spectrogram_operation_duration_seconds",
			Help:    "Time taken for spectrogram pipeline stages",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount20), // 1ms to ~9 minutes
		},
		[]string{"operation"},
	)

	m.operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spectrogram_operation_errors_total",
			Help: "Total number of spectrogram operation errors",
		},
		[]string{"operation", "error_type"},
	)

	m.segmentsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spectrogram_segments_written_total",
			Help: "Total number of JPEG segments written to the cache",
		},
	)

	m.segmentBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spectrogram_segment_size_bytes",
			Help:    "Size of encoded JPEG segments",
			Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor2, BucketCount12), // 1KB to ~4MB
		},
	)
}

func (m *SpectrogramMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.operationErrors,
		m.segmentsWritten,
		m.segmentBytes,
	}
}

// Describe implements the Collector interface
func (m *SpectrogramMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *SpectrogramMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder.
func (m *SpectrogramMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *SpectrogramMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *SpectrogramMetrics) RecordError(operation, errorType string) {
	m.operationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordSegmentWritten counts one stored segment of the given encoded size.
func (m *SpectrogramMetrics) RecordSegmentWritten(sizeBytes int) {
	m.segmentsWritten.Inc()
	m.segmentBytes.Observe(float64(sizeBytes))
}
