// Package metrics provides custom Prometheus metrics for batprep.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it instead of concrete collectors so tests can swap in
// a TestRecorder and callers without a registry can pass a NoOpRecorder.
type Recorder interface {
	// RecordOperation records an operation with its outcome, e.g. ("cache_lookup", "hit").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error for an operation, errorType is usually an error category.
	RecordError(operation, errorType string)
}

// NoOpRecorder is a no-op implementation of the Recorder interface.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (n *NoOpRecorder) RecordOperation(operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpRecorder) RecordDuration(operation string, seconds float64) {}

// RecordError does nothing.
func (n *NoOpRecorder) RecordError(operation, errorType string) {}

// NewNoOpRecorder creates a new no-op recorder instance.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}
