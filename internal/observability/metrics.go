// Package observability wires the Prometheus registry and the metric
// collectors used across batprep.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry    *prometheus.Registry
	Spectrogram *metrics.SpectrogramMetrics
	Audio       *metrics.AudioMetrics
	HTTP        *metrics.HTTPMetrics
	Errors      *metrics.ErrorMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, wrapRegistration(err, "go")
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, wrapRegistration(err, "process")
	}

	spectrogramMetrics, err := metrics.NewSpectrogramMetrics(registry)
	if err != nil {
		return nil, wrapRegistration(err, "spectrogram")
	}

	audioMetrics, err := metrics.NewAudioMetrics(registry)
	if err != nil {
		return nil, wrapRegistration(err, "audio")
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, wrapRegistration(err, "http")
	}

	errorMetrics, err := metrics.NewErrorMetrics(registry)
	if err != nil {
		return nil, wrapRegistration(err, "errors")
	}

	return &Metrics{
		registry:    registry,
		Spectrogram: spectrogramMetrics,
		Audio:       audioMetrics,
		HTTP:        httpMetrics,
		Errors:      errorMetrics,
	}, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// InstallErrorHook counts every enhanced error built from now on.
func (m *Metrics) InstallErrorHook() {
	errors.AddErrorHook(m.Errors.Hook())
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promLogger{},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func wrapRegistration(err error, collector string) error {
	return errors.New(err).
		Component("observability").
		Category(errors.CategorySystem).
		Context("operation", "register_metrics").
		Context("collector", collector).
		Build()
}

// promLogger adapts promhttp's Println logger to the central logger.
type promLogger struct{}

func (promLogger) Println(v ...any) {
	GetLogger().Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
