package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/observability/metrics"
)

func TestNewMetricsHandler(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Spectrogram.RecordOperation(metrics.OpCacheLookup, metrics.StatusMiss)
	m.Audio.RecordClip(16, 10, 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `spectrogram_operations_total{operation="cache_lookup",status="miss"} 1`)
	assert.Contains(t, string(body), "audio_clip_encodes_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestInstallErrorHook(t *testing.T) {
	t.Cleanup(errors.ClearErrorHooks)

	m, err := NewMetrics()
	require.NoError(t, err)
	m.InstallErrorHook()

	_ = errors.Newf("missing recording").
		Component("clip").
		Category(errors.CategoryNotFound).
		Build()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Contains(t, rec.Body.String(), `errors_total{category="not-found",component="clip"} 1`)
}
