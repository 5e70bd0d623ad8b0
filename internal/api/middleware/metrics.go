package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HTTPRecorder receives per-request metrics.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
	RecordHTTPRequestError(method, path, errorType string)
	RecordHTTPResponseSize(method, path string, sizeBytes int64)
}

// NewMetrics records count, latency and response size of every request,
// labeled by route template rather than raw URL.
func NewMetrics(rec HTTPRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rec == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			req := c.Request()
			path := routePath(c)
			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
				rec.RecordHTTPRequestError(req.Method, path, http.StatusText(status))
			}

			rec.RecordHTTPRequest(req.Method, path, status, time.Since(start).Seconds())
			rec.RecordHTTPResponseSize(req.Method, path, c.Response().Size)
			return err
		}
	}
}

// routePath returns the matched route template, or "unmatched".
func routePath(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
