package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/batprep/internal/api/middleware"
	"github.com/tphakala/batprep/internal/errors"
	"github.com/tphakala/batprep/internal/logger"
	"github.com/tphakala/batprep/internal/observability"
	"github.com/tphakala/batprep/internal/prepare"
	"github.com/tphakala/batprep/internal/securefs"
)

// Server is the HTTP server of the labeling GUI backend.
type Server struct {
	echo    *echo.Echo
	config  *Config
	service *prepare.Service
	data    *securefs.SecureFS
	metrics *observability.Metrics
	logger  logger.Logger

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger replaces the api module logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server answering from service and serving segment images
// out of data.
func New(config *Config, service *prepare.Service, data *securefs.SecureFS, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if service == nil || data == nil {
		return nil, errors.Newf("api server requires a prepare service and a data directory").
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("operation", "new_server").
			Build()
	}

	s := &Server{
		config:    config,
		service:   service,
		data:      data,
		logger:    GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Logger = logger.NewEchoLoggerAdapter(logger.Global().Module("echo"))
	s.echo.HTTPErrorHandler = s.httpErrorHandler

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.logger.Info("HTTP server initialized",
		logger.String("listen", config.Listen),
		logger.Float64("rate_limit", config.RateLimit),
		logger.Bool("metrics", s.metrics != nil),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// skipQuiet skips probes and scrapes.
func skipQuiet(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/metrics" || strings.HasSuffix(p, "/health")
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.logger, skipQuiet))

	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	security := mw.DefaultSecurityConfig()
	if len(s.config.AllowedOrigins) > 0 {
		security.AllowedOrigins = s.config.AllowedOrigins
	}
	s.echo.Use(mw.NewCORS(security))
	s.echo.Use(mw.NewSecureHeaders(security))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))

	if s.config.RateLimit > 0 {
		var rec mw.RateLimitedRecorder
		if s.metrics != nil {
			rec = s.metrics.HTTP
		}
		s.echo.Use(mw.NewRateLimiter(s.config.RateLimit, s.config.RateBurst, rec, skipQuiet))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.healthCheck)
	v1.GET("/recordings", s.listRecordings)
	v1.GET("/recordings/:id/audio", s.getAudio)
	v1.GET("/recordings/:id/spectrogram", s.getSpectrogram)

	s.echo.GET("/data/:file", s.serveData)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", logger.String("listen", s.config.Listen))
		err := s.echo.Start(s.config.Listen)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received, initiating graceful shutdown")
	if err := s.Shutdown(); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("Server shutdown complete")
	return nil
}
