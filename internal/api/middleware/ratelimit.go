package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client keeps its token bucket.
const visitorTTL = 3 * time.Minute

// LimiterStore keeps one token bucket per client identifier. Buckets of
// clients idle for longer than visitorTTL are dropped.
type LimiterStore struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	visitors *gocache.Cache
}

// NewLimiterStore allows perSecond requests per client with bursts of burst.
// burst falls back to the rounded-up rate when not positive.
func NewLimiterStore(perSecond float64, burst int) *LimiterStore {
	if burst <= 0 {
		burst = max(1, int(perSecond+0.5))
	}
	return &LimiterStore{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		visitors: gocache.New(visitorTTL, visitorTTL),
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *LimiterStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	var l *rate.Limiter
	if v, ok := s.visitors.Get(identifier); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(s.limit, s.burst)
	}
	// refresh expiry on every hit
	s.visitors.SetDefault(identifier, l)
	s.mu.Unlock()

	return l.Allow(), nil
}

// RateLimitedRecorder records rejected requests.
type RateLimitedRecorder interface {
	RecordRateLimited(path string)
}

// NewRateLimiter rejects clients exceeding perSecond requests with 429.
// rec may be nil.
func NewRateLimiter(perSecond float64, burst int, rec RateLimitedRecorder, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper:             skipper,
		Store:               NewLimiterStore(perSecond, burst),
		IdentifierExtractor: middleware.DefaultRateLimiterConfig.IdentifierExtractor,
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "unable to identify client",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if rec != nil {
				rec.RecordRateLimited(routePath(c))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded, please slow down",
			})
		},
	})
}
