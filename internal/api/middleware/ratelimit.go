package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/habittracker/habit-api/internal/api/metrics"
	"github.com/habittracker/habit-api/internal/audit"
	"github.com/habittracker/habit-api/internal/core/domain"
	"github.com/habittracker/habit-api/internal/ratelimit"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Limiter *ratelimit.Limiter
	// Name labels the limiter in metrics and audit details ("global", "auth").
	Name     string
	Recorder audit.Recorder
	// Skipper bypasses limiting for matching requests (probes, metrics).
	Skipper func(c echo.Context) bool
}

// RateLimit admits or rejects requests against a token bucket keyed by
// client IP. It runs before authentication, so rejections are cheap and
// carry no principal. A rejection is audited and returned as
// domain.RateLimitError for the central error handler to render.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			key := c.RealIP()
			d := cfg.Limiter.Admit(key)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if d.Allowed {
				return next(c)
			}

			metrics.RateLimitRejectionsTotal.WithLabelValues(cfg.Name).Inc()
			cfg.Recorder.Record(c.Request().Context(), audit.Event{
				Action:       audit.ActionRateLimited,
				ResourceType: "client",
				ResourceID:   key,
				Status:       audit.StatusFailure,
				Details: map[string]any{
					"limiter": cfg.Name,
					"path":    c.Request().URL.Path,
				},
			})

			return &domain.RateLimitError{RetryAfter: int(d.RetryAfter / time.Second)}
		}
	}
}
