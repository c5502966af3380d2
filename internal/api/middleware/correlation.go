package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/habittracker/habit-api/internal/audit"
)

const maxRequestIDLen = 64

// Correlation assigns every request a correlation id before any other stage
// runs, so even a rate-limit rejection carries a traceable id. A
// caller-supplied X-Request-ID is reused (truncated if oversized); otherwise
// a fresh UUID is generated. The id is echoed on the response and threaded
// through the request context for logging and audit.
func Correlation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			} else if len(id) > maxRequestIDLen {
				id = id[:maxRequestIDLen]
			}

			c.Response().Header().Set(echo.HeaderXRequestID, id)
			ctx := audit.WithCorrelationID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
