package middleware

import "github.com/labstack/echo/v4"

// SecurityHeaders applies the standard hardening headers to every response,
// success and failure alike. HSTS is intentionally absent; it belongs on the
// TLS-terminating edge.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'self'")

			return next(c)
		}
	}
}
