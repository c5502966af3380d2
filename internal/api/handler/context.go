package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/habittracker/habit-api/internal/api/middleware"
	"github.com/habittracker/habit-api/internal/core/domain"
)

// ctxPrincipal extracts the user injected by the Auth middleware. A nil
// principal means the route was wired without the middleware; fail closed
// with 401 rather than proceed unauthenticated.
func ctxPrincipal(c echo.Context) (*domain.User, error) {
	user := middleware.Principal(c)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return user, nil
}

// normalizer is implemented by request schemas that clean their fields
// (whitespace trimming, defaults) before validation runs.
type normalizer interface {
	normalize()
}

// bindAndValidate decodes the JSON body into req, normalizes it and runs
// struct validation. Malformed bodies surface as a validation error rather
// than a bare 400, so clients always get the same problem shape for bad
// input. Normalization happens first so a whitespace-only name fails the
// min-length check instead of sneaking through.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("body", "request body is not valid JSON", "bind")
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return c.Validate(req)
}
