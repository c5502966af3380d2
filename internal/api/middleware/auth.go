package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/habittracker/habit-api/internal/core/domain"
)

// principalKey is the echo context key under which Auth stores the
// authenticated user.
const principalKey = "auth_principal"

// Authenticator resolves an Authorization header into an active user. All
// failure modes collapse into the same generic error so responses never
// reveal which check rejected the request.
type Authenticator interface {
	Authenticate(ctx context.Context, authorizationHeader string) (*domain.User, error)
}

// Auth authenticates the bearer token and stores the principal in the
// request scope for handlers to read via Principal.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			user, err := authn.Authenticate(c.Request().Context(), header)
			if err != nil {
				return err
			}

			c.Set(principalKey, user)
			return next(c)
		}
	}
}

// Principal returns the authenticated user stored by Auth, or nil on routes
// that never passed through it.
func Principal(c echo.Context) *domain.User {
	user, _ := c.Get(principalKey).(*domain.User)
	return user
}
