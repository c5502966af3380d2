package ports

import (
	"context"
	"time"

	"github.com/habittracker/habit-api/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService defines the account use cases consumed by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}
