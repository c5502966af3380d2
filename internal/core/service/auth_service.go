package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/habittracker/habit-api/internal/api/metrics"
	"github.com/habittracker/habit-api/internal/audit"
	"github.com/habittracker/habit-api/internal/core/domain"
	"github.com/habittracker/habit-api/internal/core/ports"
)

// Claims carried by issued tokens. Subject is the username; expiry and
// issue time are validated by the JWT library on parse.
type Claims struct {
	jwt.RegisteredClaims
}

// AuthService implements registration, login and per-request authentication.
//
// Every authentication failure (missing or malformed header, bad signature,
// expired token, unknown subject, inactive account, wrong password) surfaces
// as domain.ErrInvalidCredentials. The distinguishing reason goes only to
// server-side metrics and the audit trail.
type AuthService struct {
	users     ports.UserRepository
	recorder  audit.Recorder
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(users ports.UserRepository, recorder audit.Recorder, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		recorder:  recorder,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Register creates a new account with an argon2id password hash.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if username == "" {
		return nil, domain.NewValidationError("username", "username is required", "required")
	}
	if password == "" {
		return nil, domain.NewValidationError("password", "password is required", "required")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		s.recorder.Record(ctx, audit.Event{
			Action:       audit.ActionRegister,
			ResourceType: "user",
			Status:       audit.StatusFailure,
			Details:      map[string]any{"username": username},
		})
		return nil, err
	}

	metrics.UsersRegisteredTotal.Inc()
	s.recorder.Record(ctx, audit.Event{
		Action:       audit.ActionRegister,
		ResourceType: "user",
		ResourceID:   created.ID,
		UserID:       created.ID,
	})
	s.log.Info().Str("username", created.Username).Msg("user registered")

	return created, nil
}

// Login verifies credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, s.failLogin(ctx, username, "missing_credentials")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.failLogin(ctx, username, "unknown_subject")
	}
	if !verifyPassword(password, user.PasswordHash) {
		return nil, s.failLogin(ctx, username, "bad_password")
	}
	if !user.IsActive {
		return nil, s.failLogin(ctx, username, "inactive_user")
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Event{
		Action:       audit.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID,
		UserID:       user.ID,
	})
	s.log.Info().Str("username", user.Username).Msg("user logged in")

	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// failLogin records the failure server-side and returns the one generic
// credential error every login failure maps to.
func (s *AuthService) failLogin(ctx context.Context, username, reason string) error {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	s.recorder.Record(ctx, audit.Event{
		Action:       audit.ActionLoginFailed,
		ResourceType: "user",
		Status:       audit.StatusFailure,
		Details:      map[string]any{"username": username, "reason": reason},
	})
	return domain.ErrInvalidCredentials
}

// Authenticate resolves the Authorization header to an active user. It is
// called by the auth middleware on every protected request and holds no
// session state: the same token always yields the same result.
func (s *AuthService) Authenticate(ctx context.Context, authorizationHeader string) (*domain.User, error) {
	token, ok := extractBearer(authorizationHeader)
	if !ok {
		reason := "malformed_token"
		if authorizationHeader == "" {
			reason = "missing_token"
		}
		return nil, s.failAuth(ctx, reason)
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return nil, s.failAuth(ctx, "invalid_token")
	}
	if claims.Subject == "" {
		return nil, s.failAuth(ctx, "invalid_token")
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, s.failAuth(ctx, "unknown_subject")
	}
	if !user.IsActive {
		return nil, s.failAuth(ctx, "inactive_user")
	}

	return user, nil
}

func (s *AuthService) failAuth(ctx context.Context, reason string) error {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	s.recorder.Record(ctx, audit.Event{
		Action:       audit.ActionAuthFailed,
		ResourceType: "user",
		Status:       audit.StatusFailure,
		Details:      map[string]any{"reason": reason},
	})
	return domain.ErrInvalidCredentials
}

func (s *AuthService) generateToken(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) parseToken(token string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidCredentials
	}
	return claims, nil
}

// extractBearer pulls the token out of "Bearer <token>" (scheme
// case-insensitive).
func extractBearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
