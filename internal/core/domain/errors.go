package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services, repositories and the HTTP layer.
// The error handler maps each one to a fixed status code and problem type.
var (
	// ErrInvalidCredentials covers every authentication failure: missing or
	// malformed token, bad signature, expired token, unknown subject, wrong
	// password, inactive account. Collapsing them prevents callers from
	// probing which condition failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserExists        = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrHabitNotFound     = errors.New("habit not found")
	ErrHabitInactive     = errors.New("cannot track an inactive habit")
	ErrDuplicateTracking = errors.New("habit already tracked for this date")
	ErrTrackingNotFound  = errors.New("tracking record not found")
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationError carries per-field failures through to the error envelope.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "request validation failed"
	}
	return fmt.Sprintf("request validation failed: %s", e.Fields[0].Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message, typ string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message, Type: typ}}}
}

// RateLimitError is returned when a client exceeds its token bucket.
// RetryAfter is the whole number of seconds until a token is available.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfter)
}

// QuotaError is returned when a per-owner resource cap is hit.
type QuotaError struct {
	Resource string
	Limit    int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("maximum number of %s reached (%d)", e.Resource, e.Limit)
}
