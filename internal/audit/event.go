// Package audit provides the append-only trail of mutating and
// security-relevant operations. One JSON object per line, one event per
// completed operation, keyed by the request's correlation id so that a
// client-reported error can be matched to the exact server-side record.
package audit

import (
	"context"
	"strings"
	"time"
)

// Action identifies what was attempted.
type Action string

const (
	ActionCreate      Action = "CREATE"
	ActionUpdate      Action = "UPDATE"
	ActionDelete      Action = "DELETE"
	ActionRegister    Action = "REGISTER"
	ActionLogin       Action = "LOGIN"
	ActionLoginFailed Action = "LOGIN_FAILED"
	ActionAuthFailed  Action = "AUTH_FAILED"
	ActionRateLimited Action = "RATE_LIMITED"
)

// Outcome of the audited operation.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event is a single immutable audit record.
type Event struct {
	Action        Action         `json:"action"`
	ResourceType  string         `json:"resource_type"`
	ResourceID    string         `json:"resource_id,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	CorrelationID string         `json:"correlation_id"`
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	Details       map[string]any `json:"details,omitempty"`
}

type ctxKey struct{}

// WithCorrelationID attaches the request correlation id to the context so
// services and the recorder can stamp it on events and error responses.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
