package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/habittracker/habit-api/internal/audit"
	"github.com/habittracker/habit-api/internal/core/domain"
)

const errorTypeBase = "https://api.habittracker.dev/errors/"

// problem is the RFC 7807 envelope rendered for every API error except the
// rate limiter's 429, which keeps its older contract.
type problem struct {
	Type          string              `json:"type"`
	Title         string              `json:"title"`
	Status        int                 `json:"status"`
	Detail        string              `json:"detail"`
	Instance      string              `json:"instance"`
	CorrelationID string              `json:"correlation_id"`
	Errors        []domain.FieldError `json:"errors,omitempty"`
}

type rateLimitBody struct {
	Error rateLimitInfo `json:"error"`
}

type rateLimitInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their problem type and HTTP status.
//   - Collapses every authentication failure into one generic 401 body.
//   - Logs unexpected errors internally and masks their details; clients get
//     only the correlation id to quote.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var rle *domain.RateLimitError
		if errors.As(err, &rle) {
			renderRateLimit(c, rle)
			return
		}

		p := resolveProblem(err, log, c)
		p.Instance = c.Request().URL.Path
		p.CorrelationID = audit.CorrelationID(c.Request().Context())
		_ = c.JSON(p.Status, p)
	}
}

// renderRateLimit writes the 429 contract: Retry-After header plus the
// {"error": {...}} envelope.
func renderRateLimit(c echo.Context, rle *domain.RateLimitError) {
	c.Response().Header().Set("Retry-After", strconv.Itoa(rle.RetryAfter))
	_ = c.JSON(http.StatusTooManyRequests, rateLimitBody{
		Error: rateLimitInfo{
			Code:       "rate_limit_exceeded",
			Message:    fmt.Sprintf("Too many requests. Retry after %d seconds.", rle.RetryAfter),
			RetryAfter: rle.RetryAfter,
		},
	})
}

func resolveProblem(err error, log zerolog.Logger, c echo.Context) problem {
	var (
		status int
		detail string
		fields []domain.FieldError
	)

	var (
		ve *domain.ValidationError
		qe *domain.QuotaError
		he *echo.HTTPError
	)

	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		detail = "Request validation failed"
		fields = ve.Fields
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		detail = "invalid credentials"
	case errors.As(err, &qe):
		status = http.StatusForbidden
		detail = qe.Error()
	case errors.Is(err, domain.ErrHabitNotFound):
		status = http.StatusNotFound
		detail = "habit not found"
	case errors.Is(err, domain.ErrTrackingNotFound):
		status = http.StatusNotFound
		detail = "tracking record not found"
	case errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
		detail = "user not found"
	case errors.Is(err, domain.ErrUserExists):
		status = http.StatusConflict
		detail = "username is already taken"
	case errors.Is(err, domain.ErrHabitInactive):
		status = http.StatusConflict
		detail = "habit is inactive"
	case errors.Is(err, domain.ErrDuplicateTracking):
		status = http.StatusConflict
		detail = "habit already tracked for this date"
	case errors.As(err, &he):
		// Echo's own errors: router 404/405, body limit, bind failures.
		status = he.Code
		detail = fmt.Sprintf("%v", he.Message)
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Str("correlation_id", audit.CorrelationID(c.Request().Context())).
			Msg("unhandled error")
		detail = "Internal server error. Contact the administrator."
	}

	t := typeFor(status)
	return problem{
		Type:   t.uri,
		Title:  t.title,
		Status: status,
		Detail: detail,
		Errors: fields,
	}
}

type problemType struct {
	uri   string
	title string
}

func typeFor(status int) problemType {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return problemType{errorTypeBase + "validation", "Validation Error"}
	case status == http.StatusUnauthorized:
		return problemType{errorTypeBase + "unauthorized", "Unauthorized"}
	case status == http.StatusForbidden:
		return problemType{errorTypeBase + "forbidden", "Forbidden"}
	case status == http.StatusNotFound:
		return problemType{errorTypeBase + "not-found", "Resource Not Found"}
	case status == http.StatusConflict:
		return problemType{errorTypeBase + "conflict", "Resource Conflict"}
	case status == http.StatusTooManyRequests:
		return problemType{errorTypeBase + "rate-limit", "Rate Limit Exceeded"}
	case status >= http.StatusInternalServerError:
		return problemType{errorTypeBase + "internal", "Internal Server Error"}
	default:
		return problemType{errorTypeBase + "unknown", "Unknown Error"}
	}
}
