package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/habittracker/habit-api/internal/audit"
)

func runCorrelation(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var fromCtx string
	handler := Correlation()(func(c echo.Context) error {
		fromCtx = audit.CorrelationID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, fromCtx
}

func TestCorrelation_GeneratesID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, fromCtx := runCorrelation(t, req)

	header := rec.Header().Get(echo.HeaderXRequestID)
	if header == "" {
		t.Fatalf("response X-Request-ID not set")
	}
	if fromCtx != header {
		t.Fatalf("context id %q does not match header id %q", fromCtx, header)
	}
}

func TestCorrelation_ReusesSuppliedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec, fromCtx := runCorrelation(t, req)

	if got := rec.Header().Get(echo.HeaderXRequestID); got != "req-42" {
		t.Fatalf("expected supplied id to be echoed, got %q", got)
	}
	if fromCtx != "req-42" {
		t.Fatalf("expected supplied id in context, got %q", fromCtx)
	}
}

func TestCorrelation_TruncatesOversizedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, strings.Repeat("x", 500))
	rec, fromCtx := runCorrelation(t, req)

	header := rec.Header().Get(echo.HeaderXRequestID)
	if len(header) != maxRequestIDLen {
		t.Fatalf("expected id truncated to %d chars, got %d", maxRequestIDLen, len(header))
	}
	if fromCtx != header {
		t.Fatalf("context id %q does not match header id %q", fromCtx, header)
	}
}
