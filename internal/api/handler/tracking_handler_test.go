package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/habittracker/habit-api/internal/core/domain"
	"github.com/habittracker/habit-api/internal/core/ports"
)

type stubTrackingService struct {
	trackFn func(ctx context.Context, input ports.TrackHabitInput) (*ports.TrackResult, error)
	statsFn func(ctx context.Context, input ports.StatsInput) (*domain.HabitStats, error)
}

func (s *stubTrackingService) Track(ctx context.Context, input ports.TrackHabitInput) (*ports.TrackResult, error) {
	return s.trackFn(ctx, input)
}

func (s *stubTrackingService) Stats(ctx context.Context, input ports.StatsInput) (*domain.HabitStats, error) {
	return s.statsFn(ctx, input)
}

func testRecord() *domain.TrackingRecord {
	return &domain.TrackingRecord{
		ID:            "record_1",
		HabitID:       "habit_1",
		CompletedDate: "2026-08-24",
		Count:         2,
		Notes:         "evening session",
		TrackedAt:     time.Date(2026, 8, 24, 21, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Track
// ---------------------------------------------------------------------------

func TestTrackingHandler_Track_Fresh(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubTrackingService{
		trackFn: func(_ context.Context, input ports.TrackHabitInput) (*ports.TrackResult, error) {
			if input.OwnerID != "user_1" || input.HabitID != "habit_1" {
				t.Fatalf("unexpected scope: %+v", input)
			}
			if input.CompletedDate != "2026-08-24" || input.Count != 2 || input.Notes != "evening session" {
				t.Fatalf("unexpected input: %+v", input)
			}
			return &ports.TrackResult{Record: testRecord()}, nil
		},
	}
	handler := NewTrackingHandler(stub)

	c, rec := newJSONContext(e, http.MethodPost, "/v1/habits/habit_1/track",
		`{"completed_date":"2026-08-24","count":2,"notes":"evening session"}`)
	c.SetParamNames("id")
	c.SetParamValues("habit_1")

	if err := callAs(testUser(), handler.Track, c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "Habit tracked successfully" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	record, ok := resp["record"].(map[string]any)
	if !ok || record["completed_date"] != "2026-08-24" || record["count"] != float64(2) {
		t.Fatalf("unexpected record payload: %+v", resp["record"])
	}
}

func TestTrackingHandler_Track_Duplicate(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubTrackingService{
		trackFn: func(context.Context, ports.TrackHabitInput) (*ports.TrackResult, error) {
			return &ports.TrackResult{Record: testRecord(), AlreadyTracked: true}, nil
		},
	}
	handler := NewTrackingHandler(stub)

	c, rec := newJSONContext(e, http.MethodPost, "/v1/habits/habit_1/track",
		`{"completed_date":"2026-08-24"}`)
	c.SetParamNames("id")
	c.SetParamValues("habit_1")

	if err := callAs(testUser(), handler.Track, c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an already tracked date, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "Habit already tracked for this date" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
}

func TestTrackingHandler_Track_EmptyBody(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubTrackingService{
		trackFn: func(_ context.Context, input ports.TrackHabitInput) (*ports.TrackResult, error) {
			if input.CompletedDate != "" || input.Count != 0 || input.Notes != "" {
				t.Fatalf("expected zero-value input for empty body, got %+v", input)
			}
			return &ports.TrackResult{Record: testRecord()}, nil
		},
	}
	handler := NewTrackingHandler(stub)

	c, rec := newJSONContext(e, http.MethodPost, "/v1/habits/habit_1/track", "")
	c.SetParamNames("id")
	c.SetParamValues("habit_1")

	if err := callAs(testUser(), handler.Track, c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestTrackingHandler_Track_ValidationFailures(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubTrackingService{
		trackFn: func(context.Context, ports.TrackHabitInput) (*ports.TrackResult, error) {
			t.Fatal("service must not be called on invalid input")
			return nil, nil
		},
	}
	handler := NewTrackingHandler(stub)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"slash date", `{"completed_date":"2026/08/25"}`, "completed_date"},
		{"word date", `{"completed_date":"yesterday"}`, "completed_date"},
		{"count too high", `{"count":101}`, "count"},
		{"notes too long", `{"notes":"` + strings.Repeat("n", 201) + `"}`, "notes"},
		{"unsafe notes", `{"notes":"done<script>"}`, "notes"},
	}
	for _, tc := range cases {
		c, _ := newJSONContext(e, http.MethodPost, "/v1/habits/habit_1/track", tc.body)
		c.SetParamNames("id")
		c.SetParamValues("habit_1")

		err := callAs(testUser(), handler.Track, c)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			continue
		}
		found := false
		for _, f := range ve.Fields {
			if f.Field == tc.field {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: expected error on field %q, got %+v", tc.name, tc.field, ve.Fields)
		}
	}
}

func TestTrackingHandler_Track_InactiveHabit(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubTrackingService{
		trackFn: func(context.Context, ports.TrackHabitInput) (*ports.TrackResult, error) {
			return nil, domain.ErrHabitInactive
		},
	}
	handler := NewTrackingHandler(stub)

	c, _ := newJSONContext(e, http.MethodPost, "/v1/habits/habit_1/track", "")
	c.SetParamNames("id")
	c.SetParamValues("habit_1")

	if err := callAs(testUser(), handler.Track, c); !errors.Is(err, domain.ErrHabitInactive) {
		t.Fatalf("expected ErrHabitInactive to propagate, got %v", err)
	}
}

func TestTrackingHandler_Track_HabitNotFound(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubTrackingService{
		trackFn: func(context.Context, ports.TrackHabitInput) (*ports.TrackResult, error) {
			return nil, domain.ErrHabitNotFound
		},
	}
	handler := NewTrackingHandler(stub)

	c, _ := newJSONContext(e, http.MethodPost, "/v1/habits/ghost/track", "")
	c.SetParamNames("id")
	c.SetParamValues("ghost")

	if err := callAs(testUser(), handler.Track, c); !errors.Is(err, domain.ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound to propagate, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func TestTrackingHandler_Stats_Success(t *testing.T) {
	e := echo.New()
	stub := &stubTrackingService{
		statsFn: func(_ context.Context, input ports.StatsInput) (*domain.HabitStats, error) {
			if input.OwnerID != "user_1" || input.HabitID != "habit_1" || input.Period != "week" {
				t.Fatalf("unexpected input: %+v", input)
			}
			return &domain.HabitStats{
				HabitID:          "habit_1",
				HabitName:        "Morning run",
				Period:           "week",
				CompletedDays:    3,
				ExpectedDays:     7,
				CompletionRate:   42.86,
				CurrentStreak:    2,
				LongestStreak:    4,
				TotalCompletions: 12,
				PeriodStart:      "2026-08-18",
				PeriodEnd:        "2026-08-25",
			}, nil
		},
	}
	handler := NewTrackingHandler(stub)

	c, rec := newJSONContext(e, http.MethodGet, "/v1/habits/habit_1/stats?period=week", "")
	c.SetParamNames("id")
	c.SetParamValues("habit_1")

	if err := callAs(testUser(), handler.Stats, c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["habit_name"] != "Morning run" || resp["period"] != "week" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	stats, ok := resp["stats"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested stats object, got %+v", resp)
	}
	if stats["completed_days"] != float64(3) || stats["completion_rate"] != 42.86 {
		t.Fatalf("unexpected stats body: %+v", stats)
	}
	if stats["current_streak"] != float64(2) || stats["longest_streak"] != float64(4) {
		t.Fatalf("unexpected streaks: %+v", stats)
	}
	if resp["period_start"] != "2026-08-18" || resp["period_end"] != "2026-08-25" {
		t.Fatalf("unexpected period bounds: %+v", resp)
	}
}

func TestTrackingHandler_Stats_InvalidPeriod(t *testing.T) {
	e := echo.New()
	stub := &stubTrackingService{
		statsFn: func(context.Context, ports.StatsInput) (*domain.HabitStats, error) {
			return nil, domain.NewValidationError("period", "period must be week, month or year", "period")
		},
	}
	handler := NewTrackingHandler(stub)

	c, _ := newJSONContext(e, http.MethodGet, "/v1/habits/habit_1/stats?period=decade", "")
	c.SetParamNames("id")
	c.SetParamValues("habit_1")

	err := callAs(testUser(), handler.Stats, c)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTrackingHandler_Stats_HabitNotFound(t *testing.T) {
	e := echo.New()
	stub := &stubTrackingService{
		statsFn: func(context.Context, ports.StatsInput) (*domain.HabitStats, error) {
			return nil, domain.ErrHabitNotFound
		},
	}
	handler := NewTrackingHandler(stub)

	c, _ := newJSONContext(e, http.MethodGet, "/v1/habits/ghost/stats", "")
	c.SetParamNames("id")
	c.SetParamValues("ghost")

	if err := callAs(testUser(), handler.Stats, c); !errors.Is(err, domain.ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound to propagate, got %v", err)
	}
}
