package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/habittracker/habit-api/internal/audit"
	"github.com/habittracker/habit-api/internal/core/domain"
	"github.com/habittracker/habit-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stub marker
// ---------------------------------------------------------------------------

type stubMarker struct {
	marks   map[string]bool
	isErr   error
	markErr error
}

func newStubMarker() *stubMarker {
	return &stubMarker{marks: make(map[string]bool)}
}

func (m *stubMarker) IsTracked(_ context.Context, habitID, completedDate string) (bool, error) {
	if m.isErr != nil {
		return false, m.isErr
	}
	return m.marks[trackingKey(habitID, completedDate)], nil
}

func (m *stubMarker) Mark(_ context.Context, habitID, completedDate string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marks[trackingKey(habitID, completedDate)] = true
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type trackingFixture struct {
	svc     ports.TrackingService
	habits  *stubHabitRepo
	records *stubTrackingRepo
	marker  *stubMarker
}

func newTrackingFixture() *trackingFixture {
	habits := newStubHabitRepo()
	records := newStubTrackingRepo()
	marker := newStubMarker()
	return &trackingFixture{
		svc:     NewTrackingService(habits, records, marker, audit.Nop(), discardLogger),
		habits:  habits,
		records: records,
		marker:  marker,
	}
}

// daysAgo formats the date n days before today (UTC).
func daysAgo(n int) string {
	return dateOnly(time.Now().UTC()).AddDate(0, 0, -n).Format(domain.DateLayout)
}

// ---------------------------------------------------------------------------
// Track
// ---------------------------------------------------------------------------

func TestTrackingService_Track_DefaultsToToday(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	result, err := f.svc.Track(context.Background(), ports.TrackHabitInput{
		OwnerID: "alice",
		HabitID: habit.ID,
		Notes:   "felt great",
	})
	if err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if result.AlreadyTracked {
		t.Error("first track must not report AlreadyTracked")
	}
	if result.Record.CompletedDate != daysAgo(0) {
		t.Errorf("expected today %s, got %s", daysAgo(0), result.Record.CompletedDate)
	}
	if result.Record.Count != 1 {
		t.Errorf("expected default count 1, got %d", result.Record.Count)
	}
	if result.Record.Notes != "felt great" {
		t.Errorf("notes lost: %q", result.Record.Notes)
	}
	if result.Record.TrackedAt.IsZero() {
		t.Error("TrackedAt must be set")
	}
	if !f.marker.marks[trackingKey(habit.ID, result.Record.CompletedDate)] {
		t.Error("expected marker to be set after a fresh insert")
	}
}

func TestTrackingService_Track_DuplicateReturnsExisting(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	input := ports.TrackHabitInput{OwnerID: "alice", HabitID: habit.ID, CompletedDate: daysAgo(1)}

	first, err := f.svc.Track(context.Background(), input)
	if err != nil {
		t.Fatalf("first track failed: %v", err)
	}
	second, err := f.svc.Track(context.Background(), input)
	if err != nil {
		t.Fatalf("second track failed: %v", err)
	}

	if !second.AlreadyTracked {
		t.Error("second track must report AlreadyTracked")
	}
	if second.Record.ID != first.Record.ID {
		t.Errorf("expected the original record back, got %s vs %s", second.Record.ID, first.Record.ID)
	}
	if len(f.records.records) != 1 {
		t.Errorf("expected 1 stored record, got %d", len(f.records.records))
	}
}

func TestTrackingService_Track_MarkerFastPathSkipsInsert(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	date := daysAgo(2)
	if _, err := f.records.Insert(context.Background(), &domain.TrackingRecord{
		HabitID:       habit.ID,
		CompletedDate: date,
		Count:         1,
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	_ = f.marker.Mark(context.Background(), habit.ID, date)
	f.records.insertCalls = 0

	result, err := f.svc.Track(context.Background(), ports.TrackHabitInput{
		OwnerID:       "alice",
		HabitID:       habit.ID,
		CompletedDate: date,
	})
	if err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if !result.AlreadyTracked {
		t.Error("expected AlreadyTracked via the marker fast path")
	}
	if f.records.insertCalls != 0 {
		t.Errorf("fast path must not hit Insert, got %d calls", f.records.insertCalls)
	}
}

// A marker hit with no stored record behind it must not block tracking.
func TestTrackingService_Track_StaleMarkerStillInserts(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	date := daysAgo(1)
	_ = f.marker.Mark(context.Background(), habit.ID, date)

	result, err := f.svc.Track(context.Background(), ports.TrackHabitInput{
		OwnerID:       "alice",
		HabitID:       habit.ID,
		CompletedDate: date,
	})
	if err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if result.AlreadyTracked {
		t.Error("stale marker must not fake a duplicate")
	}
	if len(f.records.records) != 1 {
		t.Errorf("expected the record to be inserted, got %d", len(f.records.records))
	}
}

// When the marker backend is down the store's unique index still settles
// duplicates; tracking keeps working.
func TestTrackingService_Track_MarkerOutageDegrades(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)
	f.marker.isErr = errors.New("connection refused")
	f.marker.markErr = errors.New("connection refused")

	input := ports.TrackHabitInput{OwnerID: "alice", HabitID: habit.ID, CompletedDate: daysAgo(1)}

	first, err := f.svc.Track(context.Background(), input)
	if err != nil {
		t.Fatalf("track with marker outage failed: %v", err)
	}
	if first.AlreadyTracked {
		t.Error("first track must not report AlreadyTracked")
	}

	second, err := f.svc.Track(context.Background(), input)
	if err != nil {
		t.Fatalf("duplicate track with marker outage failed: %v", err)
	}
	if !second.AlreadyTracked {
		t.Error("unique index fallback must report AlreadyTracked")
	}
}

func TestTrackingService_Track_InactiveHabit(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", false)

	_, err := f.svc.Track(context.Background(), ports.TrackHabitInput{OwnerID: "alice", HabitID: habit.ID})
	if !errors.Is(err, domain.ErrHabitInactive) {
		t.Fatalf("expected ErrHabitInactive, got %v", err)
	}
}

func TestTrackingService_Track_NotOwned(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	_, err := f.svc.Track(context.Background(), ports.TrackHabitInput{OwnerID: "bob", HabitID: habit.ID})
	if !errors.Is(err, domain.ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestTrackingService_Track_DateValidation(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	cases := []struct {
		name string
		date string
	}{
		{"future date", dateOnly(time.Now().UTC()).AddDate(0, 0, 1).Format(domain.DateLayout)},
		{"bad format", "21-08-2026"},
		{"not a date", "yesterday"},
	}
	for _, tc := range cases {
		var ve *domain.ValidationError
		_, err := f.svc.Track(context.Background(), ports.TrackHabitInput{
			OwnerID:       "alice",
			HabitID:       habit.ID,
			CompletedDate: tc.date,
		})
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			continue
		}
		if ve.Fields[0].Field != "completed_date" {
			t.Errorf("%s: expected completed_date field error, got %+v", tc.name, ve.Fields)
		}
	}
}

func TestTrackingService_Track_CountBounds(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	var ve *domain.ValidationError
	_, err := f.svc.Track(context.Background(), ports.TrackHabitInput{
		OwnerID: "alice",
		HabitID: habit.ID,
		Count:   101,
	})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for count 101, got %v", err)
	}

	result, err := f.svc.Track(context.Background(), ports.TrackHabitInput{
		OwnerID: "alice",
		HabitID: habit.ID,
		Count:   100,
	})
	if err != nil {
		t.Fatalf("count 100 rejected: %v", err)
	}
	if result.Record.Count != 100 {
		t.Errorf("expected count 100 stored, got %d", result.Record.Count)
	}
}

func TestTrackingService_Track_QuotaExceeded(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)
	f.records.countOverride = domain.MaxTrackingRecordsPerHabit

	var qe *domain.QuotaError
	_, err := f.svc.Track(context.Background(), ports.TrackHabitInput{OwnerID: "alice", HabitID: habit.ID})
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaError, got %v", err)
	}
	if qe.Limit != domain.MaxTrackingRecordsPerHabit {
		t.Errorf("expected limit %d, got %d", domain.MaxTrackingRecordsPerHabit, qe.Limit)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func seedRecords(t *testing.T, repo *stubTrackingRepo, habitID string, daysBack ...int) {
	t.Helper()
	for _, n := range daysBack {
		if _, err := repo.Insert(context.Background(), &domain.TrackingRecord{
			HabitID:       habitID,
			CompletedDate: daysAgo(n),
			Count:         1,
		}); err != nil {
			t.Fatalf("seed record (%d days ago): %v", n, err)
		}
	}
}

func TestTrackingService_Stats_Empty(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	stats, err := f.svc.Stats(context.Background(), ports.StatsInput{OwnerID: "alice", HabitID: habit.ID})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Period != "month" {
		t.Errorf("expected default period month, got %q", stats.Period)
	}
	if stats.ExpectedDays != 30 {
		t.Errorf("expected 30 expected days, got %d", stats.ExpectedDays)
	}
	if stats.CompletedDays != 0 || stats.CompletionRate != 0 || stats.TotalCompletions != 0 {
		t.Errorf("expected zeroed stats, got %+v", stats)
	}
	if stats.CurrentStreak != 0 || stats.LongestStreak != 0 {
		t.Errorf("expected zero streaks, got current=%d longest=%d", stats.CurrentStreak, stats.LongestStreak)
	}
	if stats.PeriodEnd != daysAgo(0) {
		t.Errorf("expected period end today, got %s", stats.PeriodEnd)
	}
	if stats.HabitName != habit.Name {
		t.Errorf("expected habit name %q, got %q", habit.Name, stats.HabitName)
	}
}

func TestTrackingService_Stats_WindowAndRate(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	// Three consecutive days ending today plus one completion far outside
	// the month window.
	seedRecords(t, f.records, habit.ID, 0, 1, 2, 40)

	week, err := f.svc.Stats(context.Background(), ports.StatsInput{OwnerID: "alice", HabitID: habit.ID, Period: "week"})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if week.CompletedDays != 3 {
		t.Errorf("week: expected 3 completed days, got %d", week.CompletedDays)
	}
	if week.ExpectedDays != 7 {
		t.Errorf("week: expected 7 expected days, got %d", week.ExpectedDays)
	}
	if week.CompletionRate != 42.86 {
		t.Errorf("week: expected completion rate 42.86, got %v", week.CompletionRate)
	}
	if week.TotalCompletions != 4 {
		t.Errorf("week: total completions counts all records, got %d", week.TotalCompletions)
	}

	month, err := f.svc.Stats(context.Background(), ports.StatsInput{OwnerID: "alice", HabitID: habit.ID, Period: "month"})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if month.CompletedDays != 3 {
		t.Errorf("month: expected 3 completed days, got %d", month.CompletedDays)
	}
	if month.CompletionRate != 10 {
		t.Errorf("month: expected completion rate 10, got %v", month.CompletionRate)
	}
}

func TestTrackingService_Stats_Streaks(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	// A 2-day run ending today and an older 4-day run.
	seedRecords(t, f.records, habit.ID, 0, 1, 10, 11, 12, 13)

	stats, err := f.svc.Stats(context.Background(), ports.StatsInput{OwnerID: "alice", HabitID: habit.ID, Period: "month"})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.CurrentStreak != 2 {
		t.Errorf("expected current streak 2, got %d", stats.CurrentStreak)
	}
	if stats.LongestStreak != 4 {
		t.Errorf("expected longest streak 4, got %d", stats.LongestStreak)
	}
}

// A run that stopped yesterday is not a current streak.
func TestTrackingService_Stats_StreakRequiresToday(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	seedRecords(t, f.records, habit.ID, 1, 2, 3)

	stats, err := f.svc.Stats(context.Background(), ports.StatsInput{OwnerID: "alice", HabitID: habit.ID})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.CurrentStreak != 0 {
		t.Errorf("expected current streak 0, got %d", stats.CurrentStreak)
	}
	if stats.LongestStreak != 3 {
		t.Errorf("expected longest streak 3, got %d", stats.LongestStreak)
	}
}

func TestTrackingService_Stats_InvalidPeriod(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	var ve *domain.ValidationError
	_, err := f.svc.Stats(context.Background(), ports.StatsInput{OwnerID: "alice", HabitID: habit.ID, Period: "decade"})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Fields[0].Field != "period" {
		t.Errorf("expected period field error, got %+v", ve.Fields)
	}
}

func TestTrackingService_Stats_NotOwned(t *testing.T) {
	f := newTrackingFixture()
	habit := seedHabit(t, f.habits, "alice", true)

	if _, err := f.svc.Stats(context.Background(), ports.StatsInput{OwnerID: "bob", HabitID: habit.ID}); !errors.Is(err, domain.ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}
