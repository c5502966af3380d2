package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/habittracker/habit-api/internal/api/metrics"
	"github.com/habittracker/habit-api/internal/audit"
	"github.com/habittracker/habit-api/internal/core/domain"
	"github.com/habittracker/habit-api/internal/core/ports"
)

// TrackedMarker abstracts the fast-path (habit, date) duplicate check
// backed by Redis. The Mongo unique index stays authoritative; marker
// failures only cost a round trip.
type TrackedMarker interface {
	IsTracked(ctx context.Context, habitID, completedDate string) (bool, error)
	Mark(ctx context.Context, habitID, completedDate string) error
}

type trackingService struct {
	habits   ports.HabitRepository
	records  ports.TrackingRepository
	marker   TrackedMarker
	recorder audit.Recorder
	log      zerolog.Logger
}

// NewTrackingService returns a TrackingService implementation.
func NewTrackingService(
	habits ports.HabitRepository,
	records ports.TrackingRepository,
	marker TrackedMarker,
	recorder audit.Recorder,
	log zerolog.Logger,
) ports.TrackingService {
	return &trackingService{
		habits:   habits,
		records:  records,
		marker:   marker,
		recorder: recorder,
		log:      log,
	}
}

// Track records a habit completion for a date. Tracking the same date twice
// returns the existing record instead of creating a second one.
func (s *trackingService) Track(ctx context.Context, in ports.TrackHabitInput) (*ports.TrackResult, error) {
	// 1. Ownership: somebody else's habit looks like a missing one.
	habit, err := s.ownedHabit(ctx, in.OwnerID, in.HabitID)
	if err != nil {
		s.auditTrack(ctx, "", in, audit.StatusFailure, "not_found")
		return nil, err
	}
	if !habit.IsActive {
		s.auditTrack(ctx, "", in, audit.StatusFailure, "inactive_habit")
		return nil, domain.ErrHabitInactive
	}

	// 2. Resolve and bound the completion date.
	completedDate, err := resolveCompletedDate(in.CompletedDate)
	if err != nil {
		return nil, err
	}

	count := in.Count
	if count == 0 {
		count = 1
	}
	if count < 1 || count > 100 {
		return nil, domain.NewValidationError("count", "count must be between 1 and 100", "range")
	}

	// 3. Fast-path duplicate check; failures degrade to the unique index.
	tracked, err := s.marker.IsTracked(ctx, habit.ID, completedDate)
	if err != nil {
		s.log.Warn().Err(err).Str("habit_id", habit.ID).Msg("tracked marker check failed, falling back to store")
	} else if tracked {
		existing, err := s.records.FindByHabitAndDate(ctx, habit.ID, completedDate)
		if err == nil {
			return &ports.TrackResult{Record: existing, AlreadyTracked: true}, nil
		}
		s.log.Warn().Err(err).Str("habit_id", habit.ID).Msg("marker hit without stored record, inserting")
	}

	// 4. Quota on records per habit.
	recordCount, err := s.records.CountByHabit(ctx, habit.ID)
	if err != nil {
		return nil, fmt.Errorf("track habit: count records: %w", err)
	}
	if recordCount >= domain.MaxTrackingRecordsPerHabit {
		s.auditTrack(ctx, "", in, audit.StatusFailure, "quota_exceeded")
		return nil, &domain.QuotaError{Resource: "tracking records", Limit: domain.MaxTrackingRecordsPerHabit}
	}

	// 5. Insert; the unique (habit, date) index settles races.
	record := &domain.TrackingRecord{
		HabitID:       habit.ID,
		CompletedDate: completedDate,
		Count:         count,
		Notes:         in.Notes,
		TrackedAt:     time.Now().UTC(),
	}
	created, err := s.records.Insert(ctx, record)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateTracking) {
			existing, findErr := s.records.FindByHabitAndDate(ctx, habit.ID, completedDate)
			if findErr != nil {
				return nil, fmt.Errorf("track habit: load duplicate: %w", findErr)
			}
			return &ports.TrackResult{Record: existing, AlreadyTracked: true}, nil
		}
		s.auditTrack(ctx, "", in, audit.StatusFailure, "")
		return nil, fmt.Errorf("track habit: %w", err)
	}

	// 6. Mark for the fast path (non-fatal on failure).
	if err := s.marker.Mark(ctx, habit.ID, completedDate); err != nil {
		s.log.Warn().Err(err).Str("habit_id", habit.ID).Msg("failed to set tracked marker")
	}

	metrics.HabitsTrackedTotal.Inc()
	s.auditTrack(ctx, created.ID, in, audit.StatusSuccess, "")
	s.log.Info().
		Str("habit_id", habit.ID).
		Str("completed_date", completedDate).
		Msg("habit tracked")

	return &ports.TrackResult{Record: created}, nil
}

// Stats computes completion statistics over a trailing window.
func (s *trackingService) Stats(ctx context.Context, in ports.StatsInput) (*domain.HabitStats, error) {
	habit, err := s.ownedHabit(ctx, in.OwnerID, in.HabitID)
	if err != nil {
		return nil, err
	}

	period := in.Period
	if period == "" {
		period = "month"
	}
	var windowDays int
	switch period {
	case "week":
		windowDays = 7
	case "month":
		windowDays = 30
	case "year":
		windowDays = 365
	default:
		return nil, domain.NewValidationError("period", "period must be one of: week month year", "oneof")
	}

	records, err := s.records.ListByHabit(ctx, habit.ID)
	if err != nil {
		return nil, fmt.Errorf("habit stats: %w", err)
	}

	today := dateOnly(time.Now().UTC())
	periodStart := today.AddDate(0, 0, -windowDays)

	completedDays := 0
	dates := make([]time.Time, 0, len(records))
	for _, r := range records {
		d, err := time.Parse(domain.DateLayout, r.CompletedDate)
		if err != nil {
			continue
		}
		dates = append(dates, d)
		if !d.Before(periodStart) {
			completedDays++
		}
	}

	rate := float64(completedDays) / float64(windowDays) * 100
	rate = math.Round(rate*100) / 100

	return &domain.HabitStats{
		HabitID:          habit.ID,
		HabitName:        habit.Name,
		Period:           period,
		PeriodStart:      periodStart.Format(domain.DateLayout),
		PeriodEnd:        today.Format(domain.DateLayout),
		CompletedDays:    completedDays,
		ExpectedDays:     windowDays,
		CompletionRate:   rate,
		CurrentStreak:    currentStreak(dates, today),
		LongestStreak:    longestStreak(dates),
		TotalCompletions: len(records),
	}, nil
}

// currentStreak counts consecutive tracked days ending today, walking
// backwards until the first gap. dates must be sorted ascending.
func currentStreak(dates []time.Time, today time.Time) int {
	streak := 0
	check := today
	for i := len(dates) - 1; i >= 0; i-- {
		switch {
		case dates[i].Equal(check):
			streak++
			check = check.AddDate(0, 0, -1)
		case dates[i].Before(check):
			return streak
		}
	}
	return streak
}

// longestStreak finds the longest run of consecutive days. dates must be
// sorted ascending with no duplicates.
func longestStreak(dates []time.Time) int {
	longest, run := 0, 0
	for i, d := range dates {
		if i == 0 || d.Equal(dates[i-1].AddDate(0, 0, 1)) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return longest
}

// resolveCompletedDate validates the wire date or defaults to today (UTC).
// Future dates are rejected.
func resolveCompletedDate(raw string) (string, error) {
	today := dateOnly(time.Now().UTC())
	if raw == "" {
		return today.Format(domain.DateLayout), nil
	}
	d, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return "", domain.NewValidationError("completed_date", "completed_date must be in YYYY-MM-DD format", "datetime")
	}
	if d.After(today) {
		return "", domain.NewValidationError("completed_date", "completed_date cannot be in the future", "lte")
	}
	return d.Format(domain.DateLayout), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *trackingService) ownedHabit(ctx context.Context, ownerID, habitID string) (*domain.Habit, error) {
	habit, err := s.habits.FindByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.OwnerID != ownerID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *trackingService) auditTrack(ctx context.Context, recordID string, in ports.TrackHabitInput, status, reason string) {
	details := map[string]any{"habit_id": in.HabitID}
	if reason != "" {
		details["reason"] = reason
	}
	s.recorder.Record(ctx, audit.Event{
		Action:       audit.ActionCreate,
		ResourceType: "tracking_record",
		ResourceID:   recordID,
		UserID:       in.OwnerID,
		Status:       status,
		Details:      details,
	})
}
