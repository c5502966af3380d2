package ports

import (
	"context"

	"github.com/habittracker/habit-api/internal/core/domain"
)

// TrackHabitInput marks a habit completed on a date.
type TrackHabitInput struct {
	OwnerID string
	HabitID string
	// CompletedDate in YYYY-MM-DD; empty means today (UTC).
	CompletedDate string
	// Count of completions for the day; zero means 1.
	Count int
	Notes string
}

// TrackResult reports the record for the requested date. AlreadyTracked is
// true when the day had been tracked before and no new record was created.
type TrackResult struct {
	Record         *domain.TrackingRecord
	AlreadyTracked bool
}

// StatsInput selects the habit and trailing period for statistics.
type StatsInput struct {
	OwnerID string
	HabitID string
	// Period is "week", "month" or "year"; empty means "month".
	Period string
}

// TrackingService defines tracking and statistics use cases.
type TrackingService interface {
	Track(ctx context.Context, input TrackHabitInput) (*TrackResult, error)
	Stats(ctx context.Context, input StatsInput) (*domain.HabitStats, error)
}
