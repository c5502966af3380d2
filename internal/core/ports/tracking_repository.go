package ports

import (
	"context"

	"github.com/habittracker/habit-api/internal/core/domain"
)

// TrackingRepository defines persistence for tracking records. A unique
// (habit_id, completed_date) index backs the one-record-per-day rule.
type TrackingRepository interface {
	// Insert persists a record. A (habit, date) collision returns
	// domain.ErrDuplicateTracking.
	Insert(ctx context.Context, record *domain.TrackingRecord) (*domain.TrackingRecord, error)
	FindByHabitAndDate(ctx context.Context, habitID, completedDate string) (*domain.TrackingRecord, error)
	// ListByHabit returns all records for a habit ordered by completed date
	// ascending.
	ListByHabit(ctx context.Context, habitID string) ([]*domain.TrackingRecord, error)
	CountByHabit(ctx context.Context, habitID string) (int64, error)
	// DeleteByHabit removes every record of a habit (cascade on habit delete).
	DeleteByHabit(ctx context.Context, habitID string) error
}
