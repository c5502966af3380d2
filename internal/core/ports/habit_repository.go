package ports

import (
	"context"

	"github.com/habittracker/habit-api/internal/core/domain"
)

// HabitRepository defines persistence operations for habits. Ownership is
// enforced by the service layer, so lookups are by id alone.
type HabitRepository interface {
	Create(ctx context.Context, habit *domain.Habit) (*domain.Habit, error)
	FindByID(ctx context.Context, id string) (*domain.Habit, error)
	// ListByOwner returns the owner's habits, newest first. When activeOnly
	// is set, inactive habits are filtered out.
	ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]*domain.Habit, error)
	Update(ctx context.Context, habit *domain.Habit) error
	Delete(ctx context.Context, id string) error
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}
