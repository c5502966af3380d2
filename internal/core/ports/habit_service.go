package ports

import (
	"context"

	"github.com/habittracker/habit-api/internal/core/domain"
)

// CreateHabitInput carries all data needed to create a habit.
type CreateHabitInput struct {
	OwnerID     string
	Name        string
	Description string
	Frequency   string
	TargetCount int
}

// UpdateHabitInput holds a partial update; nil fields are left unchanged.
type UpdateHabitInput struct {
	Name        *string
	Description *string
	Frequency   *string
	TargetCount *int
	IsActive    *bool
}

// HabitService defines use-case operations for habits. Every operation is
// scoped to the authenticated owner; a habit belonging to someone else is
// indistinguishable from a missing one.
type HabitService interface {
	Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error)
	Get(ctx context.Context, ownerID, habitID string) (*domain.Habit, error)
	List(ctx context.Context, ownerID string, activeOnly bool) ([]*domain.Habit, error)
	Update(ctx context.Context, ownerID, habitID string, input UpdateHabitInput) (*domain.Habit, error)
	Delete(ctx context.Context, ownerID, habitID string) error
}
