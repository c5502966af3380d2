package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/habittracker/habit-api/internal/api/metrics"
	"github.com/habittracker/habit-api/internal/audit"
	"github.com/habittracker/habit-api/internal/core/domain"
	"github.com/habittracker/habit-api/internal/core/ports"
)

// HabitService implements habit CRUD scoped to the authenticated owner.
type HabitService struct {
	habits   ports.HabitRepository
	tracking ports.TrackingRepository
	recorder audit.Recorder
	log      zerolog.Logger
}

func NewHabitService(habits ports.HabitRepository, tracking ports.TrackingRepository, recorder audit.Recorder, log zerolog.Logger) *HabitService {
	return &HabitService{
		habits:   habits,
		tracking: tracking,
		recorder: recorder,
		log:      log,
	}
}

// Create adds a habit for the owner, enforcing the per-owner quota.
func (s *HabitService) Create(ctx context.Context, input ports.CreateHabitInput) (*domain.Habit, error) {
	frequency := domain.Frequency(input.Frequency)
	if frequency == "" {
		frequency = domain.FrequencyDaily
	}
	if !frequency.IsValid() {
		return nil, domain.NewValidationError("frequency", "frequency must be one of: daily weekly monthly", "oneof")
	}

	targetCount := input.TargetCount
	if targetCount == 0 {
		targetCount = 1
	}

	count, err := s.habits.CountByOwner(ctx, input.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("create habit: count: %w", err)
	}
	if count >= domain.MaxHabitsPerUser {
		s.auditHabit(ctx, audit.ActionCreate, "", input.OwnerID, audit.StatusFailure, map[string]any{"reason": "quota_exceeded"})
		return nil, &domain.QuotaError{Resource: "habits", Limit: domain.MaxHabitsPerUser}
	}

	now := time.Now().UTC()
	habit := &domain.Habit{
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		Description: input.Description,
		Frequency:   frequency,
		TargetCount: targetCount,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.habits.Create(ctx, habit)
	if err != nil {
		s.auditHabit(ctx, audit.ActionCreate, "", input.OwnerID, audit.StatusFailure, nil)
		return nil, fmt.Errorf("create habit: %w", err)
	}

	metrics.HabitsCreatedTotal.WithLabelValues(string(created.Frequency)).Inc()
	s.auditHabit(ctx, audit.ActionCreate, created.ID, input.OwnerID, audit.StatusSuccess, map[string]any{"name": created.Name})
	s.log.Info().Str("habit_id", created.ID).Str("owner_id", input.OwnerID).Msg("habit created")

	return created, nil
}

// Get returns one of the owner's habits.
func (s *HabitService) Get(ctx context.Context, ownerID, habitID string) (*domain.Habit, error) {
	return s.ownedHabit(ctx, ownerID, habitID)
}

// List returns the owner's habits.
func (s *HabitService) List(ctx context.Context, ownerID string, activeOnly bool) ([]*domain.Habit, error) {
	habits, err := s.habits.ListByOwner(ctx, ownerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// Update applies a partial update to one of the owner's habits.
func (s *HabitService) Update(ctx context.Context, ownerID, habitID string, input ports.UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.ownedHabit(ctx, ownerID, habitID)
	if err != nil {
		s.auditHabit(ctx, audit.ActionUpdate, habitID, ownerID, audit.StatusFailure, map[string]any{"reason": "not_found"})
		return nil, err
	}

	changed := make([]string, 0, 5)
	if input.Name != nil {
		habit.Name = *input.Name
		changed = append(changed, "name")
	}
	if input.Description != nil {
		habit.Description = *input.Description
		changed = append(changed, "description")
	}
	if input.Frequency != nil {
		frequency := domain.Frequency(*input.Frequency)
		if !frequency.IsValid() {
			return nil, domain.NewValidationError("frequency", "frequency must be one of: daily weekly monthly", "oneof")
		}
		habit.Frequency = frequency
		changed = append(changed, "frequency")
	}
	if input.TargetCount != nil {
		habit.TargetCount = *input.TargetCount
		changed = append(changed, "target_count")
	}
	if input.IsActive != nil {
		habit.IsActive = *input.IsActive
		changed = append(changed, "is_active")
	}
	habit.UpdatedAt = time.Now().UTC()

	if err := s.habits.Update(ctx, habit); err != nil {
		s.auditHabit(ctx, audit.ActionUpdate, habitID, ownerID, audit.StatusFailure, nil)
		return nil, fmt.Errorf("update habit: %w", err)
	}

	s.auditHabit(ctx, audit.ActionUpdate, habit.ID, ownerID, audit.StatusSuccess, map[string]any{"fields": changed})
	s.log.Info().Str("habit_id", habit.ID).Strs("fields", changed).Msg("habit updated")

	return habit, nil
}

// Delete removes one of the owner's habits and its tracking records.
func (s *HabitService) Delete(ctx context.Context, ownerID, habitID string) error {
	habit, err := s.ownedHabit(ctx, ownerID, habitID)
	if err != nil {
		s.auditHabit(ctx, audit.ActionDelete, habitID, ownerID, audit.StatusFailure, map[string]any{"reason": "not_found"})
		return err
	}

	if err := s.habits.Delete(ctx, habit.ID); err != nil {
		s.auditHabit(ctx, audit.ActionDelete, habit.ID, ownerID, audit.StatusFailure, nil)
		return fmt.Errorf("delete habit: %w", err)
	}

	// Cascade. The habit itself is gone, so a failure here only leaves
	// unreachable records behind; log and carry on.
	if err := s.tracking.DeleteByHabit(ctx, habit.ID); err != nil {
		s.log.Warn().Err(err).Str("habit_id", habit.ID).Msg("failed to cascade tracking records")
	}

	s.auditHabit(ctx, audit.ActionDelete, habit.ID, ownerID, audit.StatusSuccess, nil)
	s.log.Info().Str("habit_id", habit.ID).Str("owner_id", ownerID).Msg("habit deleted")

	return nil
}

// ownedHabit loads a habit and verifies ownership. A habit owned by someone
// else is reported as not found so callers cannot probe for existence.
func (s *HabitService) ownedHabit(ctx context.Context, ownerID, habitID string) (*domain.Habit, error) {
	habit, err := s.habits.FindByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.OwnerID != ownerID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) auditHabit(ctx context.Context, action audit.Action, habitID, ownerID, status string, details map[string]any) {
	s.recorder.Record(ctx, audit.Event{
		Action:       action,
		ResourceType: "habit",
		ResourceID:   habitID,
		UserID:       ownerID,
		Status:       status,
		Details:      details,
	})
}
