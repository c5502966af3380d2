package handler

import (
	"strings"
	"time"

	"github.com/habittracker/habit-api/internal/core/domain"
)

type createHabitRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100,safetext"`
	Description string `json:"description,omitempty" validate:"max=500,safetext"`
	Frequency   string `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	TargetCount int    `json:"target_count,omitempty" validate:"omitempty,gte=1,lte=100"`
}

func (r *createHabitRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

type updateHabitRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100,safetext"`
	Description *string `json:"description" validate:"omitempty,max=500,safetext"`
	Frequency   *string `json:"frequency" validate:"omitempty,oneof=daily weekly monthly"`
	TargetCount *int    `json:"target_count" validate:"omitempty,gte=1,lte=100"`
	IsActive    *bool   `json:"is_active"`
}

func (r *updateHabitRequest) normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	if r.Description != nil {
		trimmed := strings.TrimSpace(*r.Description)
		r.Description = &trimmed
	}
}

type habitResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Frequency   string    `json:"frequency"`
	TargetCount int       `json:"target_count,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type listHabitsResponse struct {
	Habits []habitResponse `json:"habits"`
	Total  int             `json:"total"`
}

type updateHabitResponse struct {
	Message string        `json:"message"`
	Habit   habitResponse `json:"habit"`
}

func toHabitResponse(h *domain.Habit) habitResponse {
	return habitResponse{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		Frequency:   string(h.Frequency),
		TargetCount: h.TargetCount,
		IsActive:    h.IsActive,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}
