package handler

import (
	"strings"
	"time"

	"github.com/habittracker/habit-api/internal/core/domain"
)

type trackHabitRequest struct {
	CompletedDate string `json:"completed_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Count         int    `json:"count,omitempty" validate:"omitempty,gte=1,lte=100"`
	Notes         string `json:"notes,omitempty" validate:"max=200,safetext"`
}

func (r *trackHabitRequest) normalize() {
	r.CompletedDate = strings.TrimSpace(r.CompletedDate)
	r.Notes = strings.TrimSpace(r.Notes)
}

type trackingRecordResponse struct {
	ID            string    `json:"id"`
	HabitID       string    `json:"habit_id"`
	CompletedDate string    `json:"completed_date"`
	Count         int       `json:"count"`
	Notes         string    `json:"notes,omitempty"`
	TrackedAt     time.Time `json:"tracked_at"`
}

type trackResponse struct {
	Message string                 `json:"message"`
	Record  trackingRecordResponse `json:"record"`
}

type statsBody struct {
	CompletedDays    int     `json:"completed_days"`
	ExpectedDays     int     `json:"expected_days"`
	CompletionRate   float64 `json:"completion_rate"`
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	TotalCompletions int     `json:"total_completions"`
}

type statsResponse struct {
	HabitID     string    `json:"habit_id"`
	HabitName   string    `json:"habit_name"`
	Period      string    `json:"period"`
	Stats       statsBody `json:"stats"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
}

func toTrackingRecordResponse(r *domain.TrackingRecord) trackingRecordResponse {
	return trackingRecordResponse{
		ID:            r.ID,
		HabitID:       r.HabitID,
		CompletedDate: r.CompletedDate,
		Count:         r.Count,
		Notes:         r.Notes,
		TrackedAt:     r.TrackedAt,
	}
}

func toStatsResponse(s *domain.HabitStats) statsResponse {
	return statsResponse{
		HabitID:   s.HabitID,
		HabitName: s.HabitName,
		Period:    s.Period,
		Stats: statsBody{
			CompletedDays:    s.CompletedDays,
			ExpectedDays:     s.ExpectedDays,
			CompletionRate:   s.CompletionRate,
			CurrentStreak:    s.CurrentStreak,
			LongestStreak:    s.LongestStreak,
			TotalCompletions: s.TotalCompletions,
		},
		PeriodStart: s.PeriodStart,
		PeriodEnd:   s.PeriodEnd,
	}
}
