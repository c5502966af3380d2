package domain

import "time"

// DateLayout is the wire and storage format for completion dates.
const DateLayout = "2006-01-02"

// TrackingRecord marks one completion of a habit on a calendar date.
// At most one record exists per (habit, date) pair.
type TrackingRecord struct {
	ID            string    `json:"id"`
	HabitID       string    `json:"habit_id"`
	CompletedDate string    `json:"completed_date"`
	Count         int       `json:"count"`
	Notes         string    `json:"notes,omitempty"`
	TrackedAt     time.Time `json:"tracked_at"`
}

// HabitStats summarizes completions of one habit over a trailing period.
type HabitStats struct {
	HabitID          string  `json:"habit_id"`
	HabitName        string  `json:"habit_name"`
	Period           string  `json:"period"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	CompletedDays    int     `json:"completed_days"`
	ExpectedDays     int     `json:"expected_days"`
	CompletionRate   float64 `json:"completion_rate"`
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	TotalCompletions int     `json:"total_completions"`
}
