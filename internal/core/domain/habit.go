package domain

import "time"

// Frequency is the cadence at which a habit is meant to be completed.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// IsValid reports whether f is one of the known frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Quotas bounding per-owner resource growth.
const (
	MaxHabitsPerUser           = 100
	MaxTrackingRecordsPerHabit = 10000
)

// Habit is the core aggregate. OwnerID is set at creation and immutable;
// every read and mutation is scoped to it.
type Habit struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Frequency   Frequency `json:"frequency"`
	TargetCount int       `json:"target_count,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
