package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Markers outlive the day they refer to so late requests for yesterday
// still hit the fast path.
const trackedTTL = 48 * time.Hour

// TrackedMarker caches (habit, date) pairs that already have a tracking
// record. Key format: tracked:<habit_id>:<completed_date>
type TrackedMarker struct {
	client *redis.Client
}

// NewTrackedMarker creates a TrackedMarker wrapping the given Redis client.
func NewTrackedMarker(client *redis.Client) *TrackedMarker {
	return &TrackedMarker{client: client}
}

// IsTracked reports whether a record for this habit and date was already
// written.
func (m *TrackedMarker) IsTracked(ctx context.Context, habitID, completedDate string) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(habitID, completedDate)).Result()
	if err != nil {
		return false, fmt.Errorf("tracked check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this habit has been tracked for the date (expires after
// trackedTTL).
func (m *TrackedMarker) Mark(ctx context.Context, habitID, completedDate string) error {
	return m.client.Set(ctx, m.key(habitID, completedDate), "1", trackedTTL).Err()
}

func (m *TrackedMarker) key(habitID, completedDate string) string {
	return fmt.Sprintf("tracked:%s:%s", habitID, completedDate)
}
