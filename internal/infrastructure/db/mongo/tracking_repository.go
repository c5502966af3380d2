package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/habittracker/habit-api/internal/core/domain"
)

const collectionTracking = "tracking_records"

type TrackingRepository struct {
	col *mongo.Collection
}

func NewTrackingRepository(db *mongo.Database) *TrackingRepository {
	return &TrackingRepository{col: db.Collection(collectionTracking)}
}

type mongoTrackingRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	HabitID       string             `bson:"habit_id"`
	CompletedDate string             `bson:"completed_date"`
	Count         int                `bson:"count"`
	Notes         string             `bson:"notes,omitempty"`
	TrackedAt     time.Time          `bson:"tracked_at"`
}

func (m mongoTrackingRecord) toDomain() *domain.TrackingRecord {
	return &domain.TrackingRecord{
		ID:            m.ID.Hex(),
		HabitID:       m.HabitID,
		CompletedDate: m.CompletedDate,
		Count:         m.Count,
		Notes:         m.Notes,
		TrackedAt:     m.TrackedAt,
	}
}

// Insert persists a tracking record. The unique (habit_id, completed_date)
// index turns a same-day duplicate into domain.ErrDuplicateTracking.
func (r *TrackingRepository) Insert(ctx context.Context, rec *domain.TrackingRecord) (*domain.TrackingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoTrackingRecord{
		HabitID:       rec.HabitID,
		CompletedDate: rec.CompletedDate,
		Count:         rec.Count,
		Notes:         rec.Notes,
		TrackedAt:     rec.TrackedAt,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateTracking
		}
		return nil, err
	}

	created := *rec
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

// FindByHabitAndDate retrieves the record for one habit on one calendar day.
func (r *TrackingRepository) FindByHabitAndDate(ctx context.Context, habitID, completedDate string) (*domain.TrackingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoTrackingRecord
	err := r.col.FindOne(ctx, bson.M{"habit_id": habitID, "completed_date": completedDate}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTrackingNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

// ListByHabit returns every record of a habit ordered by completed date
// ascending. Dates are stored as YYYY-MM-DD strings, so the lexicographic
// sort is also chronological.
func (r *TrackingRepository) ListByHabit(ctx context.Context, habitID string) ([]*domain.TrackingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "completed_date", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"habit_id": habitID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	records := make([]*domain.TrackingRecord, 0)
	for cur.Next(ctx) {
		var m mongoTrackingRecord
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		records = append(records, m.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountByHabit counts the records accumulated by a habit.
func (r *TrackingRepository) CountByHabit(ctx context.Context, habitID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.col.CountDocuments(ctx, bson.M{"habit_id": habitID})
}

// DeleteByHabit removes every record of a habit.
func (r *TrackingRepository) DeleteByHabit(ctx context.Context, habitID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteMany(ctx, bson.M{"habit_id": habitID})
	return err
}

// EnsureIndexes creates necessary indexes on the tracking collection. The
// compound unique index is the authoritative guard against double-tracking.
func (r *TrackingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "habit_id", Value: 1}, {Key: "completed_date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
