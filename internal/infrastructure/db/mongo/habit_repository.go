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

const collectionHabits = "habits"

type HabitRepository struct {
	col *mongo.Collection
}

func NewHabitRepository(db *mongo.Database) *HabitRepository {
	return &HabitRepository{col: db.Collection(collectionHabits)}
}

type mongoHabit struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID     string             `bson:"owner_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Frequency   string             `bson:"frequency"`
	TargetCount int                `bson:"target_count,omitempty"`
	IsActive    bool               `bson:"is_active"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (m mongoHabit) toDomain() *domain.Habit {
	return &domain.Habit{
		ID:          m.ID.Hex(),
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Description: m.Description,
		Frequency:   domain.Frequency(m.Frequency),
		TargetCount: m.TargetCount,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// Create inserts a new habit document and returns it with the generated id.
func (r *HabitRepository) Create(ctx context.Context, h *domain.Habit) (*domain.Habit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoHabit{
		OwnerID:     h.OwnerID,
		Name:        h.Name,
		Description: h.Description,
		Frequency:   string(h.Frequency),
		TargetCount: h.TargetCount,
		IsActive:    h.IsActive,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}

	created := *h
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

// FindByID retrieves a habit by its id. Malformed ids map to not-found so
// callers never distinguish a bad id from a missing habit.
func (r *HabitRepository) FindByID(ctx context.Context, id string) (*domain.Habit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrHabitNotFound
	}

	var m mongoHabit
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

// ListByOwner returns the owner's habits, newest first.
func (r *HabitRepository) ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]*domain.Habit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"owner_id": ownerID}
	if activeOnly {
		filter["is_active"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	habits := make([]*domain.Habit, 0)
	for cur.Next(ctx) {
		var m mongoHabit
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		habits = append(habits, m.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return habits, nil
}

// Update replaces the mutable fields of an existing habit.
func (r *HabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(h.ID)
	if err != nil {
		return domain.ErrHabitNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":         h.Name,
		"description":  h.Description,
		"frequency":    string(h.Frequency),
		"target_count": h.TargetCount,
		"is_active":    h.IsActive,
		"updated_at":   h.UpdatedAt,
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

// Delete removes a habit document.
func (r *HabitRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrHabitNotFound
	}

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

// CountByOwner counts every habit of an owner, active or not.
func (r *HabitRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.col.CountDocuments(ctx, bson.M{"owner_id": ownerID})
}

// EnsureIndexes creates necessary indexes on the habits collection.
func (r *HabitRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "is_active", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
