package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/poketrade-exchange/internal/domain/activity"
)

const (
	// ActivityCollectionName is the name of the activity collection in MongoDB
	ActivityCollectionName = "activity_entries"

	duplicateKeyCode = 11000
)

// ActivityRepository implements the activity.Repository interface for MongoDB
type ActivityRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewActivityRepository creates a new MongoDB activity repository
func NewActivityRepository(logger *slog.Logger, db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{
		collection: db.Collection(ActivityCollectionName),
		logger:     logger,
	}
}

// EnsureIndexes creates the unique (event_id, user_id, leg) index that makes
// Record idempotent, plus the index backing per-user history reads.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "leg", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("event_user_leg_unique"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "occurred_at", Value: -1}},
			Options: options.Index().SetName("user_occurred_at"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create activity indexes", "error", err)
		return fmt.Errorf("failed to create activity indexes: %w", err)
	}
	return nil
}

// Record inserts the entries and reports how many were new. Entries that
// collide with an already recorded (event_id, user_id, leg) are skipped, so
// redelivered events do not duplicate history.
func (r *ActivityRepository) Record(ctx context.Context, entries []*activity.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e)
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(entries), nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) && bulkErr.WriteConcernError == nil {
		duplicates := 0
		for _, we := range bulkErr.WriteErrors {
			if we.Code != duplicateKeyCode {
				r.logger.Error("Failed to record activity entry",
					"event_id", entries[0].EventID.String(),
					"index", we.Index,
					"error", we.Message)
				return len(entries) - len(bulkErr.WriteErrors), fmt.Errorf("failed to record activity entries: %w", err)
			}
			duplicates++
		}
		r.logger.Debug("Skipped already recorded activity entries",
			"event_id", entries[0].EventID.String(),
			"duplicates", duplicates)
		return len(entries) - duplicates, nil
	}

	r.logger.Error("Failed to record activity entries",
		"event_id", entries[0].EventID.String(),
		"error", err)
	return 0, fmt.Errorf("failed to record activity entries: %w", err)
}

// ListByUser retrieves paginated entries for a user, newest first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*activity.Entry, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "leg", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get activity entries",
			"user_id", userID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get activity entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*activity.Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode activity entries",
			"user_id", userID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode activity entries: %w", err)
	}

	return entries, nil
}

// CountByUser counts the total number of entries for a user
func (r *ActivityRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error("Failed to count activity entries",
			"user_id", userID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count activity entries: %w", err)
	}

	return count, nil
}

// CountForEvent counts the entries already recorded for an event
func (r *ActivityRepository) CountForEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"event_id": eventID})
	if err != nil {
		r.logger.Error("Failed to count activity entries for event",
			"event_id", eventID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count activity entries for event: %w", err)
	}

	return count, nil
}
