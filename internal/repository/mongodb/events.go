package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kdialloh/waresponder/internal/domain/models"
)

// EventStore defines the persistence operations for normalized webhook events.
type EventStore interface {
	InsertEvent(ctx context.Context, event models.InboundEvent) error
	CountByKindSince(ctx context.Context, since time.Time) ([]models.KindCount, error)
}

// InsertEvent stores one normalized event record.
func (r *Repository) InsertEvent(ctx context.Context, event models.InboundEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection(eventsCollection).InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.EventID, err)
	}
	return nil
}

// CountByKindSince aggregates event counts grouped by kind for records created
// at or after the given instant.
func (r *Repository) CountByKindSince(ctx context.Context, since time.Time) ([]models.KindCount, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "created_at", Value: bson.D{{Key: "$gte", Value: since}}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$kind"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection(eventsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate events by kind: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []models.KindCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("decode kind counts: %w", err)
	}
	return counts, nil
}
