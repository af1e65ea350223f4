package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	eventsCollection         = "events"
	responseConfigCollection = "auto_reply_config"
)

// ErrResponseConfigNotFound signals that no auto-reply configuration document
// exists yet. Callers treat it as "disabled", not as a failure.
var ErrResponseConfigNotFound = errors.New("response config not found")

// Repository gives access to the event and configuration collections.
type Repository struct {
	client *mongo.Client
	dbName string
}

// New connects to MongoDB, verifies the connection and ensures indexes.
func New(ctx context.Context, uri string, dbName string) (*Repository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &Repository{client: client, dbName: dbName}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "event_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection(eventsCollection).Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("ensure event_id index: %w", err)
	}
	return nil
}

func (r *Repository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
