package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kdialloh/waresponder/internal/domain/models"
)

// ResponseConfigStore defines reads and writes for the auto-reply settings.
type ResponseConfigStore interface {
	FetchResponseConfig(ctx context.Context) (*models.ResponseConfig, error)
	UpsertResponseConfig(ctx context.Context, cfg models.ResponseConfig) error
}

// FetchResponseConfig loads the single auto-reply configuration document.
// Returns ErrResponseConfigNotFound when no document exists.
func (r *Repository) FetchResponseConfig(ctx context.Context) (*models.ResponseConfig, error) {
	var cfg models.ResponseConfig
	err := r.collection(responseConfigCollection).FindOne(ctx, bson.D{}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrResponseConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch response config: %w", err)
	}
	return &cfg, nil
}

// UpsertResponseConfig replaces the configuration document, creating it when
// absent.
func (r *Repository) UpsertResponseConfig(ctx context.Context, cfg models.ResponseConfig) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection(responseConfigCollection).ReplaceOne(ctx, bson.D{}, cfg, opts); err != nil {
		return fmt.Errorf("upsert response config: %w", err)
	}
	return nil
}
