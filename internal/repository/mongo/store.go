// Package mongo implements the catalog repositories on MongoDB.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/godfreymatagaro/eduability/internal/repository"
)

const (
	technologiesCollection = "technologies"
	reviewsCollection      = "reviews"
)

// Store is the MongoDB-backed repository.Store. Cascade deletes need a
// replica set for multi-document transactions.
type Store struct {
	client       *mongo.Client
	technologies *TechnologyRepository
	reviews      *ReviewRepository
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a store on db.
func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	techs := db.Collection(technologiesCollection)
	reviews := db.Collection(reviewsCollection)
	return &Store{
		client:       client,
		technologies: &TechnologyRepository{client: client, technologies: techs, reviews: reviews},
		reviews:      &ReviewRepository{reviews: reviews},
	}
}

func (s *Store) Technologies() repository.TechnologyRepository { return s.technologies }
func (s *Store) Reviews() repository.ReviewRepository          { return s.reviews }

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. It is
// idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.technologies.technologies.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "rating", Value: -1}}},
		{Keys: bson.D{{Key: "reviews_count", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create technology indexes: %w", err)
	}

	_, err = s.reviews.reviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "technology_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create review indexes: %w", err)
	}
	return nil
}
