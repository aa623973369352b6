package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoConfig holds the document store connection settings.
type MongoConfig struct {
	URI                    string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017/?replicaSet=rs0"`
	Database               string        `env:"MONGO_DB" envDefault:"eduability"`
	MaxPoolSize            uint64        `env:"MONGO_MAX_POOL_SIZE" envDefault:"50"`
	ServerSelectionTimeout time.Duration `env:"MONGO_SERVER_SELECTION_TIMEOUT" envDefault:"5s"`
}

// NewMongoClient connects to MongoDB, verifies the primary is reachable and
// returns the client plus the configured database handle.
func NewMongoClient(ctx context.Context, cfg MongoConfig, logger *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetPoolMonitor(MongoPoolMonitor(cfg.Database))

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("create mongo client: %w", err)
	}

	err = connectWithRetry(ctx, "mongo", logger, retryBackoff, func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, client.Database(cfg.Database), nil
}
