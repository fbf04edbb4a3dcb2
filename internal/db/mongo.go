package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"shoplist-go/internal/config"
	"shoplist-go/pkg/logger"
)

const defaultMongoConnectTimeout = 10 * time.Second

// NewMongo connects to cfg.URI and returns the configured database.
func NewMongo(ctx context.Context, cfg config.MongoConfig, log logger.Logger) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = defaultMongoConnectTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info("db: connecting to mongo", "database", cfg.Database)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Info("db: mongo connected")
	return client, client.Database(cfg.Database), nil
}
