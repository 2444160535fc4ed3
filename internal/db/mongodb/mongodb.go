package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	redisdb "github.com/adamnnoli/monopoly/internal/db/redis"
)

// Connect establishes a connection to MongoDB with retry capabilities
func Connect(ctx context.Context, uri string, log *zap.SugaredLogger) (*mongo.Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMinPoolSize(1).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	const maxRetries = 5
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var client *mongo.Client
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err = mongo.Connect(connCtx, clientOptions)
		cancel()

		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx, readpref.Primary())
			pingCancel()

			if err == nil {
				log.Infow("Successfully connected to MongoDB", "attempt", attempt+1)
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}

		wait := redisdb.Backoff(attempt)
		log.Warnw("Failed to connect to MongoDB, retrying",
			"attempt", attempt+1,
			"maxRetries", maxRetries,
			"backoff", wait,
			"error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while connecting to MongoDB: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", maxRetries, err)
}

// GetCollection returns a reference to a MongoDB collection
func GetCollection(client *mongo.Client, dbName, collName string) *mongo.Collection {
	return client.Database(dbName).Collection(collName)
}
