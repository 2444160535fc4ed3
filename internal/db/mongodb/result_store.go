package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adamnnoli/monopoly/internal/game/models"
)

// ErrResultNotFound is returned when no archived game has the requested id
var ErrResultNotFound = errors.New("result not found")

// ResultStore handles database operations for finished games
type ResultStore struct {
	results *mongo.Collection
}

// NewResultStore creates a new ResultStore
func NewResultStore(db *mongo.Database, collection string) *ResultStore {
	return &ResultStore{
		results: db.Collection(collection),
	}
}

// EnsureIndexes creates the indexes List and winner lookups rely on
func (s *ResultStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.results.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "finishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "round", Value: -1}}},
		{Keys: bson.D{{Key: "winnerId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create result indexes: %w", err)
	}
	return nil
}

// Save inserts a finished game. Saving the same round twice is not an error.
func (s *ResultStore) Save(ctx context.Context, result models.GameResult) error {
	_, err := s.results.InsertOne(ctx, result)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", result.ResultID, err)
	}
	return nil
}

// ArchiveResult stores the result directly, for servers running without redis
func (s *ResultStore) ArchiveResult(ctx context.Context, result models.GameResult) error {
	return s.Save(ctx, result)
}

// Get finds the latest archived round of a game
func (s *ResultStore) Get(ctx context.Context, gameID string) (*models.GameResult, error) {
	var result models.GameResult
	opts := options.FindOne().SetSort(bson.D{{Key: "round", Value: -1}})
	err := s.results.FindOne(ctx, bson.M{"gameId": gameID}, opts).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &result, nil
}

// List returns the most recently finished games, newest first. The log is left
// out; use Get for the full record.
func (s *ResultStore) List(ctx context.Context, limit int64) ([]models.GameResult, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "finishedAt", Value: -1}}).
		SetProjection(bson.M{"log": 0})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.results.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer cursor.Close(ctx)

	results := []models.GameResult{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return results, nil
}
