package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/adamnnoli/monopoly/internal/game/models"
)

func TestResultStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	finished := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewResultStore(mt.DB, "results")

		err := store.Save(ctx, models.GameResult{ResultID: "g1-1", GameID: "g1", Round: 1, WinnerName: "Bob", FinishedAt: finished})
		assert.NoError(t, err)
	})

	mt.Run("save twice is not an error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		store := NewResultStore(mt.DB, "results")

		assert.NoError(t, store.ArchiveResult(ctx, models.GameResult{ResultID: "g1-1", GameID: "g1"}))
	})

	mt.Run("save failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
		}))
		store := NewResultStore(mt.DB, "results")

		assert.Error(t, store.Save(ctx, models.GameResult{ResultID: "g1-1", GameID: "g1"}))
	})

	mt.Run("get", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + ".results"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "g1-2"},
			{Key: "gameId", Value: "g1"},
			{Key: "round", Value: 2},
			{Key: "winnerName", Value: "Bob"},
			{Key: "finishedAt", Value: finished},
		}))
		store := NewResultStore(mt.DB, "results")

		result, err := store.Get(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "g1", result.GameID)
		assert.Equal(t, "g1-2", result.ResultID)
		assert.Equal(t, 2, result.Round)
		assert.Equal(t, "Bob", result.WinnerName)
		assert.True(t, finished.Equal(result.FinishedAt))
	})

	mt.Run("get missing", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + ".results"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		store := NewResultStore(mt.DB, "results")

		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrResultNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + ".results"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "g2-1"}, {Key: "gameId", Value: "g2"}, {Key: "winnerName", Value: "Cara"}},
			bson.D{{Key: "_id", Value: "g1-1"}, {Key: "gameId", Value: "g1"}, {Key: "winnerName", Value: "Bob"}},
		))
		store := NewResultStore(mt.DB, "results")

		results, err := store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "g2", results[0].GameID)
		assert.Equal(t, "Bob", results[1].WinnerName)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewResultStore(mt.DB, "results")

		assert.NoError(t, store.EnsureIndexes(ctx))
	})
}
