package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	redisdb "github.com/adamnnoli/monopoly/internal/db/redis"
	"github.com/adamnnoli/monopoly/internal/game/models"
)

// MessageType defines the type of message in the queue
type MessageType string

const (
	// GameFinished carries the result of a game that reached GameOver
	GameFinished MessageType = "game_finished"

	// FinishedQueue holds GameFinished messages until the worker archives them
	FinishedQueue = "games:finished"
)

// ErrQueueEmpty is returned by DequeueMessage when nothing is waiting
var ErrQueueEmpty = errors.New("queue is empty")

// QueueMessage represents a message in the queue
type QueueMessage struct {
	Type      MessageType        `json:"type"`
	GameID    string             `json:"gameId"`
	Result    *models.GameResult `json:"result,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Attempts  int                `json:"attempts"`
}

// FeedEntry is one log entry as stored in a game's redis feed
type FeedEntry struct {
	Seq    int64  `json:"seq"`
	GameID string `json:"gameId"`
	models.LogEntry
	Timestamp time.Time `json:"timestamp"`
}

// RedisQueue keeps each game's log feed in redis and queues finished games for archiving
type RedisQueue struct {
	client  *redis.Client
	logger  *zap.Logger
	breaker *redisdb.CircuitBreaker
}

// NewRedisQueue wraps an established redis client
func NewRedisQueue(client *redis.Client, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		logger: logger,
	}
}

// SetCircuitBreaker makes Publish fail fast while redis is unreachable
func (q *RedisQueue) SetCircuitBreaker(breaker *redisdb.CircuitBreaker) {
	q.breaker = breaker
}

// Close closes the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// LogKey is the list holding a game's feed
func LogKey(gameID string) string { return fmt.Sprintf("game:%s:log", gameID) }

// EventsChannel is the pub/sub channel live batches are published on
func EventsChannel(gameID string) string { return fmt.Sprintf("game:%s:events", gameID) }

func seqKey(gameID string) string { return fmt.Sprintf("game:%s:seq", gameID) }

// Publish appends a command's entries to the game's feed and announces the
// batch to subscribers
func (q *RedisQueue) Publish(ctx context.Context, gameID string, entries []models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if q.breaker != nil {
		return q.breaker.Do(func() error { return q.publish(ctx, gameID, entries) })
	}
	return q.publish(ctx, gameID, entries)
}

func (q *RedisQueue) publish(ctx context.Context, gameID string, entries []models.LogEntry) error {
	last, err := q.client.IncrBy(ctx, seqKey(gameID), int64(len(entries))).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve sequence numbers: %w", err)
	}

	now := time.Now()
	batch := make([]FeedEntry, len(entries))
	values := make([]interface{}, len(entries))
	for i, entry := range entries {
		batch[i] = FeedEntry{
			Seq:       last - int64(len(entries)) + int64(i) + 1,
			GameID:    gameID,
			LogEntry:  entry,
			Timestamp: now,
		}
		data, err := json.Marshal(batch[i])
		if err != nil {
			return fmt.Errorf("failed to marshal log entry: %w", err)
		}
		values[i] = data
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal log batch: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, LogKey(gameID), values...)
		pipe.Publish(ctx, EventsChannel(gameID), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append log entries: %w", err)
	}

	q.logger.Debug("Log entries published",
		zap.String("gameId", gameID),
		zap.Int("count", len(entries)),
		zap.Int64("lastSeq", last))
	return nil
}

// Replay returns every stored entry of a game in order
func (q *RedisQueue) Replay(ctx context.Context, gameID string) ([]FeedEntry, error) {
	raw, err := q.client.LRange(ctx, LogKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read log feed: %w", err)
	}

	entries := make([]FeedEntry, 0, len(raw))
	for _, item := range raw {
		var entry FeedEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Subscribe listens for live batches of one game. Decode payloads with DecodeBatch.
func (q *RedisQueue) Subscribe(ctx context.Context, gameID string) *redis.PubSub {
	return q.client.Subscribe(ctx, EventsChannel(gameID))
}

// DecodeBatch parses a pub/sub payload produced by Publish
func DecodeBatch(payload string) ([]FeedEntry, error) {
	var batch []FeedEntry
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal log batch: %w", err)
	}
	return batch, nil
}

// ClearGameLog deletes a game's feed
func (q *RedisQueue) ClearGameLog(ctx context.Context, gameID string) error {
	return q.client.Del(ctx, LogKey(gameID), seqKey(gameID)).Err()
}

// ResetLog drops the feed of a restarted game so the new game starts at seq 1
func (q *RedisQueue) ResetLog(ctx context.Context, gameID string) error {
	if err := q.ClearGameLog(ctx, gameID); err != nil {
		return fmt.Errorf("failed to reset log feed: %w", err)
	}
	q.logger.Info("Log feed reset", zap.String("gameId", gameID))
	return nil
}

// ArchiveResult queues a finished game for the worker to store
func (q *RedisQueue) ArchiveResult(ctx context.Context, result models.GameResult) error {
	msg := QueueMessage{
		Type:      GameFinished,
		GameID:    result.GameID,
		Result:    &result,
		Timestamp: time.Now(),
		Attempts:  0,
	}

	return q.enqueueMessage(ctx, FinishedQueue, msg)
}

// enqueueMessage adds a message to the specified queue
func (q *RedisQueue) enqueueMessage(ctx context.Context, queueName string, msg QueueMessage) error {
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = q.client.RPush(ctx, queueName, msgJSON).Err()
	if err != nil {
		return fmt.Errorf("failed to push message to queue: %w", err)
	}

	q.logger.Info("Message enqueued",
		zap.String("queue", queueName),
		zap.String("type", string(msg.Type)),
		zap.String("gameId", msg.GameID))

	return nil
}

// DequeueMessage retrieves and removes a message from the specified queue
func (q *RedisQueue) DequeueMessage(ctx context.Context, queueName string) (*QueueMessage, error) {
	// LPOP rather than BLPOP so the worker never blocks past shutdown
	result, err := q.client.LPop(ctx, queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to pop message from queue: %w", err)
	}

	var msg QueueMessage
	if err := json.Unmarshal([]byte(result), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	q.logger.Debug("Message dequeued",
		zap.String("queue", queueName),
		zap.String("type", string(msg.Type)),
		zap.String("gameId", msg.GameID))

	return &msg, nil
}

// MoveToDeadLetterQueue moves a failed message to a dead letter queue
func (q *RedisQueue) MoveToDeadLetterQueue(ctx context.Context, queueName string, msg *QueueMessage) error {
	msg.Attempts++

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	deadLetterQueue := DeadLetterQueue(queueName)
	if err := q.client.RPush(ctx, deadLetterQueue, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to push message to dead letter queue: %w", err)
	}

	q.logger.Warn("Message moved to dead letter queue",
		zap.String("queue", queueName),
		zap.String("deadLetterQueue", deadLetterQueue),
		zap.String("type", string(msg.Type)),
		zap.String("gameId", msg.GameID),
		zap.Int("attempts", msg.Attempts))

	return nil
}

// DeadLetterQueue names the dead letter queue of queueName
func DeadLetterQueue(queueName string) string {
	return queueName + ":dead"
}

// RetryMessage puts a message back into the queue for retry
func (q *RedisQueue) RetryMessage(ctx context.Context, queueName string, msg *QueueMessage) error {
	msg.Attempts++

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.client.RPush(ctx, queueName, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to push message to queue for retry: %w", err)
	}

	q.logger.Info("Message requeued for retry",
		zap.String("queue", queueName),
		zap.String("type", string(msg.Type)),
		zap.String("gameId", msg.GameID),
		zap.Int("attempts", msg.Attempts))

	return nil
}

// GetQueueLength returns the number of messages in the specified queue
func (q *RedisQueue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}
