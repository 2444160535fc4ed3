package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/game/models"
)

// MessageHandler is a function that processes a queue message
type MessageHandler func(ctx context.Context, msg *QueueMessage) error

// ResultSaver persists finished games
type ResultSaver interface {
	Save(ctx context.Context, result models.GameResult) error
}

// errUnhandled marks messages that no retry can fix
var errUnhandled = errors.New("no handler for message type")

// Worker archives finished games from the queue and prunes feeds of games that
// are gone
type Worker struct {
	queue        *RedisQueue
	saver        ResultSaver
	logger       *zap.Logger
	handlers     map[MessageType]MessageHandler
	maxAttempts  int
	pollInterval time.Duration
	gameExists   func(gameID string) bool
	shutdownChan chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorker creates a new queue worker
func NewWorker(queue *RedisQueue, saver ResultSaver, logger *zap.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	worker := &Worker{
		queue:        queue,
		saver:        saver,
		logger:       logger,
		handlers:     make(map[MessageType]MessageHandler),
		maxAttempts:  3,
		pollInterval: time.Second,
		shutdownChan: make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}

	worker.registerDefaultHandlers()

	return worker
}

// registerDefaultHandlers sets up the default message handlers
func (w *Worker) registerDefaultHandlers() {
	w.RegisterHandler(GameFinished, func(ctx context.Context, msg *QueueMessage) error {
		if msg.Result == nil {
			return fmt.Errorf("%w: game %s finished without a result", errUnhandled, msg.GameID)
		}

		w.logger.Info("Archiving finished game",
			zap.String("gameId", msg.GameID),
			zap.String("winner", msg.Result.WinnerName),
			zap.Int("logEntries", len(msg.Result.Log)))

		if err := w.saver.Save(ctx, *msg.Result); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		return nil
	})
}

// RegisterHandler registers a handler for a specific message type
func (w *Worker) RegisterHandler(msgType MessageType, handler MessageHandler) {
	w.handlers[msgType] = handler
}

// SetMaxAttempts sets the maximum number of retry attempts
func (w *Worker) SetMaxAttempts(maxAttempts int) {
	w.maxAttempts = maxAttempts
}

// SetGameExists lets the periodic cleanup tell live games from dead ones
func (w *Worker) SetGameExists(exists func(gameID string) bool) {
	w.gameExists = exists
}

// Start begins processing messages from the queue
func (w *Worker) Start() {
	go w.processMessages()
	go w.runPeriodicCleanup()
}

// Stop stops the worker
func (w *Worker) Stop() {
	w.cancel()
	close(w.shutdownChan)
}

// processMessages continuously drains the finished-games queue
func (w *Worker) processMessages() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdownChan:
			w.logger.Info("Worker shutting down")
			return
		case <-ticker.C:
			if _, err := w.ProcessPending(w.ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("Failed to process queue", zap.Error(err))
			}
		}
	}
}

// ProcessPending handles every message waiting in the finished-games queue
// once. Failed messages are retried later or dead-lettered after maxAttempts.
func (w *Worker) ProcessPending(ctx context.Context) (int, error) {
	length, err := w.queue.GetQueueLength(ctx, FinishedQueue)
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}

	processed := 0
	// Only the messages present now; retries pushed during this pass wait for the next one
	for i := int64(0); i < length; i++ {
		msg, err := w.queue.DequeueMessage(ctx, FinishedQueue)
		if errors.Is(err, ErrQueueEmpty) {
			break
		}
		if err != nil {
			return processed, err
		}

		if err := w.processMessage(ctx, msg); err != nil {
			w.handleFailure(ctx, msg, err)
			continue
		}
		processed++
	}
	return processed, nil
}

func (w *Worker) processMessage(ctx context.Context, msg *QueueMessage) error {
	handler, ok := w.handlers[msg.Type]
	if !ok {
		return fmt.Errorf("%w: %s", errUnhandled, msg.Type)
	}
	return handler(ctx, msg)
}

func (w *Worker) handleFailure(ctx context.Context, msg *QueueMessage, cause error) {
	w.logger.Error("Failed to process message",
		zap.String("type", string(msg.Type)),
		zap.String("gameId", msg.GameID),
		zap.Error(cause))

	var err error
	if errors.Is(cause, errUnhandled) || msg.Attempts+1 >= w.maxAttempts {
		err = w.queue.MoveToDeadLetterQueue(ctx, FinishedQueue, msg)
	} else {
		err = w.queue.RetryMessage(ctx, FinishedQueue, msg)
	}
	if err != nil {
		w.logger.Error("Failed to requeue message",
			zap.String("gameId", msg.GameID),
			zap.Error(err))
	}
}

// runPeriodicCleanup periodically clears feeds of games the server no longer holds
func (w *Worker) runPeriodicCleanup() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdownChan:
			w.logger.Info("Cleanup task shutting down")
			return
		case <-ticker.C:
			if _, err := w.CleanupStaleLogs(w.ctx); err != nil {
				w.logger.Error("Failed to clean up stale logs", zap.Error(err))
			}
		}
	}
}

// CleanupStaleLogs deletes the feed of every game gameExists does not know
func (w *Worker) CleanupStaleLogs(ctx context.Context) (int, error) {
	if w.gameExists == nil {
		return 0, nil
	}

	keys, err := w.queue.client.Keys(ctx, "game:*:log").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get log keys: %w", err)
	}

	cleared := 0
	for _, key := range keys {
		parts := strings.Split(key, ":")
		if len(parts) != 3 {
			continue
		}
		gameID := parts[1]
		if w.gameExists(gameID) {
			continue
		}

		if err := w.queue.ClearGameLog(ctx, gameID); err != nil {
			return cleared, err
		}
		cleared++
		w.logger.Info("Cleared stale log feed", zap.String("gameId", gameID))
	}
	return cleared, nil
}
