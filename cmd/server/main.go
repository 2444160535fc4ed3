package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/api"
	"github.com/adamnnoli/monopoly/internal/config"
	"github.com/adamnnoli/monopoly/internal/db/mongodb"
	"github.com/adamnnoli/monopoly/internal/db/redis"
	"github.com/adamnnoli/monopoly/internal/game/board"
	"github.com/adamnnoli/monopoly/internal/game/manager"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/websocket"
	"github.com/adamnnoli/monopoly/internal/queue"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var definition *models.GameDefinition
	if cfg.Game.BoardFile != "" {
		definition, err = board.LoadDefinitions(cfg.Game.BoardFile)
		if err != nil {
			sugar.Fatalf("Failed to load board file: %v", err)
		}
		sugar.Infof("Loaded board definition from %s", cfg.Game.BoardFile)
	}

	gameManager := manager.NewGameManager(ctx, sugar, manager.Options{
		Rules:           cfg.Game.Rules(),
		Definition:      definition,
		DiceSeed:        cfg.Game.DiceSeed,
		CleanupInterval: time.Hour,
	})
	sugar.Info("Game manager initialized")

	hub := websocket.NewHub(ctx, gameManager, sugar)
	go hub.Run()
	gameManager.AddSink(hub)
	sugar.Info("WebSocket hub is running")

	backends := api.Backends{}

	var store *mongodb.ResultStore
	if cfg.MongoDB.Enabled {
		mongoClient, err := mongodb.Connect(ctx, cfg.MongoDB.URI, sugar)
		if err != nil {
			sugar.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				sugar.Errorf("Failed to disconnect from MongoDB: %v", err)
			}
		}()

		store = mongodb.NewResultStore(mongoClient.Database(cfg.MongoDB.Database), cfg.MongoDB.ResultsColl)
		if err := store.EnsureIndexes(ctx); err != nil {
			sugar.Warnf("Failed to create result indexes: %v", err)
		}
		gameManager.SetArchiver(store)
		backends.MongoClient = mongoClient
		backends.Results = store
		sugar.Info("Result archive enabled")
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.Connect(ctx, redis.Options{
			Addr:     cfg.Redis.URI,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, sugar)
		if err != nil {
			sugar.Fatalf("Failed to connect to Redis: %v", err)
		}

		redisQueue := queue.NewRedisQueue(redisClient, logger)
		defer redisQueue.Close()
		redisQueue.SetCircuitBreaker(redis.NewCircuitBreaker(5, 30*time.Second))
		gameManager.AddSink(redisQueue)
		backends.RedisClient = redisClient
		backends.Feed = redisQueue
		sugar.Info("Redis log feed enabled")

		// With both backends, finished games go through the queue so a mongo
		// outage does not lose them
		if store != nil {
			gameManager.SetArchiver(redisQueue)

			worker := queue.NewWorker(redisQueue, store, logger)
			worker.SetGameExists(func(gameID string) bool {
				_, err := gameManager.GetGame(gameID)
				return err == nil
			})
			worker.Start()
			defer worker.Stop()
			sugar.Info("Archive worker started")
		}
	}

	server := api.NewServer(ctx, cfg, gameManager, hub, backends, sugar)

	go func() {
		if err := server.Start(); err != nil {
			sugar.Infof("HTTP server stopped: %v", err)
		}
	}()
	sugar.Infof("Server started on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Server forced to shutdown: %v", err)
	}

	sugar.Info("Server exited properly")
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
