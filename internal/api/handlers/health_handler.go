package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Version is reported by the health check
const Version = "1.0.0"

// GameCounter reports how many sessions are running
type GameCounter interface {
	ActiveGameCount() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	mongoClient *mongo.Client
	redisClient *redis.Client
	games       GameCounter
	logger      *zap.SugaredLogger
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"responseTimeMs"`
	Error        string `json:"error,omitempty"`
}

// SystemHealth represents the health of the entire system
type SystemHealth struct {
	Status      string                  `json:"status"`
	Timestamp   string                  `json:"timestamp"`
	Version     string                  `json:"version"`
	ActiveGames int                     `json:"activeGames"`
	Components  map[string]HealthStatus `json:"components"`
}

// NewHealthHandler creates a new health handler. Either client may be nil
// when that backend is disabled.
func NewHealthHandler(mongoClient *mongo.Client, redisClient *redis.Client, games GameCounter, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		redisClient: redisClient,
		games:       games,
		logger:      logger,
	}
}

// Check performs a health check of all configured components
func (h *HealthHandler) Check(c echo.Context) error {
	systemHealth := SystemHealth{
		Status:      "healthy",
		Timestamp:   time.Now().Format(time.RFC3339),
		Version:     Version,
		ActiveGames: h.games.ActiveGameCount(),
		Components:  map[string]HealthStatus{"api": {Status: "healthy"}},
	}

	checks := map[string]func(context.Context) error{}
	if h.mongoClient != nil {
		checks["mongodb"] = func(ctx context.Context) error { return h.mongoClient.Ping(ctx, readpref.Primary()) }
	} else {
		systemHealth.Components["mongodb"] = HealthStatus{Status: "disabled"}
	}
	if h.redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return h.redisClient.Ping(ctx).Err() }
	} else {
		systemHealth.Components["redis"] = HealthStatus{Status: "disabled"}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check func(context.Context) error) {
			defer wg.Done()
			status := h.ping(name, check)
			mu.Lock()
			systemHealth.Components[name] = status
			if status.Status != "healthy" {
				systemHealth.Status = "degraded"
			}
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	statusCode := http.StatusOK
	if systemHealth.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, systemHealth)
}

func (h *HealthHandler) ping(name string, check func(context.Context) error) HealthStatus {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := check(ctx)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		h.logger.Errorw("Health check failed", "component", name, "error", err)
		return HealthStatus{
			Status:       "unhealthy",
			ResponseTime: elapsed,
			Error:        err.Error(),
		}
	}
	return HealthStatus{
		Status:       "healthy",
		ResponseTime: elapsed,
	}
}
