package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/api/handlers"
	"github.com/adamnnoli/monopoly/internal/config"
	"github.com/adamnnoli/monopoly/internal/game/manager"
	"github.com/adamnnoli/monopoly/internal/game/websocket"
)

// CustomValidator is the request validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// RequestMetrics tracks metrics for API requests
type RequestMetrics struct {
	RequestCount map[string]int     `json:"requestCount"`
	DurationSum  map[string]float64 `json:"durationSum"`
	GameActions  map[string]int     `json:"gameActions"`
	mutex        sync.RWMutex
}

// Backends are the optional stores the bridge reads from. Nil fields mean the
// backend is disabled.
type Backends struct {
	MongoClient *mongo.Client
	RedisClient *redis.Client
	Feed        handlers.LogReplayer
	Results     handlers.ResultReader
}

// Server represents the API server
type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	gameManager *manager.GameManager
	wsHub       *websocket.Hub
	backends    Backends
	logger      *zap.SugaredLogger
	metrics     *RequestMetrics
}

// NewServer creates a new API server. The hub must already be running.
func NewServer(ctx context.Context, cfg *config.Config, gameManager *manager.GameManager, wsHub *websocket.Hub, backends Backends, logger *zap.SugaredLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second

	server := &Server{
		echo:        e,
		cfg:         cfg,
		gameManager: gameManager,
		wsHub:       wsHub,
		backends:    backends,
		logger:      logger,
		metrics: &RequestMetrics{
			RequestCount: make(map[string]int),
			DurationSum:  make(map[string]float64),
			GameActions:  make(map[string]int),
		},
	}

	server.configureMiddleware()
	server.configureRoutes(ctx)

	return server
}

// configureMiddleware sets up Echo middleware
func (s *Server) configureMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(s.metricsMiddleware)

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			s.logger.Debugw("Request handled",
				"requestID", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration", time.Since(start),
			)
			return nil
		}
	})
}

// metricsMiddleware records metrics for each request
func (s *Server) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if httpErr, ok := err.(*echo.HTTPError); ok {
			status = httpErr.Code
		}
		key := c.Request().Method + ":" + c.Path() + ":" + strconv.Itoa(status)

		s.metrics.mutex.Lock()
		s.metrics.RequestCount[key]++
		s.metrics.DurationSum[key] += time.Since(start).Seconds()
		s.metrics.mutex.Unlock()

		return err
	}
}

func (s *Server) recordAction(commandType manager.CommandType) {
	s.metrics.mutex.Lock()
	s.metrics.GameActions[string(commandType)]++
	s.metrics.mutex.Unlock()
}

// configureRoutes sets up API routes
func (s *Server) configureRoutes(ctx context.Context) {
	gameHandler := handlers.NewGameHandler(s.gameManager, s.backends.Feed, s.logger)
	gameHandler.OnAction(s.recordAction)
	resultsHandler := handlers.NewResultsHandler(s.backends.Results, s.logger)
	wsHandler := handlers.NewWebSocketHandler(s.wsHub, s.gameManager, s.logger)
	healthHandler := handlers.NewHealthHandler(s.backends.MongoClient, s.backends.RedisClient, s.gameManager, s.logger)

	wsHandler.StartPingPongMonitor(ctx)

	apiV1 := s.echo.Group("/api/v1")

	gameGroup := apiV1.Group("/games")
	gameGroup.POST("", gameHandler.CreateGame)
	gameGroup.GET("", gameHandler.ListGames)
	gameGroup.GET("/:gameId", gameHandler.GetGame)
	gameGroup.DELETE("/:gameId", gameHandler.DeleteGame)
	gameGroup.POST("/:gameId/restart", gameHandler.RestartGame)
	gameGroup.GET("/:gameId/board", gameHandler.GetBoard)
	gameGroup.GET("/:gameId/board/:tileId", gameHandler.GetTile)
	gameGroup.GET("/:gameId/players", gameHandler.GetPlayers)
	gameGroup.GET("/:gameId/current", gameHandler.GetCurrentPlayer)
	gameGroup.GET("/:gameId/buildable", gameHandler.GetBuildable)
	gameGroup.GET("/:gameId/sellable", gameHandler.GetSellable)
	gameGroup.GET("/:gameId/mortgageable", gameHandler.GetMortgageable)
	gameGroup.GET("/:gameId/unmortgageable", gameHandler.GetUnmortgageable)
	gameGroup.GET("/:gameId/monopolies", gameHandler.GetMonopolies)
	gameGroup.GET("/:gameId/history", gameHandler.GetHistory)
	gameGroup.GET("/:gameId/replay", gameHandler.GetReplay)

	actionGroup := apiV1.Group("/games/:gameId/actions")
	actionGroup.POST("/roll", gameHandler.Action(manager.CommandRoll))
	actionGroup.POST("/buy", gameHandler.Action(manager.CommandBuy))
	actionGroup.POST("/auction", gameHandler.Action(manager.CommandAuction))
	actionGroup.POST("/build", gameHandler.Action(manager.CommandBuild))
	actionGroup.POST("/sell", gameHandler.Action(manager.CommandSell))
	actionGroup.POST("/mortgage", gameHandler.Action(manager.CommandMortgage))
	actionGroup.POST("/unmortgage", gameHandler.Action(manager.CommandUnmortgage))
	actionGroup.POST("/trade", gameHandler.Action(manager.CommandTrade))
	actionGroup.POST("/pay-jail", gameHandler.Action(manager.CommandPayJail))
	actionGroup.POST("/roll-jail", gameHandler.Action(manager.CommandRollJail))
	actionGroup.POST("/card-jail", gameHandler.Action(manager.CommandCardJail))
	actionGroup.POST("/quit", gameHandler.Action(manager.CommandQuit))
	actionGroup.POST("/end-turn", gameHandler.Action(manager.CommandEndTurn))

	resultGroup := apiV1.Group("/results")
	resultGroup.GET("", resultsHandler.ListResults)
	resultGroup.GET("/:gameId", resultsHandler.GetResult)

	s.echo.GET("/ws/:gameId", wsHandler.HandleConnection)
	s.echo.GET("/health", healthHandler.Check)

	s.echo.GET("/metrics", func(c echo.Context) error {
		s.metrics.mutex.RLock()
		defer s.metrics.mutex.RUnlock()
		return c.JSON(http.StatusOK, s.metrics)
	})
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the API server
func (s *Server) Start() error {
	address := s.cfg.Server.Host + ":" + strconv.Itoa(s.cfg.Server.Port)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
