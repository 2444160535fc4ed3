package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/game/manager"
)

// ConnectionHub attaches renderer connections to games
type ConnectionHub interface {
	HandleWebSocketConnection(conn *websocket.Conn, gameID, clientID string)
	CheckInactiveClients(maxIdle time.Duration) int
}

// GameLookup resolves a game id or room code
type GameLookup interface {
	GetGame(gameID string) (*manager.GameSession, error)
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub    ConnectionHub
	games  GameLookup
	logger *zap.SugaredLogger
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub ConnectionHub, games GameLookup, logger *zap.SugaredLogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		games:  games,
		logger: logger,
	}
}

// The bridge listens on localhost for a local renderer, so any origin is accepted
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StartPingPongMonitor periodically closes renderers that stopped answering pings
func (h *WebSocketHandler) StartPingPongMonitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := h.hub.CheckInactiveClients(90 * time.Second); n > 0 {
					h.logger.Infof("Closed %d inactive WebSocket clients", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	h.logger.Info("Started ping/pong monitor for inactive client detection")
}

// HandleConnection upgrades a renderer connection for a game. The game may be
// named by id or room code; clientId is optional.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	gameID := c.Param("gameId")
	if gameID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing game ID")
	}

	session, err := h.games.GetGame(gameID)
	if err != nil {
		h.logger.Warnf("WebSocket connection rejected for game %s: %v", gameID, err)
		return echo.NewHTTPError(http.StatusNotFound, "Game not found")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return nil
	}

	h.hub.HandleWebSocketConnection(conn, session.ID, c.QueryParam("clientId"))
	h.logger.Infof("WebSocket connection for game %s handed to hub", session.ID)
	return nil
}
