package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/game/board"
	"github.com/adamnnoli/monopoly/internal/game/engine"
	"github.com/adamnnoli/monopoly/internal/game/manager"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/queue"
)

// LogReplayer returns the stored log feed of a game
type LogReplayer interface {
	Replay(ctx context.Context, gameID string) ([]queue.FeedEntry, error)
}

// GameHandler handles game-related requests
type GameHandler struct {
	gameManager *manager.GameManager
	feed        LogReplayer
	logger      *zap.SugaredLogger
	onAction    func(manager.CommandType)
}

// NewGameHandler creates a new GameHandler. feed may be nil when redis is disabled.
func NewGameHandler(gameManager *manager.GameManager, feed LogReplayer, logger *zap.SugaredLogger) *GameHandler {
	return &GameHandler{
		gameManager: gameManager,
		feed:        feed,
		logger:      logger,
	}
}

// OnAction registers a callback run after every executed command
func (h *GameHandler) OnAction(fn func(manager.CommandType)) {
	h.onAction = fn
}

// CreateGameRequest represents a create game request
type CreateGameRequest struct {
	GameName string               `json:"gameName" validate:"max=64"`
	Players  []models.PlayerSetup `json:"players" validate:"required,min=1,dive"`
}

// ActionResponse is returned by every command route
type ActionResponse struct {
	Entries []models.LogEntry `json:"entries"`
	State   models.TurnState  `json:"state"`
}

// CreateGame seats the players and starts a new game
func (h *GameHandler) CreateGame(c echo.Context) error {
	var req CreateGameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.gameManager.CreateGame(req.GameName, req.Players)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidSetup) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Errorf("Failed to create game: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create game")
	}

	return c.JSON(http.StatusCreated, session.Summary())
}

// ListGames lists running games
func (h *GameHandler) ListGames(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"games": h.gameManager.ListGames(),
		"count": h.gameManager.ActiveGameCount(),
	})
}

// GetGame returns the full snapshot of a game
func (h *GameHandler) GetGame(c echo.Context) error {
	snapshot, err := h.gameManager.Snapshot(c.Param("gameId"))
	if err != nil {
		return h.gameError(err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// DeleteGame drops a game without archiving it
func (h *GameHandler) DeleteGame(c echo.Context) error {
	if err := h.gameManager.RemoveGame(c.Param("gameId")); err != nil {
		return h.gameError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RestartGame deals a fresh game to the same seats
func (h *GameHandler) RestartGame(c echo.Context) error {
	gameID := c.Param("gameId")
	if err := h.gameManager.RestartGame(gameID); err != nil {
		return h.gameError(err)
	}
	snapshot, err := h.gameManager.Snapshot(gameID)
	if err != nil {
		return h.gameError(err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// query builds a read-only route answering from the engine
func (h *GameHandler) query(fn func(e *engine.Engine) interface{}) echo.HandlerFunc {
	return func(c echo.Context) error {
		var out interface{}
		err := h.gameManager.View(c.Param("gameId"), func(e *engine.Engine) {
			out = fn(e)
		})
		if err != nil {
			return h.gameError(err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

// GetBoard returns every tile in board order
func (h *GameHandler) GetBoard(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return e.Board() })(c)
}

// GetPlayers returns the active players in turn order
func (h *GameHandler) GetPlayers(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return e.Players() })(c)
}

// GetCurrentPlayer returns the player to act
func (h *GameHandler) GetCurrentPlayer(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return e.CurrentPlayer() })(c)
}

// GetMonopolies maps color groups to their holders
func (h *GameHandler) GetMonopolies(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return e.Monopolies() })(c)
}

// GetHistory returns the whole game log
func (h *GameHandler) GetHistory(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return e.History() })(c)
}

// GetBuildable, GetSellable, GetMortgageable and GetUnmortgageable list the
// current player's eligible tiles
func (h *GameHandler) GetBuildable(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return nonNil(e.Buildable()) })(c)
}

func (h *GameHandler) GetSellable(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return nonNil(e.Sellable()) })(c)
}

func (h *GameHandler) GetMortgageable(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return nonNil(e.Mortgageable()) })(c)
}

func (h *GameHandler) GetUnmortgageable(c echo.Context) error {
	return h.query(func(e *engine.Engine) interface{} { return nonNil(e.Unmortgageable()) })(c)
}

// GetTile returns one tile by board index
func (h *GameHandler) GetTile(c echo.Context) error {
	tileID, err := strconv.Atoi(c.Param("tileId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Tile id must be a number")
	}

	var tile models.TileSnapshot
	var tileErr error
	err = h.gameManager.View(c.Param("gameId"), func(e *engine.Engine) {
		tile, tileErr = e.Tile(tileID)
	})
	if err != nil {
		return h.gameError(err)
	}
	if tileErr != nil {
		return h.gameError(tileErr)
	}
	return c.JSON(http.StatusOK, tile)
}

// GetReplay returns the redis log feed of a game, with sequence numbers
func (h *GameHandler) GetReplay(c echo.Context) error {
	if h.feed == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Log feed is not enabled")
	}
	entries, err := h.feed.Replay(c.Request().Context(), c.Param("gameId"))
	if err != nil {
		h.logger.Errorf("Failed to replay game %s: %v", c.Param("gameId"), err)
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to read log feed")
	}
	return c.JSON(http.StatusOK, entries)
}

// Action builds the route for one command type. The body is optional and
// carries the command's arguments.
func (h *GameHandler) Action(commandType manager.CommandType) echo.HandlerFunc {
	return func(c echo.Context) error {
		var cmd manager.Command
		if err := c.Bind(&cmd); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		cmd.Type = commandType
		if err := c.Validate(&cmd); err != nil {
			return err
		}

		gameID := c.Param("gameId")
		entries, err := h.gameManager.Execute(gameID, cmd)
		if err != nil {
			return h.gameError(err)
		}
		if h.onAction != nil {
			h.onAction(commandType)
		}

		resp := ActionResponse{Entries: entries}
		if err := h.gameManager.View(gameID, func(e *engine.Engine) { resp.State = e.State() }); err != nil {
			return h.gameError(err)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func (h *GameHandler) gameError(err error) error {
	switch {
	case errors.Is(err, manager.ErrGameNotFound), errors.Is(err, board.ErrTileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, manager.ErrUnknownCommand):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorf("Game request failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal error")
	}
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
