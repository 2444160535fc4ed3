package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/db/mongodb"
	"github.com/adamnnoli/monopoly/internal/game/models"
)

const defaultResultsLimit = 20

// ResultReader reads archived games
type ResultReader interface {
	List(ctx context.Context, limit int64) ([]models.GameResult, error)
	Get(ctx context.Context, gameID string) (*models.GameResult, error)
}

// ResultsHandler serves the archive of finished games
type ResultsHandler struct {
	results ResultReader
	logger  *zap.SugaredLogger
}

// NewResultsHandler creates a new ResultsHandler. results may be nil when mongo is disabled.
func NewResultsHandler(results ResultReader, logger *zap.SugaredLogger) *ResultsHandler {
	return &ResultsHandler{
		results: results,
		logger:  logger,
	}
}

// ListResults returns the most recently finished games
func (h *ResultsHandler) ListResults(c echo.Context) error {
	if h.results == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Result archive is not enabled")
	}

	limit := int64(defaultResultsLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
		}
		limit = n
	}

	results, err := h.results.List(c.Request().Context(), limit)
	if err != nil {
		h.logger.Errorf("Failed to list results: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to read result archive")
	}
	return c.JSON(http.StatusOK, results)
}

// GetResult returns one archived game with its full log
func (h *ResultsHandler) GetResult(c echo.Context) error {
	if h.results == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Result archive is not enabled")
	}

	result, err := h.results.Get(c.Request().Context(), c.Param("gameId"))
	if errors.Is(err, mongodb.ErrResultNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		h.logger.Errorf("Failed to get result %s: %v", c.Param("gameId"), err)
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to read result archive")
	}
	return c.JSON(http.StatusOK, result)
}
