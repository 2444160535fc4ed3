package manager

import (
	"sort"

	"github.com/adamnnoli/monopoly/internal/game/models"
)

// ListGames returns a summary of every running session, oldest first
func (gm *GameManager) ListGames() []models.GameSummary {
	gm.activeGamesMutex.RLock()
	sessions := make([]*GameSession, 0, len(gm.activeGames))
	for _, session := range gm.activeGames {
		sessions = append(sessions, session)
	}
	gm.activeGamesMutex.RUnlock()

	games := make([]models.GameSummary, 0, len(sessions))
	for _, session := range sessions {
		games = append(games, session.Summary())
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].ID < games[j].ID
		}
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games
}

// ActiveGameCount is the number of sessions that have not finished
func (gm *GameManager) ActiveGameCount() int {
	count := 0
	for _, game := range gm.ListGames() {
		if game.Phase != models.PhaseGameOver {
			count++
		}
	}
	return count
}
