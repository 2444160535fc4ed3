package manager

import (
	"fmt"
	"time"

	"github.com/adamnnoli/monopoly/internal/game/models"
)

// RestartGame deals a fresh game to the same seats, keeping the session id and
// room code. The old log is discarded, in resettable sinks too, and the next
// result is archived under a new round.
func (gm *GameManager) RestartGame(gameID string) error {
	session, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}

	session.mutex.Lock()
	eng, err := gm.newEngine(session.setups)
	if err != nil {
		session.mutex.Unlock()
		return fmt.Errorf("failed to restart game: %w", err)
	}
	session.engine = eng
	session.Round++
	session.CreatedAt = time.Now()
	session.LastActivity = session.CreatedAt
	first := eng.CurrentPlayer().Name
	round := session.Round
	ticket := session.takeTicket()
	session.mutex.Unlock()

	gm.inOrder(session, ticket, func() {
		gm.resetLogs(session.ID)
		gm.publish(session.ID, []models.LogEntry{
			models.Entry(models.LogEndTurn, fmt.Sprintf("A new game has started. It is now %s's turn", first)),
		})
	})
	gm.logger.Infof("Game %s restarted with %d players, round %d", session.ID, len(session.setups), round)
	return nil
}
