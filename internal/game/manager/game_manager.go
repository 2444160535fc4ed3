package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/game/engine"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/utils"
)

// ErrGameNotFound is returned when no session matches a game id or room code
var ErrGameNotFound = errors.New("game not found")

// LogSink receives every batch of log entries a command produces
type LogSink interface {
	Publish(ctx context.Context, gameID string, entries []models.LogEntry) error
}

// LogResetter is a sink that keeps a game's history and must drop it when the
// game is restarted under the same id
type LogResetter interface {
	ResetLog(ctx context.Context, gameID string) error
}

// ResultArchiver stores the record of a finished game
type ResultArchiver interface {
	ArchiveResult(ctx context.Context, result models.GameResult) error
}

// Options configures the games a manager creates
type Options struct {
	Rules      engine.Rules
	Definition *models.GameDefinition
	DiceSeed   int64
	// NewDice overrides DiceSeed when set
	NewDice func() engine.Dice

	IdleExpiry      time.Duration
	CleanupInterval time.Duration
	ArchiveTimeout  time.Duration
}

// GameManager is responsible for managing game sessions
type GameManager struct {
	ctx              context.Context
	logger           *zap.SugaredLogger
	opts             Options
	activeGames      map[string]*GameSession
	activeGamesMutex sync.RWMutex

	sinks    []LogSink
	archiver ResultArchiver
}

// GameSession is one running game. Commands hold the write lock, queries the read lock.
type GameSession struct {
	ID           string
	Code         string
	Name         string
	CreatedAt    time.Time
	LastActivity time.Time
	// Round counts games played in this session, starting at 1
	Round int

	setups []models.PlayerSetup
	engine *engine.Engine
	mutex  sync.RWMutex

	// Batches reach the sinks in the order their commands ran
	publishMu   sync.Mutex
	publishCond *sync.Cond
	nextTicket  uint64
	served      uint64
}

// NewGameManager creates a new game manager instance
func NewGameManager(ctx context.Context, logger *zap.SugaredLogger, opts Options) *GameManager {
	if opts.Rules == (engine.Rules{}) {
		opts.Rules = engine.DefaultRules()
	}
	if opts.IdleExpiry == 0 {
		opts.IdleExpiry = 24 * time.Hour
	}
	if opts.ArchiveTimeout == 0 {
		opts.ArchiveTimeout = 5 * time.Second
	}

	manager := &GameManager{
		ctx:         ctx,
		logger:      logger,
		opts:        opts,
		activeGames: make(map[string]*GameSession),
	}

	if opts.CleanupInterval > 0 {
		go manager.runCleanupTask()
	}

	return manager
}

// AddSink registers a consumer for command log batches
func (gm *GameManager) AddSink(sink LogSink) {
	gm.activeGamesMutex.Lock()
	defer gm.activeGamesMutex.Unlock()
	gm.sinks = append(gm.sinks, sink)
	gm.logger.Infof("Log sink %T registered with game manager", sink)
}

// SetArchiver sets where finished games are recorded
func (gm *GameManager) SetArchiver(archiver ResultArchiver) {
	gm.activeGamesMutex.Lock()
	defer gm.activeGamesMutex.Unlock()
	gm.archiver = archiver
	gm.logger.Infof("Result archiver %T set for game manager", archiver)
}

// runCleanupTask periodically cleans up expired game sessions
func (gm *GameManager) runCleanupTask() {
	ticker := time.NewTicker(gm.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gm.ctx.Done():
			return
		case <-ticker.C:
			gm.cleanupExpiredSessions(time.Now())
		}
	}
}

// cleanupExpiredSessions removes sessions nobody has touched within IdleExpiry
func (gm *GameManager) cleanupExpiredSessions(now time.Time) []string {
	threshold := now.Add(-gm.opts.IdleExpiry)

	gm.activeGamesMutex.Lock()
	defer gm.activeGamesMutex.Unlock()

	var removed []string
	for gameID, session := range gm.activeGames {
		session.mutex.RLock()
		idle := session.LastActivity.Before(threshold)
		session.mutex.RUnlock()

		if idle {
			gm.logger.Infof("Removing expired game session: %s", gameID)
			delete(gm.activeGames, gameID)
			removed = append(removed, gameID)
		}
	}
	return removed
}

func (gm *GameManager) newEngine(setups []models.PlayerSetup) (*engine.Engine, error) {
	var dice engine.Dice
	if gm.opts.NewDice != nil {
		dice = gm.opts.NewDice()
	} else {
		dice = engine.NewRandomDice(gm.opts.DiceSeed)
	}

	return engine.New(setups, engine.Options{
		Rules:      gm.opts.Rules,
		Definition: gm.opts.Definition,
		Dice:       dice,
		Logger:     gm.logger,
	})
}

// CreateGame seats the players and starts a new game
func (gm *GameManager) CreateGame(gameName string, setups []models.PlayerSetup) (*GameSession, error) {
	eng, err := gm.newEngine(setups)
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	gm.activeGamesMutex.Lock()
	defer gm.activeGamesMutex.Unlock()

	// Generate a room code that no running session uses
	roomCode, err := utils.GenerateUniqueRoomCode(func(code string) bool {
		for _, s := range gm.activeGames {
			if s.Code == code {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate room code: %w", err)
	}

	// If no game name is provided, use a default name with the room code
	if gameName == "" {
		gameName = "Game " + roomCode
	}

	now := time.Now()
	session := &GameSession{
		ID:           uuid.New().String(),
		Code:         roomCode,
		Name:         gameName,
		CreatedAt:    now,
		LastActivity: now,
		Round:        1,
		setups:       append([]models.PlayerSetup(nil), setups...),
		engine:       eng,
	}
	session.publishCond = sync.NewCond(&session.publishMu)
	gm.activeGames[session.ID] = session

	gm.logger.Infof("Game %s (%s) created with %d players", session.ID, roomCode, len(setups))
	return session, nil
}

// GetGame looks a session up by id or by room code
func (gm *GameManager) GetGame(gameID string) (*GameSession, error) {
	normalizedGameID := strings.ToLower(gameID)

	gm.activeGamesMutex.RLock()
	defer gm.activeGamesMutex.RUnlock()

	if session, exists := gm.activeGames[normalizedGameID]; exists {
		return session, nil
	}

	// Try to find by room code if it's not a known id
	if utils.IsValidRoomCode(utils.NormalizeRoomCode(gameID)) {
		code := utils.NormalizeRoomCode(gameID)
		for _, session := range gm.activeGames {
			if session.Code == code {
				return session, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
}

// RemoveGame drops a session without archiving it
func (gm *GameManager) RemoveGame(gameID string) error {
	session, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}

	gm.activeGamesMutex.Lock()
	delete(gm.activeGames, session.ID)
	gm.activeGamesMutex.Unlock()

	gm.logger.Infof("Game %s removed", session.ID)
	return nil
}

// View runs fn against the session's engine under the read lock
func (gm *GameManager) View(gameID string, fn func(e *engine.Engine)) error {
	session, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	session.mutex.RLock()
	defer session.mutex.RUnlock()
	fn(session.engine)
	return nil
}

// Snapshot returns the full public state of a session
func (gm *GameManager) Snapshot(gameID string) (models.GameSnapshot, error) {
	session, err := gm.GetGame(gameID)
	if err != nil {
		return models.GameSnapshot{}, err
	}
	session.mutex.RLock()
	defer session.mutex.RUnlock()

	return models.GameSnapshot{
		Game:    session.summary(),
		State:   session.engine.State(),
		Players: session.engine.Players(),
		Board:   session.engine.Board(),
	}, nil
}

// Execute runs one command against a session, fans the log batch out to the
// sinks and archives the game if this command ended it
func (gm *GameManager) Execute(gameID string, cmd Command) ([]models.LogEntry, error) {
	session, err := gm.GetGame(gameID)
	if err != nil {
		return nil, err
	}

	session.mutex.Lock()
	wasOver := session.engine.Phase() == models.PhaseGameOver
	entries, err := cmd.apply(session.engine)
	if err != nil {
		session.mutex.Unlock()
		return nil, err
	}
	session.LastActivity = time.Now()
	ticket := session.takeTicket()

	var result *models.GameResult
	if !wasOver && session.engine.Phase() == models.PhaseGameOver {
		r := session.result()
		result = &r
	}
	session.mutex.Unlock()

	gm.logger.Debugw("Command executed", "gameId", session.ID, "command", cmd.Type, "entries", len(entries))
	gm.inOrder(session, ticket, func() {
		gm.publish(session.ID, entries)
	})
	if result != nil {
		gm.archive(*result)
	}
	return entries, nil
}

// takeTicket reserves the session's next publish slot. The caller holds the
// write lock so slots follow command order.
func (s *GameSession) takeTicket() uint64 {
	t := s.nextTicket
	s.nextTicket++
	return t
}

// inOrder runs fn once every earlier ticket of the session has been served.
// The session lock must not be held: sinks such as the hub read the session.
func (gm *GameManager) inOrder(s *GameSession, ticket uint64, fn func()) {
	s.publishMu.Lock()
	for s.served != ticket {
		s.publishCond.Wait()
	}
	s.publishMu.Unlock()

	defer func() {
		s.publishMu.Lock()
		s.served++
		s.publishCond.Broadcast()
		s.publishMu.Unlock()
	}()
	fn()
}

// resetLogs clears the history every resettable sink holds for a game
func (gm *GameManager) resetLogs(gameID string) {
	gm.activeGamesMutex.RLock()
	sinks := append([]LogSink(nil), gm.sinks...)
	gm.activeGamesMutex.RUnlock()

	for _, sink := range sinks {
		resetter, ok := sink.(LogResetter)
		if !ok {
			continue
		}
		if err := resetter.ResetLog(gm.ctx, gameID); err != nil {
			gm.logger.Warnf("Failed to reset log of game %s in %T: %v", gameID, sink, err)
		}
	}
}

func (gm *GameManager) publish(gameID string, entries []models.LogEntry) {
	gm.activeGamesMutex.RLock()
	sinks := append([]LogSink(nil), gm.sinks...)
	gm.activeGamesMutex.RUnlock()

	for _, sink := range sinks {
		if err := sink.Publish(gm.ctx, gameID, entries); err != nil {
			gm.logger.Warnf("Failed to publish log entries for game %s to %T: %v", gameID, sink, err)
		}
	}
}

func (gm *GameManager) archive(result models.GameResult) {
	gm.activeGamesMutex.RLock()
	archiver := gm.archiver
	gm.activeGamesMutex.RUnlock()

	if archiver == nil {
		gm.logger.Infof("Game %s finished, winner %s; no archive configured", result.GameID, result.WinnerName)
		return
	}

	ctx, cancel := context.WithTimeout(gm.ctx, gm.opts.ArchiveTimeout)
	defer cancel()
	if err := archiver.ArchiveResult(ctx, result); err != nil {
		gm.logger.Errorf("Failed to archive game %s: %v", result.GameID, err)
		return
	}
	gm.logger.Infof("Game %s archived, winner %s", result.GameID, result.WinnerName)
}

func (s *GameSession) summary() models.GameSummary {
	summary := models.GameSummary{
		ID:        s.ID,
		Code:      s.Code,
		Name:      s.Name,
		Phase:     s.engine.Phase(),
		Players:   len(s.engine.Players()),
		CreatedAt: s.CreatedAt,
	}
	if summary.Phase != models.PhaseGameOver {
		summary.CurrentPlayer = s.engine.CurrentPlayer().Name
	}
	return summary
}

// Summary returns the listing entry for the session
func (s *GameSession) Summary() models.GameSummary {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.summary()
}

func (s *GameSession) result() models.GameResult {
	winner, _ := s.engine.Winner()
	return models.GameResult{
		ResultID:   fmt.Sprintf("%s-%d", s.ID, s.Round),
		GameID:     s.ID,
		Round:      s.Round,
		Code:       s.Code,
		Name:       s.Name,
		WinnerID:   winner.ID,
		WinnerName: winner.Name,
		Standings:  s.engine.Standings(),
		Log:        s.engine.History(),
		StartedAt:  s.CreatedAt,
		FinishedAt: time.Now(),
	}
}
