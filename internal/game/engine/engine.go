package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/game/board"
	"github.com/adamnnoli/monopoly/internal/game/cards"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

// ErrInvalidSetup is returned when a game cannot be started with the given seats
var ErrInvalidSetup = errors.New("invalid game setup")

// Fixed rent tables that are not part of the board file
var railroadRent = [...]int{0, 25, 50, 100, 200}

const (
	utilityMultiplierOne  = 4
	utilityMultiplierBoth = 10
)

// Rules holds the money amounts and seat limits of a game
type Rules struct {
	StartingCash int
	GoSalary     int
	JailFine     int
	MinPlayers   int
	MaxPlayers   int
}

// DefaultRules returns the standard rules
func DefaultRules() Rules {
	return Rules{
		StartingCash: 1500,
		GoSalary:     200,
		JailFine:     50,
		MinPlayers:   2,
		MaxPlayers:   6,
	}
}

// Options configures a new engine. Zero values select the standard board,
// standard card effects, clock-seeded dice and a no-op logger.
type Options struct {
	Rules      Rules
	Definition *models.GameDefinition
	Effects    cards.EffectTable
	Dice       Dice
	Logger     *zap.SugaredLogger
}

// Engine is the turn controller. It owns all game state and is not safe for
// concurrent use; callers serialize commands.
type Engine struct {
	logger *zap.SugaredLogger
	rules  Rules
	board  *board.Board
	decks  *cards.Decks
	dice   Dice

	players []*player.Player
	retired []*player.Player

	current         int
	hasRolled       bool
	doubles         int
	lastRoll        int
	pendingPurchase int

	gameOver bool
	winner   *player.Player
	history  []models.LogEntry
}

// New validates the seats and builds a game ready for the first roll
func New(setups []models.PlayerSetup, opts Options) (*Engine, error) {
	rules := opts.Rules
	if rules == (Rules{}) {
		rules = DefaultRules()
	}
	if err := validateSetups(setups, rules); err != nil {
		return nil, err
	}

	def := opts.Definition
	if def == nil {
		var err error
		def, err = board.DefaultDefinitions()
		if err != nil {
			return nil, fmt.Errorf("failed to load standard board: %w", err)
		}
	}

	b, err := board.New(def.Tiles)
	if err != nil {
		return nil, fmt.Errorf("failed to build board: %w", err)
	}

	effects := opts.Effects
	if effects == nil {
		effects = cards.DefaultEffects(rules.GoSalary)
	}
	decks, err := cards.NewDecks(def, effects)
	if err != nil {
		return nil, fmt.Errorf("failed to build card decks: %w", err)
	}

	dice := opts.Dice
	if dice == nil {
		dice = NewRandomDice(0)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	e := &Engine{
		logger:          logger,
		rules:           rules,
		board:           b,
		decks:           decks,
		dice:            dice,
		pendingPurchase: -1,
	}
	for _, s := range setups {
		e.players = append(e.players, player.New(s, rules.StartingCash, rules.GoSalary))
	}

	logger.Infow("Game engine created", "players", len(e.players), "startingCash", rules.StartingCash)
	return e, nil
}

func validateSetups(setups []models.PlayerSetup, rules Rules) error {
	if len(setups) < rules.MinPlayers || len(setups) > rules.MaxPlayers {
		return fmt.Errorf("%w: need %d to %d players, got %d", ErrInvalidSetup, rules.MinPlayers, rules.MaxPlayers, len(setups))
	}

	ids := make(map[string]bool)
	names := make(map[string]bool)
	colors := make(map[string]bool)
	for _, s := range setups {
		if s.ID == "" || s.Name == "" || s.Color == "" {
			return fmt.Errorf("%w: every player needs an id, a name and a color", ErrInvalidSetup)
		}
		if ids[s.ID] {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidSetup, s.ID)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate player name %q", ErrInvalidSetup, s.Name)
		}
		if colors[s.Color] {
			return fmt.Errorf("%w: color %q is already taken", ErrInvalidSetup, s.Color)
		}
		ids[s.ID], names[s.Name], colors[s.Color] = true, true, true
	}
	return nil
}

// ruleError is a rejected command with a stable reason token
type ruleError struct {
	reason models.FailReason
	msg    string
}

func (e *ruleError) Error() string { return e.msg }

func reject(reason models.FailReason, format string, args ...interface{}) error {
	return &ruleError{reason: reason, msg: fmt.Sprintf(format, args...)}
}

// logBuf collects the entries produced by one command
type logBuf struct {
	entries []models.LogEntry
}

func (l *logBuf) add(category models.LogCategory, format string, args ...interface{}) {
	l.entries = append(l.entries, models.Entry(category, fmt.Sprintf(format, args...)))
}

func (l *logBuf) append(entries ...models.LogEntry) {
	l.entries = append(l.entries, entries...)
}

func (l *logBuf) reject(category models.LogCategory, err error) {
	var re *ruleError
	if errors.As(err, &re) {
		l.entries = append(l.entries, models.Fail(category, re.reason, re.msg))
		return
	}
	reason := models.ReasonInvalidTrade
	if errors.Is(err, board.ErrTileNotFound) {
		reason = models.ReasonNotFound
	}
	l.entries = append(l.entries, models.Fail(category, reason, err.Error()))
}

// command runs fn against a fresh log buffer and records its output
func (e *Engine) command(name string, failCategory models.LogCategory, fn func(l *logBuf)) []models.LogEntry {
	l := &logBuf{}
	if e.gameOver {
		l.reject(failCategory, reject(models.ReasonGameOver, "the game is over"))
	} else {
		fn(l)
	}

	for _, entry := range l.entries {
		e.logger.Debugw("Game log", "command", name, "category", entry.Category, "message", entry.Message, "reason", entry.Reason)
	}
	e.history = append(e.history, l.entries...)
	return l.entries
}

func (e *Engine) currentPlayer() *player.Player {
	return e.players[e.current]
}

// findPlayer resolves an active player by id, then by name
func (e *Engine) findPlayer(key string) *player.Player {
	for _, p := range e.players {
		if p.ID == key {
			return p
		}
	}
	for _, p := range e.players {
		if p.Name == key {
			return p
		}
	}
	return nil
}

// others lists the active players after p in turn order
func (e *Engine) others(p *player.Player) []*player.Player {
	idx := e.indexOf(p)
	out := make([]*player.Player, 0, len(e.players)-1)
	for step := 1; step < len(e.players); step++ {
		out = append(out, e.players[(idx+step)%len(e.players)])
	}
	return out
}

func (e *Engine) indexOf(p *player.Player) int {
	for i, q := range e.players {
		if q == p {
			return i
		}
	}
	return -1
}

func (e *Engine) tileName(id int) string {
	t, err := e.board.Tile(id)
	if err != nil {
		return fmt.Sprintf("tile %d", id)
	}
	return t.Name
}

// Phase reports the turn controller state
func (e *Engine) Phase() models.GamePhase {
	switch {
	case e.gameOver:
		return models.PhaseGameOver
	case e.hasRolled:
		return models.PhaseAwaitingEndTurn
	default:
		return models.PhaseAwaitingRoll
	}
}

// State returns the public turn state
func (e *Engine) State() models.TurnState {
	s := models.TurnState{
		Phase:      e.Phase(),
		HasRolled:  e.hasRolled,
		Doubles:    e.doubles,
		LastRoll:   e.lastRoll,
		Monopolies: e.Monopolies(),
	}
	if e.gameOver {
		s.Winner = e.winner.ID
		s.CurrentPlayer = e.winner.ID
		return s
	}
	s.CurrentPlayer = e.currentPlayer().ID
	if e.pendingPurchase >= 0 {
		id := e.pendingPurchase
		s.PendingPurchase = &id
	}
	return s
}

// Board returns every tile in board order
func (e *Engine) Board() []models.TileSnapshot {
	return e.board.Tiles()
}

// Tile returns one tile
func (e *Engine) Tile(id int) (models.TileSnapshot, error) {
	return e.board.Tile(id)
}

// Players returns the active players in turn order
func (e *Engine) Players() []models.PlayerSnapshot {
	out := make([]models.PlayerSnapshot, 0, len(e.players))
	for _, p := range e.players {
		out = append(out, p.Snapshot(true))
	}
	return out
}

// Standings returns active players followed by retired ones, latest retiree first
func (e *Engine) Standings() []models.PlayerSnapshot {
	out := e.Players()
	for i := len(e.retired) - 1; i >= 0; i-- {
		out = append(out, e.retired[i].Snapshot(false))
	}
	return out
}

// CurrentPlayer returns the player whose turn it is, or the winner once the game is over
func (e *Engine) CurrentPlayer() models.PlayerSnapshot {
	if e.gameOver {
		return e.winner.Snapshot(true)
	}
	return e.currentPlayer().Snapshot(true)
}

// Winner returns the last remaining player once the game is over
func (e *Engine) Winner() (models.PlayerSnapshot, bool) {
	if !e.gameOver {
		return models.PlayerSnapshot{}, false
	}
	return e.winner.Snapshot(true), true
}

// Monopolies maps color groups to the name of the player holding them
func (e *Engine) Monopolies() map[string]string {
	out := make(map[string]string)
	for group, ownerID := range e.board.Monopolies() {
		if p := e.playerByID(ownerID); p != nil {
			out[group] = p.Name
		}
	}
	return out
}

// History returns every log entry produced so far
func (e *Engine) History() []models.LogEntry {
	out := make([]models.LogEntry, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) playerByID(id string) *player.Player {
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}
