package player

import (
	"errors"
	"sort"

	"github.com/adamnnoli/monopoly/internal/game/models"
)

// ErrNoJailCard is returned when a player tries to use a card they do not hold
var ErrNoJailCard = errors.New("no get out of jail free card")

// Player is a seat in the game. Its methods are primitives; rule checks live
// in the engine.
type Player struct {
	ID    string
	Name  string
	Color string

	cash        int
	position    int
	owned       map[int]struct{}
	inJail      bool
	turnsInJail int
	jailCards   int
	goSalary    int
	boardSize   int
}

// New creates a player standing on GO
func New(setup models.PlayerSetup, startingCash, goSalary int) *Player {
	return &Player{
		ID:        setup.ID,
		Name:      setup.Name,
		Color:     setup.Color,
		cash:      startingCash,
		owned:     make(map[int]struct{}),
		goSalary:  goSalary,
		boardSize: models.BoardSize,
	}
}

func (p *Player) Cash() int        { return p.cash }
func (p *Player) Position() int    { return p.position }
func (p *Player) InJail() bool     { return p.inJail }
func (p *Player) TurnsInJail() int { return p.turnsInJail }
func (p *Player) JailCards() int   { return p.jailCards }

// Credit adds cash
func (p *Player) Credit(amount int) {
	p.cash += amount
}

// Debit removes cash. The balance may go negative; callers decide what that means.
func (p *Player) Debit(amount int) {
	p.cash -= amount
}

// MoveBy moves the token n spaces and returns how many times GO was passed.
// A forward move pays the GO salary once per completed lap; a backward move
// never pays.
func (p *Player) MoveBy(n int) int {
	if n < 0 {
		p.position = ((p.position+n)%p.boardSize + p.boardSize) % p.boardSize
		return 0
	}
	laps := (p.position + n) / p.boardSize
	p.position = (p.position + n) % p.boardSize
	p.Credit(laps * p.goSalary)
	return laps
}

// MoveTo advances the token forward to tile id, paying the GO salary when the
// move wraps past GO. Moving to the current tile does nothing.
func (p *Player) MoveTo(id int) int {
	distance := ((id-p.position)%p.boardSize + p.boardSize) % p.boardSize
	return p.MoveBy(distance)
}

// AddProperty records ownership of a tile
func (p *Player) AddProperty(id int) {
	p.owned[id] = struct{}{}
}

// RemoveProperty drops ownership of a tile
func (p *Player) RemoveProperty(id int) {
	delete(p.owned, id)
}

// Owns reports whether the player holds the tile
func (p *Player) Owns(id int) bool {
	_, ok := p.owned[id]
	return ok
}

// Properties returns the owned tile ids in board order
func (p *Player) Properties() []int {
	ids := make([]int, 0, len(p.owned))
	for id := range p.owned {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SendToJail puts the token in jail without passing GO
func (p *Player) SendToJail() {
	p.position = models.JailPosition
	p.inJail = true
	p.turnsInJail = 0
}

// ReleaseFromJail frees the player; the token stays on the jail tile
func (p *Player) ReleaseFromJail() {
	p.inJail = false
	p.turnsInJail = 0
}

// IncrementJailTurns counts one more turn spent in jail
func (p *Player) IncrementJailTurns() int {
	p.turnsInJail++
	return p.turnsInJail
}

// AddJailCard gives the player a get out of jail free card
func (p *Player) AddJailCard(n int) {
	p.jailCards += n
}

// UseJailCard spends a get out of jail free card
func (p *Player) UseJailCard() error {
	if p.jailCards == 0 {
		return ErrNoJailCard
	}
	p.jailCards--
	return nil
}

// Snapshot returns a read-only copy of the player
func (p *Player) Snapshot(active bool) models.PlayerSnapshot {
	return models.PlayerSnapshot{
		ID:           p.ID,
		Name:         p.Name,
		Color:        p.Color,
		Cash:         p.cash,
		Position:     p.position,
		OwnedTileIDs: p.Properties(),
		InJail:       p.inJail,
		TurnsInJail:  p.turnsInJail,
		JailCards:    p.jailCards,
		Active:       active,
	}
}
