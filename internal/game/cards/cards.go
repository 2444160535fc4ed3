package cards

import (
	"fmt"

	"github.com/adamnnoli/monopoly/internal/game/board"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

// RentRule tells the engine how to charge rent after a card moves a token
type RentRule int

const (
	RentNormal RentRule = iota
	RentDoubleRailroad
	RentTenTimesDice
)

// Result is what an effect did and what the engine still has to do.
// Resolve asks for the landing tile to be resolved before the draw returns.
type Result struct {
	Entries  []models.LogEntry
	Resolve  bool
	Rent     RentRule
	GoToJail bool
}

// Effect applies a card to the drawing player. others holds the remaining
// active players in turn order.
type Effect func(p *player.Player, b *board.Board, others []*player.Player) Result

// EffectTable maps card ids to their effects
type EffectTable map[string]Effect

// Register adds or replaces the effect for a card id
func (t EffectTable) Register(id string, effect Effect) {
	t[id] = effect
}

// Get looks up the effect for a card id
func (t EffectTable) Get(id string) (Effect, bool) {
	effect, ok := t[id]
	return effect, ok
}

// Card is a drawn card with its bound effect
type Card struct {
	ID     string
	Text   string
	effect Effect
}

// Apply runs the card's effect
func (c Card) Apply(p *player.Player, b *board.Board, others []*player.Player) Result {
	return c.effect(p, b, others)
}

// Deck is a fixed-order deck with a cyclic cursor. Cards are never removed;
// a kept jail card is tracked as a counter on the player.
type Deck struct {
	name   string
	cards  []Card
	cursor int
}

// NewDeck binds card definitions to their effects. Every card id must have an
// entry in the table.
func NewDeck(name string, defs []models.CardDefinition, table EffectTable) (*Deck, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("deck %s has no cards", name)
	}

	cards := make([]Card, 0, len(defs))
	for _, def := range defs {
		effect, ok := table.Get(def.ID)
		if !ok {
			return nil, fmt.Errorf("deck %s: no effect registered for card %q", name, def.ID)
		}
		cards = append(cards, Card{ID: def.ID, Text: def.Text, effect: effect})
	}

	return &Deck{name: name, cards: cards}, nil
}

// Draw returns the top card and advances the cursor
func (d *Deck) Draw() Card {
	c := d.cards[d.cursor]
	d.cursor = (d.cursor + 1) % len(d.cards)
	return c
}

func (d *Deck) Name() string { return d.name }
func (d *Deck) Len() int     { return len(d.cards) }
func (d *Deck) Cursor() int  { return d.cursor }

// Decks holds the two standard decks
type Decks struct {
	Chance         *Deck
	CommunityChest *Deck
}

// NewDecks builds both decks from a game definition
func NewDecks(def *models.GameDefinition, table EffectTable) (*Decks, error) {
	chance, err := NewDeck("Chance", def.Chance, table)
	if err != nil {
		return nil, err
	}
	chest, err := NewDeck("Community Chest", def.CommunityChest, table)
	if err != nil {
		return nil, err
	}
	return &Decks{Chance: chance, CommunityChest: chest}, nil
}
