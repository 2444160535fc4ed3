package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamnnoli/monopoly/internal/game/board"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

func setup(t *testing.T) (*board.Board, *player.Player, []*player.Player) {
	t.Helper()
	def, err := board.DefaultDefinitions()
	require.NoError(t, err)
	b, err := board.New(def.Tiles)
	require.NoError(t, err)

	p := player.New(models.PlayerSetup{ID: "p1", Name: "Alice", Color: "red"}, 1500, 200)
	others := []*player.Player{
		player.New(models.PlayerSetup{ID: "p2", Name: "Bob", Color: "blue"}, 1500, 200),
		player.New(models.PlayerSetup{ID: "p3", Name: "Cara", Color: "green"}, 30, 200),
	}
	return b, p, others
}

func TestStandardDecksBind(t *testing.T) {
	def, err := board.DefaultDefinitions()
	require.NoError(t, err)

	decks, err := NewDecks(def, DefaultEffects(200))
	require.NoError(t, err)
	assert.Equal(t, 16, decks.Chance.Len())
	assert.Equal(t, 17, decks.CommunityChest.Len())
}

func TestNewDeckRequiresEffects(t *testing.T) {
	_, err := NewDeck("Chance", []models.CardDefinition{{ID: "mystery", Text: "?"}}, DefaultEffects(200))
	assert.Error(t, err)

	_, err = NewDeck("Chance", nil, DefaultEffects(200))
	assert.Error(t, err)
}

func TestDrawIsCyclic(t *testing.T) {
	table := EffectTable{}
	table.Register("a", Collect(1))
	table.Register("b", Collect(2))
	deck, err := NewDeck("test", []models.CardDefinition{{ID: "a"}, {ID: "b"}}, table)
	require.NoError(t, err)

	var drawn []string
	for i := 0; i < 5; i++ {
		drawn = append(drawn, deck.Draw().ID)
	}
	assert.Equal(t, []string{"a", "b", "a", "b", "a"}, drawn)
	assert.Equal(t, 1, deck.Cursor())
}

func TestAdvanceToPassesGo(t *testing.T) {
	b, p, others := setup(t)
	p.MoveTo(36)

	res := AdvanceTo("Illinois Avenue", 200)(p, b, others)
	assert.True(t, res.Resolve)
	assert.Equal(t, 24, p.Position())
	assert.Equal(t, 1700, p.Cash())
	require.Len(t, res.Entries, 2)
	assert.Equal(t, models.LogPassGo, res.Entries[0].Category)
}

func TestAdvanceToNearest(t *testing.T) {
	b, p, others := setup(t)
	p.MoveTo(7)

	res := AdvanceToNearest(models.TileRailroad, RentDoubleRailroad, 200)(p, b, others)
	assert.Equal(t, 15, p.Position())
	assert.Equal(t, RentDoubleRailroad, res.Rent)
	assert.True(t, res.Resolve)

	res = AdvanceToNearest(models.TileUtility, RentTenTimesDice, 200)(p, b, others)
	assert.Equal(t, 28, p.Position())
	assert.Equal(t, RentTenTimesDice, res.Rent)
}

func TestMoveBackDoesNotPayGo(t *testing.T) {
	b, p, others := setup(t)
	p.MoveBy(2)

	res := MoveBack(3)(p, b, others)
	assert.Equal(t, 39, p.Position())
	assert.Equal(t, 1500, p.Cash())
	assert.True(t, res.Resolve)
}

func TestPayEach(t *testing.T) {
	b, p, others := setup(t)

	PayEach(50)(p, b, others)
	assert.Equal(t, 1400, p.Cash())
	assert.Equal(t, 1550, others[0].Cash())
	assert.Equal(t, 80, others[1].Cash())
}

func TestPayEachUnaffordablePaysNobody(t *testing.T) {
	b, p, others := setup(t)
	p.Debit(1450)

	PayEach(50)(p, b, others)
	assert.Equal(t, -50, p.Cash())
	assert.Equal(t, 1500, others[0].Cash())
	assert.Equal(t, 30, others[1].Cash())
}

func TestCollectFromEachCapsAtCash(t *testing.T) {
	b, p, others := setup(t)

	CollectFromEach(50)(p, b, others)
	assert.Equal(t, 1580, p.Cash())
	assert.Equal(t, 1450, others[0].Cash())
	assert.Equal(t, 0, others[1].Cash())
}

func TestRepairs(t *testing.T) {
	b, p, others := setup(t)
	require.NoError(t, b.SetOwner(1, p.ID))
	require.NoError(t, b.SetOwner(3, p.ID))
	require.NoError(t, b.BuildHouse(1))
	require.NoError(t, b.BuildHouse(3))
	require.NoError(t, b.SetOwner(39, p.ID))
	for i := 0; i < models.HotelLevel; i++ {
		require.NoError(t, b.BuildHouse(39))
	}

	Repairs(25, 100)(p, b, others)
	assert.Equal(t, 1500-2*25-100, p.Cash())
}

func TestJailEffects(t *testing.T) {
	b, p, others := setup(t)

	JailFreeCard()(p, b, others)
	assert.Equal(t, 1, p.JailCards())

	res := GoToJail()(p, b, others)
	assert.True(t, res.GoToJail)
}
