package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamnnoli/monopoly/internal/game/cards"
	"github.com/adamnnoli/monopoly/internal/game/models"
)

func TestTaxBankruptcy(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 3})
	alice := e.players[0]
	med := give(t, e, alice, "Mediterranean Avenue")
	alice.Debit(1500 - 100)

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogBankruptcyBank))
	assert.Len(t, e.Players(), 2)
	assert.Equal(t, "p2", e.CurrentPlayer().ID)
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())

	tile, _ := e.Tile(med)
	assert.Empty(t, tile.OwnerID)

	standings := e.Standings()
	require.Len(t, standings, 3)
	assert.Equal(t, "Alice", standings[2].Name)
	assert.False(t, standings[2].Active)
	checkInvariants(t, e)
}

func TestPayEachBankruptcyGoesToBank(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{3, 4})
	deck, err := cards.NewDeck("Chance", []models.CardDefinition{
		{ID: "chairman-of-the-board", Text: "Pay each player $50"},
	}, cards.DefaultEffects(200))
	require.NoError(t, err)
	e.decks.Chance = deck

	alice, bob, cara := e.players[0], e.players[1], e.players[2]
	med := give(t, e, alice, "Mediterranean Avenue")
	alice.Debit(1500 - 60)

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogBankruptcyBank))
	assert.False(t, hasCategory(logs, models.LogBankruptcyPlayer))
	assert.Equal(t, 1500, bob.Cash())
	assert.Equal(t, 1500, cara.Cash())

	tile, _ := e.Tile(med)
	assert.Empty(t, tile.OwnerID)
	assert.Len(t, e.Players(), 2)
	assert.Equal(t, "p2", e.CurrentPlayer().ID)
	checkInvariants(t, e)
}

func TestRentBankruptcyToPlayer(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 3})
	alice, bob := e.players[0], e.players[1]
	give(t, e, bob, "Park Place")
	boardwalk := give(t, e, bob, "Boardwalk")
	for i := 0; i < models.HotelLevel; i++ {
		require.NoError(t, e.board.BuildHouse(boardwalk))
		require.NoError(t, e.board.BuildHouse(boardwalk-2))
	}

	med := give(t, e, alice, "Mediterranean Avenue")
	baltic := give(t, e, alice, "Baltic Avenue")
	require.NoError(t, e.board.BuildHouse(med))
	require.NoError(t, e.board.SetMortgaged(baltic, true))
	alice.AddJailCard(1)
	alice.Debit(1500 - 300)
	placeAt(alice, 35)

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogBankruptcyPlayer))

	// 300 cash plus half of one $50 house, less $3 interest on Baltic
	assert.Equal(t, 1500+325-3, bob.Cash())
	assert.True(t, bob.Owns(med))
	assert.True(t, bob.Owns(baltic))
	assert.Equal(t, 1, bob.JailCards())

	tile, _ := e.Tile(med)
	assert.Zero(t, tile.Houses)
	tile, _ = e.Tile(baltic)
	assert.True(t, tile.Mortgaged)

	assert.Equal(t, "p2", e.CurrentPlayer().ID)
	assert.Equal(t, map[string]string{"brown": "Bob", "darkblue": "Bob"}, e.Monopolies())
	checkInvariants(t, e)
}

func TestBankruptcyEndsTwoPlayerGame(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats[:2], [2]int{1, 3})
	e.players[0].Debit(1400)

	logs := e.Roll()
	assert.Equal(t, models.LogGameOver, lastEntry(t, logs).Category)
	assert.Equal(t, models.PhaseGameOver, e.Phase())

	state := e.State()
	assert.Equal(t, "p2", state.Winner)
	assert.Nil(t, state.PendingPurchase)
}
