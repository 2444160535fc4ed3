package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

var threeSeats = []models.PlayerSetup{
	{ID: "p1", Name: "Alice", Color: "red"},
	{ID: "p2", Name: "Bob", Color: "blue"},
	{ID: "p3", Name: "Cara", Color: "green"},
}

func newTestEngine(t *testing.T, seats []models.PlayerSetup, rolls ...[2]int) (*Engine, *FixedDice) {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	dice := NewFixedDice(rolls...)
	e, err := New(seats, Options{Dice: dice, Logger: logger.Sugar()})
	require.NoError(t, err)
	return e, dice
}

// give hands a tile straight to a player, bypassing the purchase flow
func give(t *testing.T, e *Engine, p *player.Player, name string) int {
	t.Helper()
	id, err := e.board.TileIDByName(name)
	require.NoError(t, err)
	require.NoError(t, e.board.SetOwner(id, p.ID))
	p.AddProperty(id)
	e.board.RecomputeMonopolies()
	return id
}

func placeAt(p *player.Player, id int) {
	p.MoveTo(id)
}

func hasCategory(entries []models.LogEntry, category models.LogCategory) bool {
	for _, e := range entries {
		if e.Category == category {
			return true
		}
	}
	return false
}

func lastEntry(t *testing.T, entries []models.LogEntry) models.LogEntry {
	t.Helper()
	require.NotEmpty(t, entries)
	return entries[len(entries)-1]
}

// checkInvariants asserts the cross-object rules that must hold after every command
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	owners := make(map[string]*player.Player)
	for _, p := range e.players {
		owners[p.ID] = p
		assert.GreaterOrEqual(t, p.Position(), 0)
		assert.Less(t, p.Position(), models.BoardSize)
		assert.GreaterOrEqual(t, p.JailCards(), 0)
		for _, id := range p.Properties() {
			tile, _ := e.board.Tile(id)
			assert.Equal(t, p.ID, tile.OwnerID, "player %s lists %s", p.Name, tile.Name)
		}
	}

	for _, tile := range e.board.Tiles() {
		if tile.OwnerID != "" {
			owner, ok := owners[tile.OwnerID]
			if assert.True(t, ok, "%s owned by a retired player", tile.Name) {
				assert.True(t, owner.Owns(tile.ID))
			}
		}
		if tile.Houses > 0 {
			assert.NotEmpty(t, tile.OwnerID)
			assert.False(t, tile.Mortgaged, "%s has houses and a mortgage", tile.Name)
			assert.Equal(t, tile.OwnerID, e.board.MonopolyOwner(tile.ColorGroup))
		}
	}

	for _, group := range e.board.Groups() {
		lo, hi := minMax(e.groupLevels(group))
		assert.LessOrEqual(t, hi-lo, 1, "group %s is uneven", group)
	}
}

func TestNewValidatesSeats(t *testing.T) {
	tests := []struct {
		name  string
		seats []models.PlayerSetup
	}{
		{"one player", threeSeats[:1]},
		{"seven players", []models.PlayerSetup{
			{ID: "1", Name: "a", Color: "1"}, {ID: "2", Name: "b", Color: "2"}, {ID: "3", Name: "c", Color: "3"},
			{ID: "4", Name: "d", Color: "4"}, {ID: "5", Name: "e", Color: "5"}, {ID: "6", Name: "f", Color: "6"},
			{ID: "7", Name: "g", Color: "7"},
		}},
		{"duplicate color", []models.PlayerSetup{{ID: "1", Name: "a", Color: "red"}, {ID: "2", Name: "b", Color: "red"}}},
		{"duplicate name", []models.PlayerSetup{{ID: "1", Name: "a", Color: "red"}, {ID: "2", Name: "a", Color: "blue"}}},
		{"duplicate id", []models.PlayerSetup{{ID: "1", Name: "a", Color: "red"}, {ID: "1", Name: "b", Color: "blue"}}},
		{"missing color", []models.PlayerSetup{{ID: "1", Name: "a"}, {ID: "2", Name: "b", Color: "blue"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.seats, Options{})
			assert.True(t, errors.Is(err, ErrInvalidSetup), "got %v", err)
		})
	}
}

func TestNewGameStartsAwaitingRoll(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats)

	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())
	assert.Equal(t, "p1", e.CurrentPlayer().ID)
	for _, p := range e.Players() {
		assert.Equal(t, 1500, p.Cash)
		assert.Zero(t, p.Position)
	}
	assert.Len(t, e.Board(), models.BoardSize)
	assert.Empty(t, e.Monopolies())
}

func TestRollAndBuy(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 2})

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogRoll))
	assert.Equal(t, models.LogBuy, lastEntry(t, logs).Category)
	assert.Equal(t, 3, e.CurrentPlayer().Position)

	logs = e.Buy()
	entry := lastEntry(t, logs)
	assert.Equal(t, models.LogBuySuccess, entry.Category)
	assert.Contains(t, entry.Message, "Baltic Avenue")

	alice := e.CurrentPlayer()
	assert.Equal(t, 1440, alice.Cash)
	assert.Equal(t, []int{3}, alice.OwnedTileIDs)

	tile, err := e.Tile(3)
	require.NoError(t, err)
	assert.Equal(t, "p1", tile.OwnerID)

	logs = e.Buy()
	assert.Equal(t, models.ReasonAlreadyOwned, lastEntry(t, logs).Reason)
	checkInvariants(t, e)
}

func TestBuyFailures(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats)
	alice := e.players[0]

	logs := e.Buy()
	assert.Equal(t, models.LogBuyFail, lastEntry(t, logs).Category)
	assert.Equal(t, models.ReasonNotPurchasable, lastEntry(t, logs).Reason)

	placeAt(alice, 39)
	e.pendingPurchase = 39
	alice.Debit(alice.Cash() - 100)
	logs = e.Buy()
	assert.Equal(t, models.ReasonCannotAfford, lastEntry(t, logs).Reason)
	assert.Equal(t, 100, alice.Cash())
}

func TestBuyNeedsPendingOffer(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 2}, [2]int{2, 3}, [2]int{4, 2})
	alice := e.players[0]

	e.Roll()
	logs := e.Auction(map[string]int{})
	assert.Contains(t, lastEntry(t, logs).Message, "stays with the bank")

	logs = e.Buy()
	entry := lastEntry(t, logs)
	assert.Equal(t, models.LogBuyFail, entry.Category)
	assert.Equal(t, models.ReasonNoPendingPurchase, entry.Reason)
	tile, err := e.Tile(3)
	require.NoError(t, err)
	assert.Empty(t, tile.OwnerID)
	assert.Equal(t, 1500, alice.Cash())

	// Bob and Cara pass, then Alice stands on Baltic again before rolling
	e.EndTurn()
	e.Roll()
	e.EndTurn()
	e.Roll()
	e.EndTurn()
	require.Equal(t, "p1", e.CurrentPlayer().ID)
	require.Equal(t, models.PhaseAwaitingRoll, e.Phase())

	logs = e.Buy()
	assert.Equal(t, models.ReasonNoPendingPurchase, lastEntry(t, logs).Reason)
	assert.Empty(t, alice.Properties())
	checkInvariants(t, e)
}

func TestEndTurnRequiresRoll(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 2})

	logs := e.EndTurn()
	entry := lastEntry(t, logs)
	assert.Equal(t, models.LogEndTurnFail, entry.Category)
	assert.Equal(t, models.ReasonMustRollFirst, entry.Reason)
	assert.Equal(t, "p1", e.CurrentPlayer().ID)

	e.Roll()
	assert.Equal(t, models.PhaseAwaitingEndTurn, e.Phase())

	logs = e.Roll()
	assert.Equal(t, models.ReasonAlreadyRolled, lastEntry(t, logs).Reason)

	logs = e.EndTurn()
	assert.True(t, hasCategory(logs, models.LogEndTurn))
	assert.Equal(t, "p2", e.CurrentPlayer().ID)
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())
}

func TestTurnOrderWraps(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{4, 5})

	for _, want := range []string{"p2", "p3", "p1"} {
		e.Roll()
		e.EndTurn()
		assert.Equal(t, want, e.CurrentPlayer().ID)
	}
}

func TestDoublesAllowAnotherRoll(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{3, 3}, [2]int{1, 2})

	logs := e.Roll()
	require.GreaterOrEqual(t, len(logs), 3)
	assert.Equal(t, "Alice rolled 3 and 3", logs[0].Message)
	assert.Equal(t, models.LogRoll, logs[1].Category)
	assert.Equal(t, "Alice rolled doubles and will roll again", logs[1].Message)
	assert.Equal(t, models.PhaseAwaitingRoll, e.Phase())
	assert.Equal(t, 1, e.State().Doubles)

	logs = e.Roll()
	for _, entry := range logs {
		assert.NotContains(t, entry.Message, "roll again")
	}
	assert.Equal(t, models.PhaseAwaitingEndTurn, e.Phase())
	assert.Equal(t, 9, e.CurrentPlayer().Position)
}

func TestThreeDoublesSendsToJail(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{3, 3}, [2]int{4, 4}, [2]int{5, 5})

	e.Roll()
	e.Roll()
	assert.Equal(t, 14, e.CurrentPlayer().Position)

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogJail))
	for _, entry := range logs {
		assert.NotContains(t, entry.Message, "roll again")
	}

	alice := e.CurrentPlayer()
	assert.True(t, alice.InJail)
	assert.Equal(t, models.JailPosition, alice.Position)
	assert.Equal(t, 1500, alice.Cash)
	assert.Equal(t, models.PhaseAwaitingEndTurn, e.Phase())

	e.EndTurn()
	assert.Equal(t, "p2", e.CurrentPlayer().ID)
}

func TestPassingGoByRoll(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 2})
	placeAt(e.players[0], 37)

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogPassGo))
	assert.Equal(t, 0, e.CurrentPlayer().Position)
	assert.Equal(t, 1700, e.CurrentPlayer().Cash)
}

func TestGoToJailTile(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{2, 3})
	placeAt(e.players[0], 25)

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogJail))
	assert.True(t, e.CurrentPlayer().InJail)
	assert.Equal(t, 1500, e.CurrentPlayer().Cash)
	assert.Equal(t, models.PhaseAwaitingEndTurn, e.Phase())
}

func TestTaxIsDebited(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 3})

	logs := e.Roll()
	assert.Equal(t, models.LogTax, lastEntry(t, logs).Category)
	assert.Equal(t, 1300, e.CurrentPlayer().Cash)
}

func TestChanceCardMovesAndResolves(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{3, 4})

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogCard))
	assert.Equal(t, 39, e.CurrentPlayer().Position)
	assert.Equal(t, models.LogBuy, lastEntry(t, logs).Category)

	state := e.State()
	require.NotNil(t, state.PendingPurchase)
	assert.Equal(t, 39, *state.PendingPurchase)
}

func TestCommunityChestAdvanceToGo(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 1}, [2]int{1, 2})

	logs := e.Roll()
	assert.True(t, hasCategory(logs, models.LogCard))
	assert.True(t, hasCategory(logs, models.LogPassGo))
	assert.Equal(t, 0, e.CurrentPlayer().Position)
	assert.Equal(t, 1700, e.CurrentPlayer().Cash)
}

func TestQuitReturnsHoldingsToBank(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats)
	alice := e.players[0]
	give(t, e, alice, "Mediterranean Avenue")
	give(t, e, alice, "Baltic Avenue")
	require.NoError(t, e.board.BuildHouse(1))
	require.Equal(t, map[string]string{"brown": "Alice"}, e.Monopolies())

	logs := e.Quit()
	assert.Equal(t, models.LogQuit, logs[0].Category)
	assert.Len(t, e.Players(), 2)
	assert.Equal(t, "p2", e.CurrentPlayer().ID)
	assert.Empty(t, e.Monopolies())

	tile, _ := e.Tile(1)
	assert.Empty(t, tile.OwnerID)
	assert.Zero(t, tile.Houses)
	checkInvariants(t, e)
}

func TestQuitLastOpponentEndsGame(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats[:2])

	logs := e.Quit()
	assert.Equal(t, models.LogGameOver, lastEntry(t, logs).Category)
	assert.Equal(t, models.PhaseGameOver, e.Phase())

	winner, ok := e.Winner()
	require.True(t, ok)
	assert.Equal(t, "Bob", winner.Name)

	for _, cmd := range []func() []models.LogEntry{e.Roll, e.Buy, e.EndTurn, e.PayJail, e.Quit} {
		assert.Equal(t, models.ReasonGameOver, lastEntry(t, cmd()).Reason)
	}
	assert.Empty(t, e.Buildable())
	assert.Len(t, e.Standings(), 2)
}

func TestQuitNonFirstPlayerKeepsOrder(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 2})
	e.Roll()
	e.EndTurn()
	require.Equal(t, "p2", e.CurrentPlayer().ID)

	e.Quit()
	assert.Equal(t, "p3", e.CurrentPlayer().ID)

	e.Roll()
	e.EndTurn()
	assert.Equal(t, "p1", e.CurrentPlayer().ID)
}

func TestHistoryAccumulates(t *testing.T) {
	e, _ := newTestEngine(t, threeSeats, [2]int{1, 2})

	first := e.Roll()
	second := e.EndTurn()
	assert.Equal(t, append(first, second...), e.History())
}

func TestRandomPlayoutKeepsInvariants(t *testing.T) {
	e, err := New(threeSeats, Options{Dice: NewRandomDice(42)})
	require.NoError(t, err)

	for step := 0; step < 600 && e.Phase() != models.PhaseGameOver; step++ {
		current := e.CurrentPlayer()
		switch {
		case current.InJail && e.Phase() == models.PhaseAwaitingRoll:
			if current.Cash >= 50 && step%2 == 0 {
				e.PayJail()
			} else {
				e.RollJail()
			}
		case e.Phase() == models.PhaseAwaitingRoll:
			e.Roll()
		default:
			if state := e.State(); state.PendingPurchase != nil {
				if e.CurrentPlayer().Cash > 400 {
					e.Buy()
				} else {
					e.Auction(map[string]int{"p2": 10, "p3": 20})
				}
			}
			for _, name := range e.Buildable() {
				e.Build(name, 1)
			}
			e.EndTurn()
		}
		checkInvariants(t, e)
	}
}
