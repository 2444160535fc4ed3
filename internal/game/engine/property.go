package engine

import (
	"strconv"

	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

// Buy purchases the tile under the current player from the bank
func (e *Engine) Buy() []models.LogEntry {
	return e.command("buy", models.LogBuyFail, func(l *logBuf) {
		p := e.currentPlayer()
		tile, err := e.board.Tile(p.Position())
		if err != nil {
			l.reject(models.LogBuyFail, err)
			return
		}
		if err := e.canBuy(p, tile); err != nil {
			l.reject(models.LogBuyFail, err)
			return
		}

		e.transferFromBank(p, tile.ID, tile.Price)
		l.add(models.LogBuySuccess, "%s bought %s for $%d", p.Name, tile.Name, tile.Price)
		e.logger.Infow("Property bought", "player", p.Name, "tile", tile.Name, "price", tile.Price)
	})
}

func (e *Engine) canBuy(p *player.Player, tile models.TileSnapshot) error {
	if !tile.Kind.Purchasable() {
		return reject(models.ReasonNotPurchasable, "%s cannot be bought", tile.Name)
	}
	if tile.OwnerID != "" {
		owner := tile.OwnerID
		if o := e.playerByID(owner); o != nil {
			owner = o.Name
		}
		return reject(models.ReasonAlreadyOwned, "%s is already owned by %s", tile.Name, owner)
	}
	if e.pendingPurchase != tile.ID {
		return reject(models.ReasonNoPendingPurchase, "%s is not up for purchase; land on it first", tile.Name)
	}
	if tile.Price > p.Cash() {
		return reject(models.ReasonCannotAfford, "%s cannot afford %s for $%d", p.Name, tile.Name, tile.Price)
	}
	return nil
}

func (e *Engine) transferFromBank(p *player.Player, id, price int) {
	p.Debit(price)
	_ = e.board.SetOwner(id, p.ID)
	p.AddProperty(id)
	e.pendingPurchase = -1
	e.board.RecomputeMonopolies()
}

// Auction sells the tile the current player declined to buy. bids maps player
// id to amount; the highest bid the bidder can cover wins and ties go to the
// bidder closest in turn order to the current player.
func (e *Engine) Auction(bids map[string]int) []models.LogEntry {
	return e.command("auction", models.LogAuctionFail, func(l *logBuf) {
		if e.pendingPurchase < 0 {
			l.reject(models.LogAuctionFail, reject(models.ReasonNoPendingPurchase, "there is no property up for auction"))
			return
		}
		tile, _ := e.board.Tile(e.pendingPurchase)

		var winner *player.Player
		best := 0
		current := e.currentPlayer()
		for _, p := range append([]*player.Player{current}, e.others(current)...) {
			bid, ok := bids[p.ID]
			if !ok || bid <= 0 || bid > p.Cash() {
				continue
			}
			if bid > best {
				winner, best = p, bid
			}
		}

		if winner == nil {
			e.pendingPurchase = -1
			l.add(models.LogAuctionSuccess, "%s received no valid bids and stays with the bank", tile.Name)
			return
		}

		e.transferFromBank(winner, tile.ID, best)
		l.add(models.LogAuctionSuccess, "%s won %s at auction for $%d", winner.Name, tile.Name, best)
	})
}

// ownedTile resolves a tile name the player must own
func (e *Engine) ownedTile(p *player.Player, name string) (models.TileSnapshot, error) {
	id, err := e.board.TileIDByName(name)
	if err != nil {
		return models.TileSnapshot{}, reject(models.ReasonNotFound, "there is no property called %q", name)
	}
	tile, _ := e.board.Tile(id)
	if !tile.Kind.Purchasable() {
		return models.TileSnapshot{}, reject(models.ReasonNotFound, "there is no property called %q", name)
	}
	if tile.OwnerID != p.ID {
		return models.TileSnapshot{}, reject(models.ReasonNotOwner, "%s does not own %s", p.Name, tile.Name)
	}
	return tile, nil
}

// groupLevels maps each tile of the group to its house count
func (e *Engine) groupLevels(group string) map[int]int {
	levels := make(map[int]int)
	for _, id := range e.board.GroupTileIDs(group) {
		t, _ := e.board.Tile(id)
		levels[id] = t.Houses
	}
	return levels
}

func minMax(levels map[int]int) (lo, hi int) {
	first := true
	for _, n := range levels {
		if first {
			lo, hi, first = n, n, false
			continue
		}
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return lo, hi
}

func (e *Engine) groupMortgaged(group string) bool {
	for _, id := range e.board.GroupTileIDs(group) {
		if t, _ := e.board.Tile(id); t.Mortgaged {
			return true
		}
	}
	return false
}

func (e *Engine) groupBuilt(group string) bool {
	_, hi := minMax(e.groupLevels(group))
	return hi > 0
}

// canBuild checks that count houses can be added to the tile one at a time
// without breaking the build-evenly rule
func (e *Engine) canBuild(p *player.Player, tile models.TileSnapshot, count int) error {
	if count < 1 {
		return reject(models.ReasonInvalidCount, "house count must be at least 1")
	}
	if tile.Kind != models.TileStreet || e.board.MonopolyOwner(tile.ColorGroup) != p.ID {
		return reject(models.ReasonNoMonopoly, "%s does not hold every property in the %s group", p.Name, tile.ColorGroup)
	}
	if e.groupMortgaged(tile.ColorGroup) {
		return reject(models.ReasonMortgaged, "a property in the %s group is mortgaged", tile.ColorGroup)
	}
	if cost := tile.HouseCost * count; cost > p.Cash() {
		return reject(models.ReasonCannotAfford, "%s cannot afford $%d for %d houses on %s", p.Name, cost, count, tile.Name)
	}

	levels := e.groupLevels(tile.ColorGroup)
	for i := 0; i < count; i++ {
		if levels[tile.ID] >= models.HotelLevel {
			return reject(models.ReasonMaxHouses, "%s already has a hotel", tile.Name)
		}
		if lo, _ := minMax(levels); levels[tile.ID] > lo {
			return reject(models.ReasonUneven, "houses must be built evenly across the %s group", tile.ColorGroup)
		}
		levels[tile.ID]++
	}
	return nil
}

// canSell checks the reverse evenness rule for removing count houses
func (e *Engine) canSell(tile models.TileSnapshot, count int) error {
	if count < 1 {
		return reject(models.ReasonInvalidCount, "house count must be at least 1")
	}
	if tile.Houses < count {
		return reject(models.ReasonNoHouses, "%s has only %d houses", tile.Name, tile.Houses)
	}

	levels := e.groupLevels(tile.ColorGroup)
	for i := 0; i < count; i++ {
		if _, hi := minMax(levels); levels[tile.ID] < hi {
			return reject(models.ReasonUneven, "houses must be sold evenly across the %s group", tile.ColorGroup)
		}
		levels[tile.ID]--
	}
	return nil
}

func houseWord(houses int) string {
	switch houses {
	case models.HotelLevel:
		return "a hotel"
	case 1:
		return "1 house"
	default:
		return strconv.Itoa(houses) + " houses"
	}
}

// Build adds count houses to the named street
func (e *Engine) Build(name string, count int) []models.LogEntry {
	return e.command("build", models.LogBuildFail, func(l *logBuf) {
		p := e.currentPlayer()
		tile, err := e.ownedTile(p, name)
		if err == nil {
			err = e.canBuild(p, tile, count)
		}
		if err != nil {
			l.reject(models.LogBuildFail, err)
			return
		}

		for i := 0; i < count; i++ {
			_ = e.board.BuildHouse(tile.ID)
		}
		cost := tile.HouseCost * count
		p.Debit(cost)
		l.add(models.LogBuildSuccess, "%s built on %s for $%d, it now has %s", p.Name, tile.Name, cost, houseWord(tile.Houses+count))
	})
}

// Sell removes count houses from the named street at half the house cost
func (e *Engine) Sell(name string, count int) []models.LogEntry {
	return e.command("sell", models.LogBuildFail, func(l *logBuf) {
		p := e.currentPlayer()
		tile, err := e.ownedTile(p, name)
		if err == nil {
			err = e.canSell(tile, count)
		}
		if err != nil {
			l.reject(models.LogBuildFail, err)
			return
		}

		for i := 0; i < count; i++ {
			_ = e.board.SellHouse(tile.ID)
		}
		refund := tile.HouseCost / 2 * count
		p.Credit(refund)
		l.add(models.LogBuildSuccess, "%s sold %s from %s for $%d", p.Name, houseWord(count), tile.Name, refund)
	})
}

func (e *Engine) canMortgage(tile models.TileSnapshot) error {
	if tile.Mortgaged {
		return reject(models.ReasonMortgaged, "%s is already mortgaged", tile.Name)
	}
	if tile.Kind == models.TileStreet && e.groupBuilt(tile.ColorGroup) {
		return reject(models.ReasonHasBuildings, "sell every house in the %s group before mortgaging %s", tile.ColorGroup, tile.Name)
	}
	return nil
}

func unmortgageCost(tile models.TileSnapshot) int {
	return tile.Price * 6 / 10
}

// Mortgage pledges the named property to the bank
func (e *Engine) Mortgage(name string) []models.LogEntry {
	return e.command("mortgage", models.LogMortgageFail, func(l *logBuf) {
		p := e.currentPlayer()
		tile, err := e.ownedTile(p, name)
		if err == nil {
			err = e.canMortgage(tile)
		}
		if err != nil {
			l.reject(models.LogMortgageFail, err)
			return
		}

		_ = e.board.SetMortgaged(tile.ID, true)
		p.Credit(tile.MortgageValue)
		l.add(models.LogMortgageSuccess, "%s mortgaged %s for $%d", p.Name, tile.Name, tile.MortgageValue)
	})
}

// Unmortgage lifts the mortgage for 60% of the purchase price
func (e *Engine) Unmortgage(name string) []models.LogEntry {
	return e.command("unmortgage", models.LogMortgageFail, func(l *logBuf) {
		p := e.currentPlayer()
		tile, err := e.ownedTile(p, name)
		if err != nil {
			l.reject(models.LogMortgageFail, err)
			return
		}
		if !tile.Mortgaged {
			l.reject(models.LogMortgageFail, reject(models.ReasonNotMortgaged, "%s is not mortgaged", tile.Name))
			return
		}
		cost := unmortgageCost(tile)
		if cost > p.Cash() {
			l.reject(models.LogMortgageFail, reject(models.ReasonInsufficientFunds, "%s does not have $%d to unmortgage %s", p.Name, cost, tile.Name))
			return
		}

		p.Debit(cost)
		_ = e.board.SetMortgaged(tile.ID, false)
		l.add(models.LogMortgageSuccess, "%s unmortgaged %s for $%d", p.Name, tile.Name, cost)
	})
}

// ownedTiles returns snapshots of the current player's tiles in board order
func (e *Engine) ownedTiles() []models.TileSnapshot {
	if e.gameOver {
		return nil
	}
	p := e.currentPlayer()
	var out []models.TileSnapshot
	for _, id := range p.Properties() {
		t, _ := e.board.Tile(id)
		out = append(out, t)
	}
	return out
}

// Buildable lists the streets the current player can add a house to right now
func (e *Engine) Buildable() []string {
	names := []string{}
	for _, t := range e.ownedTiles() {
		if e.canBuild(e.currentPlayer(), t, 1) == nil {
			names = append(names, t.Name)
		}
	}
	return names
}

// Sellable lists the streets the current player can remove a house from
func (e *Engine) Sellable() []string {
	names := []string{}
	for _, t := range e.ownedTiles() {
		if t.Houses > 0 && e.canSell(t, 1) == nil {
			names = append(names, t.Name)
		}
	}
	return names
}

// Mortgageable lists the current player's properties that can be mortgaged
func (e *Engine) Mortgageable() []string {
	names := []string{}
	for _, t := range e.ownedTiles() {
		if e.canMortgage(t) == nil {
			names = append(names, t.Name)
		}
	}
	return names
}

// Unmortgageable lists mortgaged properties the current player can afford to redeem
func (e *Engine) Unmortgageable() []string {
	names := []string{}
	for _, t := range e.ownedTiles() {
		if t.Mortgaged && unmortgageCost(t) <= e.currentPlayer().Cash() {
			names = append(names, t.Name)
		}
	}
	return names
}
