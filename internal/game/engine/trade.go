package engine

import (
	"fmt"
	"strings"

	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

// Trade exchanges cash, properties and jail cards between the current player
// and one other player. Both offers are validated before anything moves.
func (e *Engine) Trade(mine, theirs models.TradeOffer) []models.LogEntry {
	return e.command("trade", models.LogTradeFail, func(l *logBuf) {
		p := e.currentPlayer()
		if mine.Player != "" && e.findPlayer(mine.Player) != p {
			l.reject(models.LogTradeFail, reject(models.ReasonInvalidTrade, "the first offer must come from %s", p.Name))
			return
		}
		other := e.findPlayer(theirs.Player)
		if other == nil {
			l.reject(models.LogTradeFail, reject(models.ReasonNotFound, "there is no player called %q", theirs.Player))
			return
		}
		if other == p {
			l.reject(models.LogTradeFail, reject(models.ReasonInvalidTrade, "%s cannot trade with themselves", p.Name))
			return
		}
		if offerEmpty(mine) && offerEmpty(theirs) {
			l.reject(models.LogTradeFail, reject(models.ReasonInvalidTrade, "neither side offered anything"))
			return
		}

		give, err := e.checkTrade(p, mine)
		if err != nil {
			l.reject(models.LogTradeFail, err)
			return
		}
		take, err := e.checkTrade(other, theirs)
		if err != nil {
			l.reject(models.LogTradeFail, err)
			return
		}

		e.applyOffer(p, other, mine, give)
		e.applyOffer(other, p, theirs, take)
		e.board.RecomputeMonopolies()

		l.add(models.LogTradeSuccess, "%s traded %s to %s for %s",
			p.Name, e.describeOffer(mine, give), other.Name, e.describeOffer(theirs, take))
		e.logger.Infow("Trade completed", "from", p.Name, "to", other.Name)
	})
}

func offerEmpty(o models.TradeOffer) bool {
	return o.Cash == 0 && o.JailCards == 0 && len(o.Properties) == 0
}

// checkTrade verifies that side holds everything it offers and returns the
// resolved tile ids
func (e *Engine) checkTrade(side *player.Player, offer models.TradeOffer) ([]int, error) {
	if offer.Cash < 0 || offer.JailCards < 0 {
		return nil, reject(models.ReasonInvalidTrade, "trade amounts cannot be negative")
	}
	if offer.Cash > side.Cash() {
		return nil, reject(models.ReasonInsufficientFunds, "%s does not have $%d", side.Name, offer.Cash)
	}
	if offer.JailCards > side.JailCards() {
		return nil, reject(models.ReasonNoJailCard, "%s does not have %d Get Out of Jail Free cards", side.Name, offer.JailCards)
	}

	ids := make([]int, 0, len(offer.Properties))
	seen := make(map[int]bool)
	for _, name := range offer.Properties {
		tile, err := e.ownedTile(side, name)
		if err != nil {
			return nil, err
		}
		if seen[tile.ID] {
			return nil, reject(models.ReasonInvalidTrade, "%s is offered twice", tile.Name)
		}
		if tile.Kind == models.TileStreet && e.groupBuilt(tile.ColorGroup) {
			return nil, reject(models.ReasonHasBuildings, "sell every house in the %s group before trading %s", tile.ColorGroup, tile.Name)
		}
		seen[tile.ID] = true
		ids = append(ids, tile.ID)
	}
	return ids, nil
}

// applyOffer moves one side of a validated trade. Mortgaged tiles change hands
// still mortgaged.
func (e *Engine) applyOffer(from, to *player.Player, offer models.TradeOffer, ids []int) {
	from.Debit(offer.Cash)
	to.Credit(offer.Cash)
	from.AddJailCard(-offer.JailCards)
	to.AddJailCard(offer.JailCards)
	for _, id := range ids {
		_ = e.board.SetOwner(id, to.ID)
		from.RemoveProperty(id)
		to.AddProperty(id)
	}
}

func (e *Engine) describeOffer(offer models.TradeOffer, ids []int) string {
	var parts []string
	if offer.Cash > 0 {
		parts = append(parts, fmt.Sprintf("$%d", offer.Cash))
	}
	for _, id := range ids {
		parts = append(parts, e.tileName(id))
	}
	switch {
	case offer.JailCards == 1:
		parts = append(parts, "1 Get Out of Jail Free card")
	case offer.JailCards > 1:
		parts = append(parts, fmt.Sprintf("%d Get Out of Jail Free cards", offer.JailCards))
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}
