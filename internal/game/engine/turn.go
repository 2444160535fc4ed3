package engine

import (
	"github.com/adamnnoli/monopoly/internal/game/cards"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

// Roll rolls the dice for the current player, moves the token and resolves the
// landing tile. Doubles leave the turn open for another roll; a third double
// sends the player to jail without moving.
func (e *Engine) Roll() []models.LogEntry {
	return e.command("roll", models.LogRollFail, func(l *logBuf) {
		p := e.currentPlayer()
		if p.InJail() {
			l.reject(models.LogRollFail, reject(models.ReasonInJail, "%s is in jail and must pay, use a card or roll for doubles", p.Name))
			return
		}
		if e.hasRolled {
			l.reject(models.LogRollFail, reject(models.ReasonAlreadyRolled, "%s has already rolled this turn", p.Name))
			return
		}

		d1, d2 := e.dice.Roll()
		e.lastRoll = d1 + d2
		l.add(models.LogRoll, "%s rolled %d and %d", p.Name, d1, d2)

		if d1 == d2 {
			e.doubles++
			if e.doubles == 3 {
				l.add(models.LogJail, "%s rolled doubles three times in a row and goes to jail", p.Name)
				e.sendToJail(p)
				return
			}
			l.add(models.LogRoll, "%s rolled doubles and will roll again", p.Name)
		} else {
			e.hasRolled = true
		}

		e.move(p, e.lastRoll, l)
		e.resolveTile(p, cards.RentNormal, l)
	})
}

// EndTurn passes play to the next active player
func (e *Engine) EndTurn() []models.LogEntry {
	return e.command("endTurn", models.LogEndTurnFail, func(l *logBuf) {
		p := e.currentPlayer()
		if !e.hasRolled {
			l.reject(models.LogEndTurnFail, reject(models.ReasonMustRollFirst, "%s must roll before ending the turn", p.Name))
			return
		}
		l.add(models.LogEndTurn, "%s ended the turn", p.Name)
		e.current = (e.current + 1) % len(e.players)
		e.startTurn(l)
	})
}

// Quit removes the current player and returns their holdings to the bank
func (e *Engine) Quit() []models.LogEntry {
	return e.command("quit", models.LogQuit, func(l *logBuf) {
		p := e.currentPlayer()
		l.add(models.LogQuit, "%s quit the game", p.Name)
		e.retireToBank(p, l)
	})
}

func (e *Engine) resetTurn() {
	e.hasRolled = false
	e.doubles = 0
	e.lastRoll = 0
	e.pendingPurchase = -1
}

// startTurn resets turn state and settles a jail sentence that has run out
func (e *Engine) startTurn(l *logBuf) {
	e.resetTurn()
	p := e.currentPlayer()
	l.add(models.LogEndTurn, "It is now %s's turn", p.Name)
	e.checkJail(p, l)
}

func (e *Engine) move(p *player.Player, steps int, l *logBuf) {
	e.pendingPurchase = -1
	if laps := p.MoveBy(steps); laps > 0 {
		l.add(models.LogPassGo, "%s passed GO and collected $%d", p.Name, laps*e.rules.GoSalary)
	}
	l.add(models.LogRoll, "%s landed on %s", p.Name, e.tileName(p.Position()))
}

func (e *Engine) sendToJail(p *player.Player) {
	p.SendToJail()
	e.hasRolled = true
	e.doubles = 0
	e.pendingPurchase = -1
	e.logger.Infow("Player sent to jail", "player", p.Name)
}

// resolveTile applies the landing effect of the tile under p
func (e *Engine) resolveTile(p *player.Player, rule cards.RentRule, l *logBuf) {
	tile, err := e.board.Tile(p.Position())
	if err != nil {
		l.reject(models.LogRollFail, err)
		return
	}

	switch tile.Kind {
	case models.TileChance:
		e.drawCard(p, e.decks.Chance, l)
	case models.TileCommunityChest:
		e.drawCard(p, e.decks.CommunityChest, l)
	case models.TileTax:
		if p.Cash() < tile.Tax {
			e.bankruptToBank(p, tile.Tax, l)
			return
		}
		p.Debit(tile.Tax)
		l.add(models.LogTax, "%s paid $%d in %s", p.Name, tile.Tax, tile.Name)
	case models.TileGoToJail:
		l.add(models.LogJail, "%s goes to jail", p.Name)
		e.sendToJail(p)
	case models.TileStreet, models.TileRailroad, models.TileUtility:
		e.resolveProperty(p, tile, rule, l)
	}
}

func (e *Engine) resolveProperty(p *player.Player, tile models.TileSnapshot, rule cards.RentRule, l *logBuf) {
	if tile.OwnerID == "" {
		e.pendingPurchase = tile.ID
		l.add(models.LogBuy, "%s may buy %s for $%d", p.Name, tile.Name, tile.Price)
		return
	}
	if tile.OwnerID == p.ID {
		return
	}
	owner := e.playerByID(tile.OwnerID)
	if owner == nil {
		return
	}
	if tile.Mortgaged {
		l.add(models.LogRent, "%s is mortgaged, no rent is due to %s", tile.Name, owner.Name)
		return
	}

	rent := e.rentFor(tile, rule)
	if p.Cash() < rent {
		e.bankruptToPlayer(p, owner, rent, l)
		return
	}
	p.Debit(rent)
	owner.Credit(rent)
	l.add(models.LogRent, "%s paid $%d rent to %s for %s", p.Name, rent, owner.Name, tile.Name)
}

// rentFor computes the rent owed on an owned, unmortgaged tile
func (e *Engine) rentFor(tile models.TileSnapshot, rule cards.RentRule) int {
	switch tile.Kind {
	case models.TileRailroad:
		n := e.board.CountOwned(models.TileRailroad, tile.OwnerID)
		if n >= len(railroadRent) {
			n = len(railroadRent) - 1
		}
		rent := railroadRent[n]
		if rule == cards.RentDoubleRailroad {
			rent *= 2
		}
		return rent
	case models.TileUtility:
		multiplier := utilityMultiplierOne
		if rule == cards.RentTenTimesDice || e.board.CountOwned(models.TileUtility, tile.OwnerID) >= 2 {
			multiplier = utilityMultiplierBoth
		}
		return multiplier * e.lastRoll
	default:
		if tile.Houses == 0 {
			if e.board.MonopolyOwner(tile.ColorGroup) == tile.OwnerID {
				return tile.Rent[0] * 2
			}
			return tile.Rent[0]
		}
		return tile.Rent[tile.Houses]
	}
}

func (e *Engine) drawCard(p *player.Player, deck *cards.Deck, l *logBuf) {
	card := deck.Draw()
	l.add(models.LogCard, "%s drew %s: %s", p.Name, deck.Name(), card.Text)

	res := card.Apply(p, e.board, e.others(p))
	l.append(res.Entries...)

	switch {
	case res.GoToJail:
		l.add(models.LogJail, "%s goes to jail", p.Name)
		e.sendToJail(p)
	case p.Cash() < 0:
		e.bankruptToBank(p, -p.Cash(), l)
	case res.Resolve:
		e.resolveTile(p, res.Rent, l)
	}
}

// bankruptToBank handles a debt to the bank the player cannot pay
func (e *Engine) bankruptToBank(p *player.Player, owed int, l *logBuf) {
	l.add(models.LogBankruptcyBank, "%s cannot pay $%d to the bank and is bankrupt; all holdings return to the bank", p.Name, owed)
	e.retireToBank(p, l)
}

// retireToBank returns every tile to the bank unimproved and unmortgaged,
// then removes the player
func (e *Engine) retireToBank(p *player.Player, l *logBuf) {
	for _, id := range p.Properties() {
		_ = e.board.SetOwner(id, "")
		p.RemoveProperty(id)
	}
	e.board.RecomputeMonopolies()
	e.removePlayer(p, l)
}

// bankruptToPlayer hands everything the debtor has to the creditor. Houses are
// sold to the bank at half price first; mortgaged tiles stay mortgaged and the
// creditor pays the 10% transfer interest when they can.
func (e *Engine) bankruptToPlayer(debtor, creditor *player.Player, owed int, l *logBuf) {
	for _, id := range debtor.Properties() {
		tile, _ := e.board.Tile(id)
		if n := e.board.ClearHouses(id); n > 0 {
			debtor.Credit(n * tile.HouseCost / 2)
		}
	}

	cash := debtor.Cash()
	if cash > 0 {
		debtor.Debit(cash)
		creditor.Credit(cash)
	} else {
		cash = 0
	}

	properties := debtor.Properties()
	interest := 0
	for _, id := range properties {
		tile, _ := e.board.Tile(id)
		_ = e.board.SetOwner(id, creditor.ID)
		debtor.RemoveProperty(id)
		creditor.AddProperty(id)
		if tile.Mortgaged {
			fee := tile.MortgageValue / 10
			if creditor.Cash() >= fee {
				creditor.Debit(fee)
				interest += fee
			}
		}
	}
	if n := debtor.JailCards(); n > 0 {
		creditor.AddJailCard(n)
		debtor.AddJailCard(-n)
	}
	e.board.RecomputeMonopolies()

	l.add(models.LogBankruptcyPlayer, "%s cannot pay $%d to %s and is bankrupt; %s receives $%d and %d properties",
		debtor.Name, owed, creditor.Name, creditor.Name, cash, len(properties))
	if interest > 0 {
		l.add(models.LogBankruptcyPlayer, "%s paid $%d interest on mortgaged properties received from %s", creditor.Name, interest, debtor.Name)
	}
	e.removePlayer(debtor, l)
}

// removePlayer drops p from the roster and hands the turn on. The player that
// followed p takes the vacated index.
func (e *Engine) removePlayer(p *player.Player, l *logBuf) {
	idx := e.indexOf(p)
	if idx < 0 {
		return
	}
	wasCurrent := idx == e.current

	e.players = append(e.players[:idx], e.players[idx+1:]...)
	e.retired = append(e.retired, p)
	e.logger.Infow("Player left the game", "player", p.Name, "remaining", len(e.players))

	if len(e.players) == 1 {
		e.gameOver = true
		e.winner = e.players[0]
		e.current = 0
		e.resetTurn()
		l.add(models.LogGameOver, "%s wins the game", e.winner.Name)
		e.logger.Infow("Game over", "winner", e.winner.Name)
		return
	}

	if idx < e.current {
		e.current--
	}
	if wasCurrent {
		e.current = idx % len(e.players)
		e.startTurn(l)
	}
}
