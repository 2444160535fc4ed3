package engine

import (
	"github.com/adamnnoli/monopoly/internal/game/cards"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

// maxJailAttempts is the number of failed doubles rolls before release is forced
const maxJailAttempts = 3

// PayJail pays the fine to leave jail. The player may roll afterwards.
func (e *Engine) PayJail() []models.LogEntry {
	return e.command("payJail", models.LogJailFail, func(l *logBuf) {
		p := e.currentPlayer()
		if !p.InJail() {
			l.reject(models.LogJailFail, reject(models.ReasonNotInJail, "%s is not in jail", p.Name))
			return
		}
		if p.Cash() < e.rules.JailFine {
			l.reject(models.LogJailFail, reject(models.ReasonInsufficientFunds, "%s does not have $%d", p.Name, e.rules.JailFine))
			return
		}
		p.Debit(e.rules.JailFine)
		p.ReleaseFromJail()
		l.add(models.LogJailSuccess, "%s paid $%d to leave jail", p.Name, e.rules.JailFine)
	})
}

// CardJail spends a Get Out of Jail Free card
func (e *Engine) CardJail() []models.LogEntry {
	return e.command("cardJail", models.LogJailFail, func(l *logBuf) {
		p := e.currentPlayer()
		if !p.InJail() {
			l.reject(models.LogJailFail, reject(models.ReasonNotInJail, "%s is not in jail", p.Name))
			return
		}
		if err := p.UseJailCard(); err != nil {
			l.reject(models.LogJailFail, reject(models.ReasonNoJailCard, "%s does not have any Get Out of Jail Free cards", p.Name))
			return
		}
		p.ReleaseFromJail()
		l.add(models.LogJailSuccess, "%s used a Get Out of Jail Free card to leave jail", p.Name)
	})
}

// RollJail tries for doubles. Doubles release the player, who moves by the
// roll and ends the rolling part of the turn; otherwise the attempt is counted.
func (e *Engine) RollJail() []models.LogEntry {
	return e.command("rollJail", models.LogJailFail, func(l *logBuf) {
		p := e.currentPlayer()
		if !p.InJail() {
			l.reject(models.LogJailFail, reject(models.ReasonNotInJail, "%s is not in jail", p.Name))
			return
		}
		if e.hasRolled {
			l.reject(models.LogJailFail, reject(models.ReasonAlreadyRolled, "%s has already rolled this turn", p.Name))
			return
		}

		d1, d2 := e.dice.Roll()
		e.lastRoll = d1 + d2
		e.hasRolled = true
		l.add(models.LogRoll, "%s rolled %d and %d", p.Name, d1, d2)

		if d1 != d2 {
			p.IncrementJailTurns()
			l.add(models.LogJailSuccess, "%s did not roll doubles and is still in jail", p.Name)
			return
		}

		p.ReleaseFromJail()
		l.add(models.LogJailSuccess, "%s rolled doubles and left jail", p.Name)
		e.move(p, e.lastRoll, l)
		e.resolveTile(p, cards.RentNormal, l)
	})
}

// checkJail runs at turn start. A player who has used up their doubles
// attempts pays the fine and leaves, or goes bankrupt if they cannot.
func (e *Engine) checkJail(p *player.Player, l *logBuf) {
	if !p.InJail() || p.TurnsInJail() < maxJailAttempts {
		return
	}
	if p.Cash() < e.rules.JailFine {
		e.bankruptToBank(p, e.rules.JailFine, l)
		return
	}
	p.Debit(e.rules.JailFine)
	p.ReleaseFromJail()
	l.add(models.LogJailSuccess, "%s served the full sentence, paid $%d and left jail", p.Name, e.rules.JailFine)
}
