package cards

import (
	"fmt"

	"github.com/adamnnoli/monopoly/internal/game/board"
	"github.com/adamnnoli/monopoly/internal/game/models"
	"github.com/adamnnoli/monopoly/internal/game/player"
)

// DefaultEffects returns the effect table for the standard Chance and
// Community Chest decks
func DefaultEffects(goSalary int) EffectTable {
	t := make(EffectTable)

	// Chance
	t.Register("advance-to-boardwalk", AdvanceTo("Boardwalk", goSalary))
	t.Register("advance-to-go", AdvanceTo("GO", goSalary))
	t.Register("advance-to-illinois", AdvanceTo("Illinois Avenue", goSalary))
	t.Register("advance-to-st-charles", AdvanceTo("St. Charles Place", goSalary))
	t.Register("nearest-railroad-1", AdvanceToNearest(models.TileRailroad, RentDoubleRailroad, goSalary))
	t.Register("nearest-railroad-2", AdvanceToNearest(models.TileRailroad, RentDoubleRailroad, goSalary))
	t.Register("nearest-utility", AdvanceToNearest(models.TileUtility, RentTenTimesDice, goSalary))
	t.Register("bank-dividend", Collect(50))
	t.Register("chance-jail-free", JailFreeCard())
	t.Register("go-back-three", MoveBack(3))
	t.Register("chance-go-to-jail", GoToJail())
	t.Register("general-repairs", Repairs(25, 100))
	t.Register("speeding-fine", Pay(15))
	t.Register("trip-to-reading", AdvanceTo("Reading Railroad", goSalary))
	t.Register("chairman-of-the-board", PayEach(50))
	t.Register("building-loan", Collect(150))

	// Community Chest
	t.Register("chest-advance-to-go", AdvanceTo("GO", goSalary))
	t.Register("bank-error", Collect(200))
	t.Register("doctor-fee", Pay(50))
	t.Register("stock-sale", Collect(50))
	t.Register("chest-jail-free", JailFreeCard())
	t.Register("chest-go-to-jail", GoToJail())
	t.Register("opera-night", CollectFromEach(50))
	t.Register("holiday-fund", Collect(100))
	t.Register("tax-refund", Collect(20))
	t.Register("birthday", CollectFromEach(10))
	t.Register("life-insurance", Collect(100))
	t.Register("hospital-fees", Pay(100))
	t.Register("school-fees", Pay(50))
	t.Register("consultancy-fee", Collect(25))
	t.Register("street-repairs", Repairs(40, 115))
	t.Register("beauty-contest", Collect(10))
	t.Register("inheritance", Collect(100))

	return t
}

func passGoEntries(p *player.Player, laps, goSalary int) []models.LogEntry {
	if laps == 0 {
		return nil
	}
	return []models.LogEntry{models.Entry(models.LogPassGo,
		fmt.Sprintf("%s passed GO and collected $%d", p.Name, laps*goSalary))}
}

// AdvanceTo moves the player forward to the named tile and resolves it
func AdvanceTo(tileName string, goSalary int) Effect {
	return func(p *player.Player, b *board.Board, _ []*player.Player) Result {
		id, err := b.TileIDByName(tileName)
		if err != nil {
			return Result{Entries: []models.LogEntry{models.Fail(models.LogCard, models.ReasonNotFound, err.Error())}}
		}
		laps := p.MoveTo(id)
		entries := passGoEntries(p, laps, goSalary)
		entries = append(entries, models.Entry(models.LogCard, fmt.Sprintf("%s advanced to %s", p.Name, tileName)))
		return Result{Entries: entries, Resolve: true}
	}
}

// AdvanceToNearest moves the player to the next tile of a kind and resolves
// it with a special rent rule
func AdvanceToNearest(kind models.TileKind, rule RentRule, goSalary int) Effect {
	return func(p *player.Player, b *board.Board, _ []*player.Player) Result {
		id, err := b.NextOfKind(p.Position(), kind)
		if err != nil {
			return Result{Entries: []models.LogEntry{models.Fail(models.LogCard, models.ReasonNotFound, err.Error())}}
		}
		laps := p.MoveTo(id)
		tile, _ := b.Tile(id)
		entries := passGoEntries(p, laps, goSalary)
		entries = append(entries, models.Entry(models.LogCard, fmt.Sprintf("%s advanced to %s", p.Name, tile.Name)))
		return Result{Entries: entries, Resolve: true, Rent: rule}
	}
}

// MoveBack moves the player n spaces backward without passing GO
func MoveBack(n int) Effect {
	return func(p *player.Player, b *board.Board, _ []*player.Player) Result {
		p.MoveBy(-n)
		tile, _ := b.Tile(p.Position())
		return Result{
			Entries: []models.LogEntry{models.Entry(models.LogCard, fmt.Sprintf("%s moved back to %s", p.Name, tile.Name))},
			Resolve: true,
		}
	}
}

// Collect pays the player from the bank
func Collect(amount int) Effect {
	return func(p *player.Player, _ *board.Board, _ []*player.Player) Result {
		p.Credit(amount)
		return Result{Entries: []models.LogEntry{models.Entry(models.LogCard,
			fmt.Sprintf("%s collected $%d", p.Name, amount))}}
	}
}

// Pay charges the player to the bank. A negative balance afterwards is
// handled by the engine as bankruptcy.
func Pay(amount int) Effect {
	return func(p *player.Player, _ *board.Board, _ []*player.Player) Result {
		p.Debit(amount)
		return Result{Entries: []models.LogEntry{models.Entry(models.LogCard,
			fmt.Sprintf("%s paid $%d", p.Name, amount))}}
	}
}

// PayEach charges the player and pays every other active player. If the
// player cannot cover the total, nobody is paid and the full amount is debited.
func PayEach(amount int) Effect {
	return func(p *player.Player, _ *board.Board, others []*player.Player) Result {
		total := amount * len(others)
		p.Debit(total)
		if p.Cash() >= 0 {
			for _, o := range others {
				o.Credit(amount)
			}
		}
		return Result{Entries: []models.LogEntry{models.Entry(models.LogCard,
			fmt.Sprintf("%s paid $%d to each player ($%d total)", p.Name, amount, total))}}
	}
}

// CollectFromEach takes money from every other active player. A player who
// cannot cover it pays what they have.
func CollectFromEach(amount int) Effect {
	return func(p *player.Player, _ *board.Board, others []*player.Player) Result {
		total := 0
		for _, o := range others {
			paid := amount
			if o.Cash() < paid {
				paid = max(o.Cash(), 0)
			}
			o.Debit(paid)
			total += paid
		}
		p.Credit(total)
		return Result{Entries: []models.LogEntry{models.Entry(models.LogCard,
			fmt.Sprintf("%s collected $%d from the other players", p.Name, total))}}
	}
}

// Repairs charges per house and per hotel the player owns
func Repairs(perHouse, perHotel int) Effect {
	return func(p *player.Player, b *board.Board, _ []*player.Player) Result {
		houses, hotels := b.Improvements(p.ID)
		cost := houses*perHouse + hotels*perHotel
		p.Debit(cost)
		return Result{Entries: []models.LogEntry{models.Entry(models.LogCard,
			fmt.Sprintf("%s paid $%d for %d houses and %d hotels", p.Name, cost, houses, hotels))}}
	}
}

// JailFreeCard gives the player a get out of jail free card
func JailFreeCard() Effect {
	return func(p *player.Player, _ *board.Board, _ []*player.Player) Result {
		p.AddJailCard(1)
		return Result{Entries: []models.LogEntry{models.Entry(models.LogCard,
			fmt.Sprintf("%s received a Get Out of Jail Free card", p.Name))}}
	}
}

// GoToJail asks the engine to jail the player
func GoToJail() Effect {
	return func(_ *player.Player, _ *board.Board, _ []*player.Player) Result {
		return Result{GoToJail: true}
	}
}
