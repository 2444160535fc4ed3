package manager

import (
	"errors"
	"fmt"

	"github.com/adamnnoli/monopoly/internal/game/engine"
	"github.com/adamnnoli/monopoly/internal/game/models"
)

// ErrUnknownCommand is returned for a command type the engine does not offer
var ErrUnknownCommand = errors.New("unknown command")

// CommandType names an engine command
type CommandType string

const (
	CommandRoll       CommandType = "roll"
	CommandBuy        CommandType = "buy"
	CommandAuction    CommandType = "auction"
	CommandBuild      CommandType = "build"
	CommandSell       CommandType = "sell"
	CommandMortgage   CommandType = "mortgage"
	CommandUnmortgage CommandType = "unmortgage"
	CommandTrade      CommandType = "trade"
	CommandPayJail    CommandType = "payJail"
	CommandRollJail   CommandType = "rollJail"
	CommandCardJail   CommandType = "cardJail"
	CommandQuit       CommandType = "quit"
	CommandEndTurn    CommandType = "endTurn"
)

// Command is one request against the current player's turn. Only the fields
// the command type needs are read.
type Command struct {
	Type CommandType `json:"type" validate:"required"`

	// build, sell, mortgage, unmortgage
	Tile  string `json:"tile,omitempty"`
	Count int    `json:"count,omitempty" validate:"omitempty,min=1,max=5"`

	// auction: player id to bid
	Bids map[string]int `json:"bids,omitempty"`

	// trade
	Offer   models.TradeOffer `json:"offer,omitempty"`
	Counter models.TradeOffer `json:"counter,omitempty"`
}

func (c Command) count() int {
	if c.Count == 0 {
		return 1
	}
	return c.Count
}

func (c Command) apply(e *engine.Engine) ([]models.LogEntry, error) {
	switch c.Type {
	case CommandRoll:
		return e.Roll(), nil
	case CommandBuy:
		return e.Buy(), nil
	case CommandAuction:
		return e.Auction(c.Bids), nil
	case CommandBuild:
		return e.Build(c.Tile, c.count()), nil
	case CommandSell:
		return e.Sell(c.Tile, c.count()), nil
	case CommandMortgage:
		return e.Mortgage(c.Tile), nil
	case CommandUnmortgage:
		return e.Unmortgage(c.Tile), nil
	case CommandTrade:
		return e.Trade(c.Offer, c.Counter), nil
	case CommandPayJail:
		return e.PayJail(), nil
	case CommandRollJail:
		return e.RollJail(), nil
	case CommandCardJail:
		return e.CardJail(), nil
	case CommandQuit:
		return e.Quit(), nil
	case CommandEndTurn:
		return e.EndTurn(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
	}
}
