package models

import (
	"time"
)

// Board geometry shared by every package that moves tokens around.
const (
	BoardSize    = 40
	GoPosition   = 0
	JailPosition = 10
	HotelLevel   = 5
	RentLevels   = 6
)

// NoColorGroup marks tiles that never form a monopoly.
const NoColorGroup = "none"

// TileKind represents what happens when a token lands on a tile
type TileKind string

const (
	TileGo             TileKind = "GO"
	TileStreet         TileKind = "STREET"
	TileRailroad       TileKind = "RAILROAD"
	TileUtility        TileKind = "UTILITY"
	TileTax            TileKind = "TAX"
	TileChance         TileKind = "CHANCE"
	TileCommunityChest TileKind = "COMMUNITY_CHEST"
	TileJail           TileKind = "JAIL"
	TileFreeParking    TileKind = "FREE_PARKING"
	TileGoToJail       TileKind = "GO_TO_JAIL"
)

// Valid reports whether k is one of the known tile kinds
func (k TileKind) Valid() bool {
	switch k {
	case TileGo, TileStreet, TileRailroad, TileUtility, TileTax, TileChance,
		TileCommunityChest, TileJail, TileFreeParking, TileGoToJail:
		return true
	}
	return false
}

// Purchasable reports whether tiles of this kind can be owned
func (k TileKind) Purchasable() bool {
	return k == TileStreet || k == TileRailroad || k == TileUtility
}

// GamePhase is the turn controller state exposed to the presentation layer
type GamePhase string

const (
	PhaseAwaitingRoll    GamePhase = "AWAITING_ROLL"
	PhaseAwaitingEndTurn GamePhase = "AWAITING_END_TURN"
	PhaseGameOver        GamePhase = "GAME_OVER"
)

// TileDefinition is the static description of a tile as read from a board file
type TileDefinition struct {
	ID            int      `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Kind          TileKind `yaml:"kind" json:"kind"`
	Price         int      `yaml:"price,omitempty" json:"price"`
	Rent          []int    `yaml:"rent,omitempty" json:"rent"`
	MortgageValue int      `yaml:"mortgage,omitempty" json:"mortgageValue"`
	HouseCost     int      `yaml:"houseCost,omitempty" json:"houseCost"`
	ColorGroup    string   `yaml:"group,omitempty" json:"colorGroup"`
	Tax           int      `yaml:"tax,omitempty" json:"tax,omitempty"`
}

// CardDefinition is the printed side of a card; its effect is looked up by ID
type CardDefinition struct {
	ID   string `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
}

// GameDefinition bundles the board layout and both card decks
type GameDefinition struct {
	Tiles          []TileDefinition `yaml:"tiles" json:"tiles"`
	Chance         []CardDefinition `yaml:"chance" json:"chance"`
	CommunityChest []CardDefinition `yaml:"communityChest" json:"communityChest"`
}

// TileSnapshot is a read-only view of a tile
type TileSnapshot struct {
	ID            int      `bson:"id" json:"id"`
	Name          string   `bson:"name" json:"name"`
	Kind          TileKind `bson:"kind" json:"kind"`
	Price         int      `bson:"price" json:"price"`
	Rent          []int    `bson:"rent" json:"rent"`
	MortgageValue int      `bson:"mortgageValue" json:"mortgageValue"`
	HouseCost     int      `bson:"houseCost" json:"houseCost"`
	ColorGroup    string   `bson:"colorGroup" json:"colorGroup"`
	Tax           int      `bson:"tax,omitempty" json:"tax,omitempty"`
	OwnerID       string   `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
	Mortgaged     bool     `bson:"mortgaged" json:"mortgaged"`
	Houses        int      `bson:"houses" json:"houses"`
	Hotel         bool     `bson:"hotel" json:"hotel"`
}

// PlayerSetup describes a seat at game start
type PlayerSetup struct {
	ID    string `json:"id" validate:"required,max=64"`
	Name  string `json:"name" validate:"required,max=32"`
	Color string `json:"color" validate:"required,max=32"`
}

// PlayerSnapshot is a read-only view of a player
type PlayerSnapshot struct {
	ID           string `bson:"id" json:"id"`
	Name         string `bson:"name" json:"name"`
	Color        string `bson:"color" json:"color"`
	Cash         int    `bson:"cash" json:"cash"`
	Position     int    `bson:"position" json:"position"`
	OwnedTileIDs []int  `bson:"ownedTileIds" json:"ownedTileIds"`
	InJail       bool   `bson:"inJail" json:"inJail"`
	TurnsInJail  int    `bson:"turnsInJail" json:"turnsInJail"`
	JailCards    int    `bson:"jailCards" json:"jailCards"`
	Active       bool   `bson:"active" json:"active"`
}

// TradeOffer is one side of a two-party trade. Player may be a player id or name;
// an empty Player on the current player's side means the current player.
type TradeOffer struct {
	Player     string   `json:"player"`
	Cash       int      `json:"cash" validate:"min=0"`
	Properties []string `json:"properties"`
	JailCards  int      `json:"jailCards" validate:"min=0"`
}

// GameSummary is the listing entry for a running session
type GameSummary struct {
	ID            string    `json:"gameId"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Phase         GamePhase `json:"phase"`
	Players       int       `json:"players"`
	CurrentPlayer string    `json:"currentPlayer,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GameSnapshot is everything a renderer needs to draw one session
type GameSnapshot struct {
	Game    GameSummary      `json:"game"`
	State   TurnState        `json:"state"`
	Players []PlayerSnapshot `json:"players"`
	Board   []TileSnapshot   `json:"board"`
}

// GameResult is the archived record of a finished game. A restarted session
// archives one result per round.
type GameResult struct {
	ResultID   string           `bson:"_id" json:"resultId"`
	GameID     string           `bson:"gameId" json:"gameId"`
	Round      int              `bson:"round" json:"round"`
	Code       string           `bson:"code" json:"code"`
	Name       string           `bson:"name" json:"name"`
	WinnerID   string           `bson:"winnerId" json:"winnerId"`
	WinnerName string           `bson:"winnerName" json:"winnerName"`
	Standings  []PlayerSnapshot `bson:"standings" json:"standings"`
	Log        []LogEntry       `bson:"log" json:"log"`
	StartedAt  time.Time        `bson:"startedAt" json:"startedAt"`
	FinishedAt time.Time        `bson:"finishedAt" json:"finishedAt"`
}

// TurnState is the turn controller's public state
type TurnState struct {
	Phase           GamePhase         `json:"phase"`
	CurrentPlayer   string            `json:"currentPlayer"`
	HasRolled       bool              `json:"hasRolled"`
	Doubles         int               `json:"doubles"`
	LastRoll        int               `json:"lastRoll"`
	PendingPurchase *int              `json:"pendingPurchase,omitempty"`
	Winner          string            `json:"winner,omitempty"`
	Monopolies      map[string]string `json:"monopolies"`
}
