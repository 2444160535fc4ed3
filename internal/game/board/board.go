package board

import (
	"errors"
	"fmt"
	"sort"

	"github.com/adamnnoli/monopoly/internal/game/models"
)

var (
	// ErrTileNotFound is returned for unknown tile ids and names
	ErrTileNotFound = errors.New("tile not found")

	// ErrInvalidBoard is returned when a board definition breaks the layout rules
	ErrInvalidBoard = errors.New("invalid board definition")
)

// tile pairs a static definition with its mutable ownership state
type tile struct {
	def       models.TileDefinition
	owner     string
	mortgaged bool
	houses    int
}

// Board holds the 40 tiles and the monopoly registry. It applies no game rules;
// the engine validates every mutation before calling in here.
type Board struct {
	tiles      []*tile
	byName     map[string]int
	monopolies map[string]string
}

// New builds a board from tile definitions
func New(defs []models.TileDefinition) (*Board, error) {
	if len(defs) != models.BoardSize {
		return nil, fmt.Errorf("%w: expected %d tiles, got %d", ErrInvalidBoard, models.BoardSize, len(defs))
	}

	b := &Board{
		tiles:      make([]*tile, len(defs)),
		byName:     make(map[string]int, len(defs)),
		monopolies: make(map[string]string),
	}

	for i, def := range defs {
		if def.ID != i {
			return nil, fmt.Errorf("%w: tile at index %d has id %d", ErrInvalidBoard, i, def.ID)
		}
		if def.Name == "" {
			return nil, fmt.Errorf("%w: tile %d has no name", ErrInvalidBoard, i)
		}
		if !def.Kind.Valid() {
			return nil, fmt.Errorf("%w: tile %d has unknown kind %q", ErrInvalidBoard, i, def.Kind)
		}
		if def.Kind == models.TileStreet {
			if len(def.Rent) != models.RentLevels {
				return nil, fmt.Errorf("%w: street %q needs %d rent values, got %d", ErrInvalidBoard, def.Name, models.RentLevels, len(def.Rent))
			}
			if def.ColorGroup == "" || def.ColorGroup == models.NoColorGroup {
				return nil, fmt.Errorf("%w: street %q has no color group", ErrInvalidBoard, def.Name)
			}
		} else {
			def.ColorGroup = models.NoColorGroup
		}
		if def.Kind.Purchasable() && def.Price <= 0 {
			return nil, fmt.Errorf("%w: %q is purchasable but has no price", ErrInvalidBoard, def.Name)
		}
		if def.MortgageValue == 0 {
			def.MortgageValue = def.Price / 2
		}
		if def.Rent == nil {
			def.Rent = make([]int, models.RentLevels)
		}

		b.tiles[i] = &tile{def: def}
		if _, exists := b.byName[def.Name]; !exists {
			b.byName[def.Name] = i
		}
	}

	return b, nil
}

// Len returns the number of tiles on the board
func (b *Board) Len() int {
	return len(b.tiles)
}

func (b *Board) get(id int) (*tile, error) {
	if id < 0 || id >= len(b.tiles) {
		return nil, fmt.Errorf("%w: id %d", ErrTileNotFound, id)
	}
	return b.tiles[id], nil
}

func (t *tile) snapshot() models.TileSnapshot {
	rent := make([]int, len(t.def.Rent))
	copy(rent, t.def.Rent)
	return models.TileSnapshot{
		ID:            t.def.ID,
		Name:          t.def.Name,
		Kind:          t.def.Kind,
		Price:         t.def.Price,
		Rent:          rent,
		MortgageValue: t.def.MortgageValue,
		HouseCost:     t.def.HouseCost,
		ColorGroup:    t.def.ColorGroup,
		Tax:           t.def.Tax,
		OwnerID:       t.owner,
		Mortgaged:     t.mortgaged,
		Houses:        t.houses,
		Hotel:         t.houses == models.HotelLevel,
	}
}

// Tile returns a snapshot of the tile with the given id
func (b *Board) Tile(id int) (models.TileSnapshot, error) {
	t, err := b.get(id)
	if err != nil {
		return models.TileSnapshot{}, err
	}
	return t.snapshot(), nil
}

// Tiles returns snapshots of every tile in board order
func (b *Board) Tiles() []models.TileSnapshot {
	out := make([]models.TileSnapshot, len(b.tiles))
	for i, t := range b.tiles {
		out[i] = t.snapshot()
	}
	return out
}

// TileIDByName resolves a tile name to its id
func (b *Board) TileIDByName(name string) (int, error) {
	id, ok := b.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrTileNotFound, name)
	}
	return id, nil
}

// SetOwner assigns the tile to a player id; an empty owner returns it to the bank
func (b *Board) SetOwner(id int, owner string) error {
	t, err := b.get(id)
	if err != nil {
		return err
	}
	t.owner = owner
	if owner == "" {
		t.mortgaged = false
		t.houses = 0
	}
	return nil
}

// SetMortgaged flips the mortgage flag
func (b *Board) SetMortgaged(id int, mortgaged bool) error {
	t, err := b.get(id)
	if err != nil {
		return err
	}
	t.mortgaged = mortgaged
	return nil
}

// BuildHouse adds one house; the fifth house is the hotel
func (b *Board) BuildHouse(id int) error {
	t, err := b.get(id)
	if err != nil {
		return err
	}
	if t.houses >= models.HotelLevel {
		return fmt.Errorf("tile %q already has a hotel", t.def.Name)
	}
	t.houses++
	return nil
}

// SellHouse removes one house
func (b *Board) SellHouse(id int) error {
	t, err := b.get(id)
	if err != nil {
		return err
	}
	if t.houses == 0 {
		return fmt.Errorf("tile %q has no houses", t.def.Name)
	}
	t.houses--
	return nil
}

// ClearHouses removes every house from the tile and returns how many were removed
func (b *Board) ClearHouses(id int) int {
	t, err := b.get(id)
	if err != nil {
		return 0
	}
	n := t.houses
	t.houses = 0
	return n
}

// GroupTileIDs lists the tiles of a color group in board order
func (b *Board) GroupTileIDs(group string) []int {
	var ids []int
	if group == "" || group == models.NoColorGroup {
		return ids
	}
	for _, t := range b.tiles {
		if t.def.ColorGroup == group {
			ids = append(ids, t.def.ID)
		}
	}
	return ids
}

// CountOwned counts tiles of a kind held by owner
func (b *Board) CountOwned(kind models.TileKind, owner string) int {
	n := 0
	for _, t := range b.tiles {
		if t.def.Kind == kind && t.owner == owner && owner != "" {
			n++
		}
	}
	return n
}

// OwnedBy lists the ids of tiles held by owner
func (b *Board) OwnedBy(owner string) []int {
	var ids []int
	for _, t := range b.tiles {
		if owner != "" && t.owner == owner {
			ids = append(ids, t.def.ID)
		}
	}
	return ids
}

// Improvements counts houses and hotels across the owner's tiles
func (b *Board) Improvements(owner string) (houses, hotels int) {
	for _, t := range b.tiles {
		if t.owner != owner || owner == "" {
			continue
		}
		if t.houses == models.HotelLevel {
			hotels++
		} else {
			houses += t.houses
		}
	}
	return houses, hotels
}

// NextOfKind returns the first tile of the given kind strictly ahead of from,
// wrapping past GO
func (b *Board) NextOfKind(from int, kind models.TileKind) (int, error) {
	n := len(b.tiles)
	for step := 1; step <= n; step++ {
		id := (from + step) % n
		if b.tiles[id].def.Kind == kind {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: no %s tile on board", ErrTileNotFound, kind)
}

// RecomputeMonopolies rebuilds the color group registry from current ownership
func (b *Board) RecomputeMonopolies() map[string]string {
	groups := make(map[string]string)
	complete := make(map[string]bool)

	for _, t := range b.tiles {
		g := t.def.ColorGroup
		if g == models.NoColorGroup {
			continue
		}
		owner, seen := groups[g]
		if !seen {
			groups[g] = t.owner
			complete[g] = t.owner != ""
			continue
		}
		if owner != t.owner {
			complete[g] = false
		}
	}

	b.monopolies = make(map[string]string)
	for g, ok := range complete {
		if ok {
			b.monopolies[g] = groups[g]
		}
	}
	return b.Monopolies()
}

// Monopolies returns a copy of the registry, color group to owner id
func (b *Board) Monopolies() map[string]string {
	out := make(map[string]string, len(b.monopolies))
	for g, owner := range b.monopolies {
		out[g] = owner
	}
	return out
}

// MonopolyOwner returns the owner of a complete color group, if any
func (b *Board) MonopolyOwner(group string) string {
	return b.monopolies[group]
}

// Groups lists the color groups present on the board
func (b *Board) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, t := range b.tiles {
		g := t.def.ColorGroup
		if g == models.NoColorGroup || seen[g] {
			continue
		}
		seen[g] = true
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
