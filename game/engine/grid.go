package engine

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zyedidia/generic/mapset"
)

// Grid is the occupancy model of one placement grid. It owns the availability
// matrix, the anchor index (one entry per placed item) and a dense per-cell
// occupant matrix for constant time collision lookups.
//
// Only Place and Remove write the two indices.
type Grid struct {
	id    string
	sizeX int
	sizeY int

	states    [][]SlotState
	occupants [][]Item

	anchors  map[Coordinate]Item
	anchorOf map[string]Coordinate
	cellsOf  map[string][]Coordinate

	listeners []func(*Grid)
	log       zerolog.Logger
}

// GridOption configures a Grid.
type GridOption func(*Grid)

// WithGridLogger attaches a logger used for precondition diagnostics.
func WithGridLogger(log zerolog.Logger) GridOption {
	return func(g *Grid) {
		g.log = log.With().Str("grid", g.id).Logger()
	}
}

// NewGrid creates a sizeX x sizeY grid with every cell Empty.
func NewGrid(id string, sizeX, sizeY int, opts ...GridOption) (*Grid, error) {
	if sizeX < MinGridSize || sizeY < MinGridSize || sizeX > MaxGridSize || sizeY > MaxGridSize {
		return nil, fmt.Errorf("grid %s: size must be between %d and %d, got %dx%d",
			id, MinGridSize, MaxGridSize, sizeX, sizeY)
	}

	g := &Grid{
		id:       id,
		sizeX:    sizeX,
		sizeY:    sizeY,
		anchors:  make(map[Coordinate]Item),
		anchorOf: make(map[string]Coordinate),
		cellsOf:  make(map[string][]Coordinate),
		log:      zerolog.Nop(),
	}
	g.states = make([][]SlotState, sizeY)
	g.occupants = make([][]Item, sizeY)
	for y := 0; y < sizeY; y++ {
		g.states[y] = make([]SlotState, sizeX)
		g.occupants[y] = make([]Item, sizeX)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

func (g *Grid) ID() string { return g.id }
func (g *Grid) SizeX() int { return g.sizeX }
func (g *Grid) SizeY() int { return g.sizeY }

// InBounds reports whether c addresses a cell of the grid.
func (g *Grid) InBounds(c Coordinate) bool {
	return c.X >= 0 && c.X < g.sizeX && c.Y >= 0 && c.Y < g.sizeY
}

// State returns the availability of c.
func (g *Grid) State(c Coordinate) (SlotState, error) {
	if !g.InBounds(c) {
		return SlotEmpty, ErrOutOfBounds
	}
	return g.states[c.Y][c.X], nil
}

// IsPlaceable reports whether an item may claim c. Availability gates
// placement; an occupied Empty cell is still placeable.
func (g *Grid) IsPlaceable(c Coordinate) bool {
	if !g.InBounds(c) {
		return false
	}
	switch g.states[c.Y][c.X] {
	case SlotLocked, SlotDisabled, SlotExpandable:
		return false
	default:
		return true
	}
}

// CanPlace reports whether every footprint cell of item at anchor is in
// bounds and placeable.
func (g *Grid) CanPlace(item Item, anchor Coordinate) bool {
	for _, off := range item.Cells() {
		if !g.IsPlaceable(anchor.Add(off)) {
			return false
		}
	}
	return true
}

// Place writes item at anchor and returns every item it displaced, each one
// exactly once. Callers must check CanPlace first: a footprint cell on an
// unplaceable cell simply evicts whatever sits there. A footprint reaching
// outside the grid is refused and logged, leaving the indices untouched.
func (g *Grid) Place(item Item, anchor Coordinate) []Item {
	cells := item.Cells()
	targets := make([]Coordinate, 0, len(cells))
	for _, off := range cells {
		c := anchor.Add(off)
		if !g.InBounds(c) {
			g.log.Warn().
				Str("item", item.ID()).
				Stringer("anchor", anchor).
				Stringer("cell", c).
				Msg("place refused: footprint outside grid")
			return nil
		}
		targets = append(targets, c)
	}

	id := item.ID()
	// The shape may have changed since the last placement, even at the same anchor.
	if _, ok := g.anchorOf[id]; ok {
		g.clear(item)
	}

	seen := mapset.New[string]()
	var evicted []Item
	evict := func(other Item) {
		if other == nil || other.ID() == id || seen.Has(other.ID()) {
			return
		}
		seen.Put(other.ID())
		g.clear(other)
		evicted = append(evicted, other)
	}

	for _, c := range targets {
		evict(g.occupants[c.Y][c.X])
	}
	// Two items may not share an anchor key even when their cells do not overlap.
	evict(g.anchors[anchor])

	g.anchors[anchor] = item
	g.anchorOf[id] = anchor
	g.cellsOf[id] = targets
	for _, c := range targets {
		g.occupants[c.Y][c.X] = item
	}

	g.notify()
	return evicted
}

// Remove clears item from the grid. It returns false, without notifying, when
// the item is not placed here.
func (g *Grid) Remove(item Item) bool {
	if item == nil || !g.clear(item) {
		return false
	}
	g.notify()
	return true
}

// clear drops item from both indices.
func (g *Grid) clear(item Item) bool {
	id := item.ID()
	anchor, ok := g.anchorOf[id]
	if !ok {
		anchor, ok = g.scanAnchor(id)
		if !ok {
			return false
		}
	}

	if cur, ok := g.anchors[anchor]; ok && cur.ID() == id {
		delete(g.anchors, anchor)
	}

	if cells, ok := g.cellsOf[id]; ok {
		for _, c := range cells {
			if occ := g.occupants[c.Y][c.X]; occ != nil && occ.ID() == id {
				g.occupants[c.Y][c.X] = nil
			}
		}
	} else {
		g.sweep(id)
	}

	delete(g.anchorOf, id)
	delete(g.cellsOf, id)
	return true
}

// scanAnchor is the linear fallback used when the reverse index has no entry.
func (g *Grid) scanAnchor(id string) (Coordinate, bool) {
	for anchor, it := range g.anchors {
		if it.ID() == id {
			return anchor, true
		}
	}
	return Coordinate{}, false
}

func (g *Grid) sweep(id string) {
	for y := range g.occupants {
		for x, occ := range g.occupants[y] {
			if occ != nil && occ.ID() == id {
				g.occupants[y][x] = nil
			}
		}
	}
}

// Occupant returns the item covering c.
func (g *Grid) Occupant(c Coordinate) (Item, bool) {
	if !g.InBounds(c) {
		return nil, false
	}
	occ := g.occupants[c.Y][c.X]
	return occ, occ != nil
}

// Rarity returns the rarity of the item covering c.
func (g *Grid) Rarity(c Coordinate) (int, bool) {
	occ, ok := g.Occupant(c)
	if !ok {
		return 0, false
	}
	return occ.Rarity(), true
}

// AnchorOf returns the anchor item was placed at.
func (g *Grid) AnchorOf(item Item) (Coordinate, bool) {
	anchor, ok := g.anchorOf[item.ID()]
	return anchor, ok
}

// Contains reports whether item is placed on this grid.
func (g *Grid) Contains(item Item) bool {
	_, ok := g.anchorOf[item.ID()]
	return ok
}

// Placement is one entry of the anchor index.
type Placement struct {
	Item   Item
	Anchor Coordinate
}

// Placements lists the anchor index in row-major anchor order.
func (g *Grid) Placements() []Placement {
	out := make([]Placement, 0, len(g.anchors))
	for y := 0; y < g.sizeY; y++ {
		for x := 0; x < g.sizeX; x++ {
			c := Coordinate{X: x, Y: y}
			if it, ok := g.anchors[c]; ok {
				out = append(out, Placement{Item: it, Anchor: c})
			}
		}
	}
	return out
}

// CellView combines a cell's availability with its derived occupancy.
type CellView struct {
	Coord    Coordinate
	State    SlotState
	Occupant Item
}

// Full reports whether an item covers the cell.
func (v CellView) Full() bool { return v.Occupant != nil }

// Cell returns the view of c.
func (g *Grid) Cell(c Coordinate) (CellView, error) {
	if !g.InBounds(c) {
		return CellView{}, ErrOutOfBounds
	}
	return CellView{Coord: c, State: g.states[c.Y][c.X], Occupant: g.occupants[c.Y][c.X]}, nil
}

// OnChanged registers fn to run once after every successful Place or Remove.
func (g *Grid) OnChanged(fn func(*Grid)) {
	g.listeners = append(g.listeners, fn)
}

func (g *Grid) notify() {
	for _, fn := range g.listeners {
		fn(g)
	}
}

// CheckConsistency verifies that the dense matrix holds exactly the footprint
// cells of the anchor-indexed items.
func (g *Grid) CheckConsistency() error {
	expected := make(map[Coordinate]string)
	for anchor, it := range g.anchors {
		id := it.ID()
		if g.anchorOf[id] != anchor {
			return fmt.Errorf("grid %s: item %s anchored at %s but reverse index says %s", g.id, id, anchor, g.anchorOf[id])
		}
		for _, c := range g.cellsOf[id] {
			if prev, dup := expected[c]; dup {
				return fmt.Errorf("grid %s: cell %s claimed by %s and %s", g.id, c, prev, id)
			}
			expected[c] = id
		}
	}
	if len(g.anchorOf) != len(g.anchors) {
		return fmt.Errorf("grid %s: %d reverse entries for %d anchors", g.id, len(g.anchorOf), len(g.anchors))
	}
	for y := 0; y < g.sizeY; y++ {
		for x := 0; x < g.sizeX; x++ {
			c := Coordinate{X: x, Y: y}
			occ := g.occupants[y][x]
			want, claimed := expected[c]
			switch {
			case occ == nil && claimed:
				return fmt.Errorf("grid %s: cell %s should hold %s", g.id, c, want)
			case occ != nil && !claimed:
				return fmt.Errorf("grid %s: cell %s holds unindexed item %s", g.id, c, occ.ID())
			case occ != nil && occ.ID() != want:
				return fmt.Errorf("grid %s: cell %s holds %s, want %s", g.id, c, occ.ID(), want)
			}
		}
	}
	return nil
}

// Items returns the placed items in row-major anchor order.
func (g *Grid) Items() []Item {
	placements := g.Placements()
	out := make([]Item, len(placements))
	for i, p := range placements {
		out[i] = p.Item
	}
	return out
}

// Reset removes every placed item without notifying. Availability is kept.
func (g *Grid) Reset() {
	for y := range g.occupants {
		for x := range g.occupants[y] {
			g.occupants[y][x] = nil
		}
	}
	g.anchors = make(map[Coordinate]Item)
	g.anchorOf = make(map[string]Coordinate)
	g.cellsOf = make(map[string][]Coordinate)
}
