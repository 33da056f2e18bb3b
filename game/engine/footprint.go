package engine

import (
	"github.com/google/uuid"
)

// Item is the contract a placeable thing exposes to the engine. The engine
// never looks past these methods.
type Item interface {
	ID() string
	// Cells returns the occupied offsets relative to the anchor for the
	// current orientation.
	Cells() []Coordinate
	Rarity() int
	Sprite() string
	Name() string
	Description() string
	Rotation() int
	// Flipped reports whether the item is mirrored on the y axis, which also
	// reverses its rotation direction.
	Flipped() bool
	Rotate()
}

// Footprint is the engine's Item implementation: a base shape plus a
// rotation counter and flip flag.
type Footprint struct {
	id          string
	catalogID   string
	name        string
	description string
	sprite      string
	rarity      int
	base        []Coordinate
	cells       []Coordinate
	rotation    int
	flipped     bool
}

// FootprintSpec describes how to build a Footprint.
type FootprintSpec struct {
	ID          string
	CatalogID   string
	Name        string
	Description string
	Sprite      string
	Rarity      int
	Cells       []Coordinate
	Rotation    int
	Flipped     bool
}

// NewFootprint builds a Footprint from spec. A random ID is assigned when the
// spec carries none.
func NewFootprint(spec FootprintSpec) (*Footprint, error) {
	if len(spec.Cells) == 0 {
		return nil, ErrInvalidFootprint
	}
	id := spec.ID
	if id == "" {
		id = NewItemID()
	}
	f := &Footprint{
		id:          id,
		catalogID:   spec.CatalogID,
		name:        spec.Name,
		description: spec.Description,
		sprite:      spec.Sprite,
		rarity:      spec.Rarity,
		base:        dedupe(spec.Cells),
		flipped:     spec.Flipped,
	}
	f.rotation = ((spec.Rotation % 4) + 4) % 4
	f.recompute()
	return f, nil
}

// NewItemID returns a short random item identifier.
func NewItemID() string {
	return uuid.NewString()[:8]
}

func (f *Footprint) ID() string          { return f.id }
func (f *Footprint) CatalogID() string   { return f.catalogID }
func (f *Footprint) Name() string        { return f.name }
func (f *Footprint) Description() string { return f.description }
func (f *Footprint) Sprite() string      { return f.sprite }
func (f *Footprint) Rarity() int         { return f.rarity }
func (f *Footprint) Rotation() int       { return f.rotation }
func (f *Footprint) Flipped() bool       { return f.flipped }

// BaseCells returns the unrotated shape.
func (f *Footprint) BaseCells() []Coordinate {
	out := make([]Coordinate, len(f.base))
	copy(out, f.base)
	return out
}

func (f *Footprint) Cells() []Coordinate {
	out := make([]Coordinate, len(f.cells))
	copy(out, f.cells)
	return out
}

// Rotate turns the footprint 90 degrees: clockwise normally, counter-clockwise
// when flipped.
func (f *Footprint) Rotate() {
	f.rotation = (f.rotation + 1) % 4
	f.recompute()
}

// recompute derives the current cells from the base shape so repeated
// rotations never accumulate.
func (f *Footprint) recompute() {
	cells := make([]Coordinate, len(f.base))
	for i, c := range f.base {
		for r := 0; r < f.rotation; r++ {
			if f.flipped {
				c = rotateCounterClockwise(c)
			} else {
				c = rotateClockwise(c)
			}
		}
		cells[i] = c
	}
	f.cells = cells
}

// Screen-style axes: rotating (x, y) clockwise gives (-y, x) with y growing
// downwards in row order.
func rotateClockwise(c Coordinate) Coordinate {
	return Coordinate{X: -c.Y, Y: c.X}
}

func rotateCounterClockwise(c Coordinate) Coordinate {
	return Coordinate{X: c.Y, Y: -c.X}
}

func dedupe(cells []Coordinate) []Coordinate {
	seen := make(map[Coordinate]bool, len(cells))
	out := make([]Coordinate, 0, len(cells))
	for _, c := range cells {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// SameCells reports whether a and b hold the same set of coordinates.
func SameCells(a, b []Coordinate) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[Coordinate]int, len(a))
	for _, c := range a {
		set[c]++
	}
	for _, c := range b {
		if set[c] == 0 {
			return false
		}
		set[c]--
	}
	return true
}
