package engine

import (
	"errors"
	"fmt"
)

// BoardSnapshot is the persisted form of a board: availability, item records
// and where each item rests. Grid occupancy is rebuilt from Placements.
type BoardSnapshot struct {
	Grids    []GridSnapshot `json:"grids"`
	Items    []ItemRecord   `json:"items"`
	PoolSize int            `json:"pool_size"`
	Tokens   *int           `json:"tokens,omitempty"`
}

// GridSnapshot holds the availability of one grid as layout rows.
type GridSnapshot struct {
	ID     string   `json:"id"`
	SizeX  int      `json:"size_x"`
	SizeY  int      `json:"size_y"`
	Layout []string `json:"layout"`
}

// ItemRecord is one persisted item.
type ItemRecord struct {
	ID          string       `json:"id"`
	CatalogID   string       `json:"catalog_id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Sprite      string       `json:"sprite,omitempty"`
	Rarity      int          `json:"rarity"`
	Cells       []Coordinate `json:"cells"`
	Rotation    int          `json:"rotation"`
	Flipped     bool         `json:"flipped"`
	Location    Location     `json:"location"`
	GridID      string       `json:"grid_id,omitempty"`
	Anchor      Coordinate   `json:"anchor"`
	PoolSlot    int          `json:"pool_slot"`
}

type baseShaped interface {
	BaseCells() []Coordinate
}

// Snapshot captures the board without touching it. Items are recorded where
// they rest, so running animations are saved as finished. An item being
// dragged is recorded as unhoused and returns to the pool on restore.
func (b *Board) Snapshot() BoardSnapshot {
	snap := BoardSnapshot{PoolSize: b.pool.Capacity()}
	if tp, ok := b.progression.(*TokenProgression); ok {
		tokens := tp.Tokens
		snap.Tokens = &tokens
	}
	for _, bg := range b.grids {
		snap.Grids = append(snap.Grids, GridSnapshot{
			ID:     bg.Grid.ID(),
			SizeX:  bg.Grid.SizeX(),
			SizeY:  bg.Grid.SizeY(),
			Layout: EncodeLayout(bg.Grid),
		})
	}

	for _, v := range b.Views() {
		it := v.Item
		rec := ItemRecord{
			ID:          it.ID(),
			Name:        it.Name(),
			Description: it.Description(),
			Sprite:      it.Sprite(),
			Rarity:      it.Rarity(),
			Rotation:    it.Rotation(),
			Flipped:     it.Flipped(),
			Location:    v.Location,
			GridID:      v.GridID,
			Anchor:      v.Anchor,
			PoolSlot:    v.PoolSlot,
		}
		// Base shape plus rotation keeps rotation exact across restores.
		if bs, ok := it.(baseShaped); ok {
			rec.Cells = bs.BaseCells()
		} else {
			rec.Cells = it.Cells()
			rec.Rotation = 0
		}
		if c, ok := it.(catalogued); ok {
			rec.CatalogID = c.CatalogID()
		}
		if rec.Location == LocationHeld {
			rec.Location = LocationUnhoused
			rec.GridID = ""
		}
		snap.Items = append(snap.Items, rec)
	}
	return snap
}

// RestoreBoard loads snap into b, which must be freshly built from the same
// layout. Existing items are discarded. Occupancy is rebuilt by replaying
// Place for every saved placement, and the indices are verified afterwards.
func RestoreBoard(b *Board, snap BoardSnapshot) error {
	for _, id := range append([]string(nil), b.order...) {
		if err := b.RemoveItem(id); err != nil {
			return err
		}
	}
	b.pool.Reset()
	b.drag = nil

	for _, gs := range snap.Grids {
		bg, err := b.Grid(gs.ID)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if bg.Grid.SizeX() != gs.SizeX || bg.Grid.SizeY() != gs.SizeY {
			return fmt.Errorf("restore: grid %s is %dx%d, snapshot has %dx%d",
				gs.ID, bg.Grid.SizeX(), bg.Grid.SizeY(), gs.SizeX, gs.SizeY)
		}
		bg.Grid.Reset()
		if err := ApplyLayout(bg.Grid, gs.Layout); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	if snap.Tokens != nil {
		if tp, ok := b.progression.(*TokenProgression); ok {
			tp.Tokens = *snap.Tokens
		}
	}
	b.pool.Grow(snap.PoolSize)

	var pending []*View
	for _, rec := range snap.Items {
		item, err := NewFootprint(FootprintSpec{
			ID:          rec.ID,
			CatalogID:   rec.CatalogID,
			Name:        rec.Name,
			Description: rec.Description,
			Sprite:      rec.Sprite,
			Rarity:      rec.Rarity,
			Cells:       rec.Cells,
			Rotation:    rec.Rotation,
			Flipped:     rec.Flipped,
		})
		if err != nil {
			return fmt.Errorf("restore item %s: %w", rec.ID, err)
		}
		if _, dup := b.views[item.ID()]; dup {
			return fmt.Errorf("restore item %s: %w", rec.ID, ErrDuplicateItem)
		}
		v := &View{
			Item:     item,
			Phase:    PhaseResting,
			PoolSlot: -1,
			Angle:    viewAngle(item),
			Mirrored: item.Flipped(),
		}
		b.views[item.ID()] = v
		b.order = append(b.order, item.ID())

		switch rec.Location {
		case LocationGrid:
			bg, err := b.Grid(rec.GridID)
			if err != nil {
				return fmt.Errorf("restore item %s: %w", rec.ID, err)
			}
			if evicted := bg.Grid.Place(item, rec.Anchor); len(evicted) > 0 {
				return fmt.Errorf("restore item %s: overlaps %s", rec.ID, evicted[0].ID())
			}
			if !bg.Grid.Contains(item) {
				return fmt.Errorf("restore item %s: footprint outside grid %s: %w", rec.ID, rec.GridID, ErrOutOfBounds)
			}
			v.Location = LocationGrid
			v.GridID = rec.GridID
			v.Anchor = rec.Anchor
			v.Position = bg.Mapper.ToWorldPosition(rec.Anchor)
		case LocationPool:
			if err := b.pool.Assign(item, rec.PoolSlot); err != nil {
				return fmt.Errorf("restore item %s: %w", rec.ID, err)
			}
			v.Location = LocationPool
			v.PoolSlot = rec.PoolSlot
			v.Position, _ = b.pool.Position(rec.PoolSlot)
		default:
			pending = append(pending, v)
		}
	}

	for _, v := range pending {
		moves, err := b.pool.Return(v.Item, false, Vec2{})
		b.applyMoves(moves, false)
		if err != nil && !errors.Is(err, ErrPoolExhausted) {
			return err
		}
	}

	for _, bg := range b.grids {
		if err := bg.Grid.CheckConsistency(); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	b.RefreshExpansion()
	return nil
}
