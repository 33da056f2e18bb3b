package engine

import (
	"errors"
	"fmt"
)

// Drop rejection reasons.
const (
	RejectOutside   = "outside"
	RejectAmbiguous = "ambiguous"
	RejectBlocked   = "blocked"
)

// DropResult reports the outcome of EndDrag.
type DropResult struct {
	ItemID   string     `json:"item_id"`
	Placed   bool       `json:"placed"`
	GridID   string     `json:"grid_id,omitempty"`
	Anchor   Coordinate `json:"anchor"`
	Evicted  []string   `json:"evicted,omitempty"`
	PoolSlot int        `json:"pool_slot"`
	Reason   string     `json:"reason,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

// GridFeedback is the drag preview of one grid.
type GridFeedback struct {
	GridID  string       `json:"grid_id"`
	Valid   []Coordinate `json:"valid,omitempty"`
	Invalid []Coordinate `json:"invalid,omitempty"`
}

// At returns the preview colour of c.
func (f GridFeedback) At(c Coordinate) Feedback {
	for _, v := range f.Invalid {
		if v == c {
			return FeedbackInvalid
		}
	}
	for _, v := range f.Valid {
		if v == c {
			return FeedbackValid
		}
	}
	return FeedbackNeutral
}

// BeginDrag picks up an item. Any animation still running on it is finished
// first, and it is lifted out of its grid or pool slot.
func (b *Board) BeginDrag(itemID string) error {
	v, ok := b.views[itemID]
	if !ok {
		return fmt.Errorf("item %q: %w", itemID, ErrUnknownItem)
	}
	if b.drag != nil {
		return fmt.Errorf("begin drag %s while %s is held: %w", itemID, b.drag.ItemID, ErrDragInProgress)
	}

	b.anim.Settle(itemID)
	b.drag = &DragSession{ItemID: itemID, From: v.Location, GridID: v.GridID, Pointer: v.Position}
	b.detach(v)
	v.Phase = PhaseDragging
	v.Location = LocationHeld
	b.revision++

	b.log.Debug().Str("item", itemID).Str("from", string(b.drag.From)).Msg("drag started")
	return nil
}

// DragMove moves the held item to the pointer and recomputes the preview.
// Grids are not modified.
func (b *Board) DragMove(itemID string, pointer Vec2) ([]GridFeedback, error) {
	v, err := b.held(itemID)
	if err != nil {
		return nil, err
	}
	b.moveTo(v, b.presenter.PointerToRect(pointer))
	return b.feedbackSnapshot(), nil
}

// Rotate turns the held item and refreshes the preview.
func (b *Board) Rotate(itemID string) ([]GridFeedback, error) {
	v, err := b.held(itemID)
	if err != nil {
		return nil, err
	}

	b.turn(v)
	b.refreshFeedback(v)
	return b.feedbackSnapshot(), nil
}

// RotateInPool turns an item resting in a pool slot. It keeps its slot.
func (b *Board) RotateInPool(itemID string) (int, error) {
	v, ok := b.views[itemID]
	if !ok {
		return -1, fmt.Errorf("item %q: %w", itemID, ErrUnknownItem)
	}
	if v.Location != LocationPool {
		return -1, fmt.Errorf("rotate %s: item is %s, not in the pool", itemID, v.Location)
	}
	b.turn(v)
	return v.PoolSlot, nil
}

// turn rotates the item a quarter turn and tweens the view angle.
func (b *Board) turn(v *View) {
	v.Item.Rotate()
	from, to := v.Angle, viewAngle(v.Item)
	// Keep the tween on the short arc when the counter wraps.
	if to-from > 180 {
		to -= 360
	} else if from-to > 180 {
		to += 360
	}
	final := viewAngle(v.Item)
	b.anim.Start(v.Item.ID(), ChannelAngle, RotateDuration,
		func(t float64) { v.Angle = lerpFloat(from, to, t) },
		func() { v.Angle = final },
	)
	v.Mirrored = v.Item.Flipped()
	b.revision++
}

// EndDrag drops the held item. It lands on a grid only when exactly one grid
// contains the whole footprint and every cell under the snapped anchor is
// placeable; anything it covers is evicted to the pool. Otherwise it goes
// back to the pool.
func (b *Board) EndDrag(itemID string) (DropResult, error) {
	v, err := b.held(itemID)
	if err != nil {
		return DropResult{}, err
	}
	b.drag = nil
	defer b.resetAllFeedback()

	result := DropResult{ItemID: itemID, PoolSlot: -1}
	cells := v.Item.Cells()

	var candidates []*BoardGrid
	for _, bg := range b.grids {
		if bg.Mapper.EntirelyInside(v.Position, cells) {
			candidates = append(candidates, bg)
		}
	}

	switch {
	case len(candidates) == 0:
		result.Reason = RejectOutside
	case len(candidates) > 1:
		result.Reason = RejectAmbiguous
	default:
		bg := candidates[0]
		anchor := bg.Mapper.AnchorFor(v.Position, cells)
		if !bg.Grid.CanPlace(v.Item, anchor) {
			result.Reason = RejectBlocked
			break
		}
		b.commit(v, bg, anchor, &result)
		return result, nil
	}

	b.log.Debug().Str("item", itemID).Str("reason", result.Reason).Msg("drop rejected")
	moves, err := b.sendToPool(v, false)
	result.PoolSlot = firstSlot(moves)
	if err != nil {
		if !errors.Is(err, ErrPoolExhausted) {
			return result, err
		}
		result.Warnings = append(result.Warnings, err.Error())
	}
	return result, nil
}

func (b *Board) commit(v *View, bg *BoardGrid, anchor Coordinate, result *DropResult) {
	v.Position = bg.Mapper.ToWorldPosition(anchor)
	evicted := bg.Grid.Place(v.Item, anchor)

	v.Phase = PhaseResting
	v.Location = LocationGrid
	v.GridID = bg.Grid.ID()
	v.Anchor = anchor

	result.Placed = true
	result.GridID = bg.Grid.ID()
	result.Anchor = anchor

	for _, it := range evicted {
		result.Evicted = append(result.Evicted, it.ID())
		ev, ok := b.views[it.ID()]
		if !ok {
			continue
		}
		ev.GridID = ""
		if _, err := b.sendToPool(ev, true); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	b.log.Debug().
		Str("item", v.Item.ID()).
		Str("grid", bg.Grid.ID()).
		Stringer("anchor", anchor).
		Int("evicted", len(evicted)).
		Msg("item placed")
}

// PlaceAt drops an item on a grid cell as if it had been dragged there.
func (b *Board) PlaceAt(itemID, gridID string, anchor Coordinate) (DropResult, error) {
	bg, err := b.Grid(gridID)
	if err != nil {
		return DropResult{}, err
	}
	if !bg.Grid.InBounds(anchor) {
		return DropResult{}, fmt.Errorf("place %s at %s: %w", itemID, anchor, ErrOutOfBounds)
	}
	if err := b.BeginDrag(itemID); err != nil {
		return DropResult{}, err
	}
	v := b.views[itemID]
	b.moveTo(v, bg.Mapper.ToWorldPosition(anchor))
	return b.EndDrag(itemID)
}

func (b *Board) held(itemID string) (*View, error) {
	v, ok := b.views[itemID]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", itemID, ErrUnknownItem)
	}
	if b.drag == nil || b.drag.ItemID != itemID {
		return nil, fmt.Errorf("item %q: %w", itemID, ErrNotDragging)
	}
	return v, nil
}

func (b *Board) moveTo(v *View, rect Vec2) {
	v.Position = rect
	b.drag.Pointer = rect
	b.refreshFeedback(v)
}

// refreshFeedback colours every footprint cell that lands inside a grid.
// Grids the footprint does not touch are cleared.
func (b *Board) refreshFeedback(v *View) {
	cells := v.Item.Cells()
	for _, bg := range b.grids {
		bg.resetFeedback()
		if !bg.Mapper.Intersects(v.Position, cells) {
			continue
		}
		for _, p := range bg.Mapper.FootprintPoints(v.Position, cells) {
			if !bg.Mapper.Contains(p) {
				continue
			}
			c := bg.Mapper.ToGridCoordinate(p)
			if bg.Grid.IsPlaceable(c) {
				bg.feedback[c] = FeedbackValid
			} else {
				bg.feedback[c] = FeedbackInvalid
			}
		}
	}
}

func (b *Board) resetAllFeedback() {
	for _, bg := range b.grids {
		bg.resetFeedback()
	}
}

func (b *Board) feedbackSnapshot() []GridFeedback {
	out := make([]GridFeedback, 0, len(b.grids))
	for _, bg := range b.grids {
		gf := GridFeedback{GridID: bg.Grid.ID()}
		for c, f := range bg.feedback {
			if f == FeedbackInvalid {
				gf.Invalid = append(gf.Invalid, c)
			} else {
				gf.Valid = append(gf.Valid, c)
			}
		}
		SortCoordinates(gf.Valid)
		SortCoordinates(gf.Invalid)
		out = append(out, gf)
	}
	return out
}

// Hover records the cell under a pointer that is not dragging anything, so
// expandable slots can show their hover sprite. A pointer outside every grid
// clears it.
func (b *Board) Hover(pointer Vec2) {
	rect := b.presenter.PointerToRect(pointer)
	b.hover = nil
	for _, bg := range b.grids {
		if bg.Mapper.Contains(rect) {
			b.hover = &hoverTarget{gridID: bg.Grid.ID(), coord: bg.Mapper.ToGridCoordinate(rect)}
			return
		}
	}
}

func firstSlot(moves []PoolMove) int {
	if len(moves) == 0 {
		return -1
	}
	return moves[0].Slot
}
