package engine

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// PoolSlot is one outside storage position.
type PoolSlot struct {
	Position Vec2 `json:"position"`
	Item     Item `json:"-"`
	Overflow bool `json:"overflow,omitempty"`
}

// PoolMove reports where an item ended up after a return. Slot is -1 when the
// item could not be housed.
type PoolMove struct {
	Item     Item
	Slot     int
	Position Vec2
}

// Housed reports whether the move found a slot.
func (m PoolMove) Housed() bool { return m.Slot >= 0 }

// Pool is the ordered set of storage slots outside every grid.
type Pool struct {
	slots []PoolSlot
	index map[string]int

	allowOverflow bool
	overflowStep  Vec2
	log           zerolog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithOverflow lets the pool grow by one slot, step away from the last one,
// whenever it runs out of empty slots.
func WithOverflow(step Vec2) PoolOption {
	return func(p *Pool) {
		p.allowOverflow = true
		p.overflowStep = step
	}
}

// WithPoolLogger attaches a logger.
func WithPoolLogger(log zerolog.Logger) PoolOption {
	return func(p *Pool) {
		p.log = log.With().Str("component", "pool").Logger()
	}
}

// NewPool creates a pool with one slot per position.
func NewPool(positions []Vec2, opts ...PoolOption) (*Pool, error) {
	if len(positions) > MaxPoolCapacity {
		return nil, fmt.Errorf("pool capacity %d exceeds maximum %d", len(positions), MaxPoolCapacity)
	}
	p := &Pool{
		slots: make([]PoolSlot, len(positions)),
		index: make(map[string]int),
		log:   zerolog.Nop(),
	}
	for i, pos := range positions {
		p.slots[i].Position = pos
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// GridPositions lays out n slot positions in rows of columns starting at origin.
func GridPositions(n, columns int, origin, spacing Vec2) []Vec2 {
	if columns <= 0 {
		columns = 1
	}
	out := make([]Vec2, n)
	for i := range out {
		out[i] = Vec2{
			X: origin.X + float64(i%columns)*spacing.X,
			Y: origin.Y + float64(i/columns)*spacing.Y,
		}
	}
	return out
}

// Capacity is the current number of slots, overflow slots included.
func (p *Pool) Capacity() int { return len(p.slots) }

// Slots returns a copy of the slot list.
func (p *Pool) Slots() []PoolSlot {
	return append([]PoolSlot(nil), p.slots...)
}

// SlotOf returns the index of the slot holding item.
func (p *Pool) SlotOf(item Item) (int, bool) {
	i, ok := p.index[item.ID()]
	return i, ok
}

// Position returns the rect position of slot i.
func (p *Pool) Position(i int) (Vec2, bool) {
	if i < 0 || i >= len(p.slots) {
		return Vec2{}, false
	}
	return p.slots[i].Position, true
}

// Items lists the housed items in slot order.
func (p *Pool) Items() []Item {
	var out []Item
	for _, s := range p.slots {
		if s.Item != nil {
			out = append(out, s.Item)
		}
	}
	return out
}

// Remove detaches item from its slot.
func (p *Pool) Remove(item Item) bool {
	i, ok := p.index[item.ID()]
	if !ok {
		return false
	}
	p.slots[i].Item = nil
	delete(p.index, item.ID())
	return true
}

// Assign puts item into slot i directly. The slot must be empty.
func (p *Pool) Assign(item Item, i int) error {
	if i < 0 || i >= len(p.slots) {
		return fmt.Errorf("pool slot %d: %w", i, ErrOutOfBounds)
	}
	if occ := p.slots[i].Item; occ != nil && occ.ID() != item.ID() {
		return fmt.Errorf("pool slot %d already holds %s", i, occ.ID())
	}
	p.Remove(item)
	p.put(item, i)
	return nil
}

// Return houses item. With wantsNear the slot nearest to from is taken even
// when occupied, and its occupant is re-homed to the lowest empty slot.
// Otherwise the lowest empty slot is used. The first move always describes
// item. When no slot is free ErrPoolExhausted is returned and the affected
// move has Slot -1.
func (p *Pool) Return(item Item, wantsNear bool, from Vec2) ([]PoolMove, error) {
	p.Remove(item)

	if wantsNear && len(p.slots) > 0 {
		target := p.nearest(from)
		prev := p.slots[target].Item
		if prev != nil {
			delete(p.index, prev.ID())
			p.slots[target].Item = nil
		}
		p.put(item, target)
		moves := []PoolMove{{Item: item, Slot: target, Position: p.slots[target].Position}}
		if prev == nil {
			return moves, nil
		}
		// prev is re-homed without wantsNear, so this never recurses further.
		rest, err := p.Return(prev, false, p.slots[target].Position)
		return append(moves, rest...), err
	}

	slot, err := p.lowestEmpty()
	if err != nil {
		p.log.Warn().Str("item", item.ID()).Msg("pool exhausted, item left unhoused")
		return []PoolMove{{Item: item, Slot: -1}}, fmt.Errorf("return %s: %w", item.ID(), err)
	}
	p.put(item, slot)
	return []PoolMove{{Item: item, Slot: slot, Position: p.slots[slot].Position}}, nil
}

func (p *Pool) put(item Item, i int) {
	p.slots[i].Item = item
	p.index[item.ID()] = i
}

func (p *Pool) nearest(from Vec2) int {
	best, bestDist := 0, math.Inf(1)
	for i, s := range p.slots {
		if d := s.Position.Distance(from); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (p *Pool) lowestEmpty() (int, error) {
	for i, s := range p.slots {
		if s.Item == nil {
			return i, nil
		}
	}
	if !p.allowOverflow {
		return -1, ErrPoolExhausted
	}

	var pos Vec2
	if n := len(p.slots); n > 0 {
		pos = p.slots[n-1].Position.Add(p.overflowStep)
	}
	p.slots = append(p.slots, PoolSlot{Position: pos, Overflow: true})
	p.log.Warn().Int("slot", len(p.slots)-1).Msg("pool full, appended overflow slot")
	return len(p.slots) - 1, nil
}

// Reset empties every slot and drops overflow slots.
func (p *Pool) Reset() {
	kept := p.slots[:0]
	for _, s := range p.slots {
		if s.Overflow {
			continue
		}
		s.Item = nil
		kept = append(kept, s)
	}
	p.slots = kept
	p.index = make(map[string]int)
}

// Grow appends overflow slots until the pool has n slots. Used on restore.
func (p *Pool) Grow(n int) {
	for len(p.slots) < n {
		var pos Vec2
		if k := len(p.slots); k > 0 {
			pos = p.slots[k-1].Position.Add(p.overflowStep)
		}
		p.slots = append(p.slots, PoolSlot{Position: pos, Overflow: true})
	}
}
