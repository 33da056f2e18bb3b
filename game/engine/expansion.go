package engine

import "fmt"

// Progression decides whether locked slots may currently be unlocked and is
// told about every expansion. It is implemented outside the engine by
// whatever owns the player's currency.
type Progression interface {
	IsExpansionUnlockable() bool
	NotifyExpanded(gridID string, c Coordinate)
}

// TokenProgression allows one expansion per token.
type TokenProgression struct {
	Tokens int `json:"tokens"`
}

func (p *TokenProgression) IsExpansionUnlockable() bool { return p.Tokens > 0 }

func (p *TokenProgression) NotifyExpanded(string, Coordinate) {
	if p.Tokens > 0 {
		p.Tokens--
	}
}

// Grant adds n tokens.
func (p *TokenProgression) Grant(n int) {
	p.Tokens += n
}

// OpenProgression keeps the expansion gate permanently open.
type OpenProgression struct{}

func (OpenProgression) IsExpansionUnlockable() bool       { return true }
func (OpenProgression) NotifyExpanded(string, Coordinate) {}

var neighbours = [4]Coordinate{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}

// SetState overwrites the availability of c. Used when loading layouts.
func (g *Grid) SetState(c Coordinate, s SlotState) error {
	if !g.InBounds(c) {
		return fmt.Errorf("grid %s: set state at %s: %w", g.id, c, ErrOutOfBounds)
	}
	g.states[c.Y][c.X] = s
	return nil
}

// States returns a copy of the availability matrix indexed [y][x].
func (g *Grid) States() [][]SlotState {
	out := make([][]SlotState, g.sizeY)
	for y := range g.states {
		out[y] = append([]SlotState(nil), g.states[y]...)
	}
	return out
}

// RefreshExpandableStates recomputes the Expandable marking. With the gate
// open every Locked cell next to an unlocked cell becomes Expandable; with it
// closed every Expandable cell falls back to Locked. Disabled cells are never
// touched.
func (g *Grid) RefreshExpandableStates(gateOpen bool) {
	if !gateOpen {
		for y := range g.states {
			for x, s := range g.states[y] {
				if s == SlotExpandable {
					g.states[y][x] = SlotLocked
				}
			}
		}
		return
	}

	for y := range g.states {
		for x, s := range g.states[y] {
			if s == SlotLocked && g.bordersUnlocked(Coordinate{X: x, Y: y}) {
				g.states[y][x] = SlotExpandable
			}
		}
	}
}

// bordersUnlocked reports whether any 4-neighbour of c is Empty. Occupied
// cells count since occupancy does not change availability.
func (g *Grid) bordersUnlocked(c Coordinate) bool {
	for _, off := range neighbours {
		n := c.Add(off)
		if g.InBounds(n) && g.states[n.Y][n.X] == SlotEmpty {
			return true
		}
	}
	return false
}

// Expand unlocks c regardless of its current state.
func (g *Grid) Expand(c Coordinate) error {
	if !g.InBounds(c) {
		return fmt.Errorf("grid %s: expand %s: %w", g.id, c, ErrOutOfBounds)
	}
	g.states[c.Y][c.X] = SlotEmpty
	return nil
}

// SetDisabled toggles c between Disabled and Empty. Other states are left
// alone so a penalty never unlocks a locked slot.
func (g *Grid) SetDisabled(c Coordinate, disabled bool) error {
	if !g.InBounds(c) {
		return fmt.Errorf("grid %s: disable %s: %w", g.id, c, ErrOutOfBounds)
	}
	cur := g.states[c.Y][c.X]
	switch {
	case disabled && cur == SlotEmpty:
		g.states[c.Y][c.X] = SlotDisabled
	case !disabled && cur == SlotDisabled:
		g.states[c.Y][c.X] = SlotEmpty
	}
	return nil
}

// RefreshExpansion recomputes the Expandable marking on every grid from the
// current progression gate.
func (b *Board) RefreshExpansion() {
	open := b.progression.IsExpansionUnlockable()
	for _, bg := range b.grids {
		bg.Grid.RefreshExpandableStates(open)
	}
	b.revision++
}

// Expand unlocks a cell, notifies the progression and refreshes every grid.
func (b *Board) Expand(gridID string, c Coordinate) error {
	bg, err := b.Grid(gridID)
	if err != nil {
		return err
	}
	if err := bg.Grid.Expand(c); err != nil {
		return err
	}
	b.progression.NotifyExpanded(gridID, c)
	b.log.Info().Str("grid", gridID).Stringer("coord", c).Msg("slot expanded")
	b.RefreshExpansion()
	return nil
}

// TryExpand expands c only when the gate is open and the cell is currently
// offered for expansion.
func (b *Board) TryExpand(gridID string, c Coordinate) error {
	bg, err := b.Grid(gridID)
	if err != nil {
		return err
	}
	state, err := bg.Grid.State(c)
	if err != nil {
		return fmt.Errorf("expand %s/%s: %w", gridID, c, err)
	}
	if state != SlotExpandable && state != SlotLocked {
		return fmt.Errorf("expand %s/%s is %s: %w", gridID, c, state, ErrNotExpandable)
	}
	if !b.progression.IsExpansionUnlockable() {
		return fmt.Errorf("expand %s/%s: gate closed: %w", gridID, c, ErrNotExpandable)
	}
	bg.Grid.RefreshExpandableStates(true)
	if s, _ := bg.Grid.State(c); s != SlotExpandable {
		return fmt.Errorf("expand %s/%s: no unlocked neighbour: %w", gridID, c, ErrNotExpandable)
	}
	return b.Expand(gridID, c)
}

// ClickCell maps a pointer through the presenter and tries to expand the cell
// under it. It returns the clicked coordinate.
func (b *Board) ClickCell(gridID string, pointer Vec2) (Coordinate, error) {
	bg, err := b.Grid(gridID)
	if err != nil {
		return Coordinate{}, err
	}
	c := bg.Mapper.ToGridCoordinate(b.presenter.PointerToRect(pointer))
	return c, b.TryExpand(gridID, c)
}

// SetDisabled applies or lifts a penalty on a cell. Disabling a cell does not
// move the item covering it.
func (b *Board) SetDisabled(gridID string, c Coordinate, disabled bool) error {
	bg, err := b.Grid(gridID)
	if err != nil {
		return err
	}
	if err := bg.Grid.SetDisabled(c, disabled); err != nil {
		return err
	}
	b.RefreshExpansion()
	return nil
}
