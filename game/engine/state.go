package engine

// BoardState is the serialisable view of a board sent to clients.
type BoardState struct {
	Revision      uint64      `json:"revision"`
	Grids         []GridState `json:"grids"`
	PoolSlots     []PoolState `json:"pool"`
	Items         []ItemState `json:"items"`
	Drag          *DragState  `json:"drag,omitempty"`
	ExpansionOpen bool        `json:"expansion_open"`
	Tokens        *int        `json:"tokens,omitempty"`
}

// GridState describes one grid and its cells, indexed [y][x].
type GridState struct {
	ID       string        `json:"id"`
	SizeX    int           `json:"size_x"`
	SizeY    int           `json:"size_y"`
	Center   Vec2          `json:"center"`
	CellSize float64       `json:"cell_size"`
	Cells    [][]CellState `json:"cells"`
}

// CellState is one cell as a client draws it.
type CellState struct {
	State    SlotState `json:"state"`
	Full     bool      `json:"full"`
	ItemID   string    `json:"item_id,omitempty"`
	Rarity   int       `json:"rarity,omitempty"`
	Feedback Feedback  `json:"feedback,omitempty"`
	Sprite   string    `json:"sprite,omitempty"`
}

// PoolState is one outside storage slot.
type PoolState struct {
	Index    int    `json:"index"`
	Position Vec2   `json:"position"`
	ItemID   string `json:"item_id,omitempty"`
	Overflow bool   `json:"overflow,omitempty"`
}

// ItemState is the client view of an item.
type ItemState struct {
	ID          string       `json:"id"`
	CatalogID   string       `json:"catalog_id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Sprite      string       `json:"sprite,omitempty"`
	Rarity      int          `json:"rarity"`
	Cells       []Coordinate `json:"cells"`
	Rotation    int          `json:"rotation"`
	Flipped     bool         `json:"flipped"`
	Phase       Phase        `json:"phase"`
	Location    Location     `json:"location"`
	GridID      string       `json:"grid_id,omitempty"`
	Anchor      *Coordinate  `json:"anchor,omitempty"`
	PoolSlot    *int         `json:"pool_slot,omitempty"`
	Position    Vec2         `json:"position"`
	Angle       float64      `json:"angle"`
	Mirrored    bool         `json:"mirrored"`
	Animating   bool         `json:"animating,omitempty"`
}

// DragState describes the drag in progress.
type DragState struct {
	ItemID  string   `json:"item_id"`
	From    Location `json:"from"`
	GridID  string   `json:"grid_id,omitempty"`
	Pointer Vec2     `json:"pointer"`
}

type catalogued interface {
	CatalogID() string
}

// State builds the client view of the board.
func (b *Board) State() BoardState {
	st := BoardState{
		Revision:      b.revision,
		ExpansionOpen: b.progression.IsExpansionUnlockable(),
	}
	if tp, ok := b.progression.(*TokenProgression); ok {
		tokens := tp.Tokens
		st.Tokens = &tokens
	}

	for _, bg := range b.grids {
		st.Grids = append(st.Grids, b.gridState(bg))
	}

	for i, s := range b.pool.Slots() {
		ps := PoolState{Index: i, Position: s.Position, Overflow: s.Overflow}
		if s.Item != nil {
			ps.ItemID = s.Item.ID()
		}
		st.PoolSlots = append(st.PoolSlots, ps)
	}

	for _, v := range b.Views() {
		st.Items = append(st.Items, b.itemState(v))
	}

	if b.drag != nil {
		st.Drag = &DragState{ItemID: b.drag.ItemID, From: b.drag.From, GridID: b.drag.GridID, Pointer: b.drag.Pointer}
	}
	return st
}

func (b *Board) gridState(bg *BoardGrid) GridState {
	g := bg.Grid
	gs := GridState{
		ID:       g.ID(),
		SizeX:    g.SizeX(),
		SizeY:    g.SizeY(),
		Center:   bg.Mapper.Center,
		CellSize: bg.Mapper.CellSize,
		Cells:    make([][]CellState, g.SizeY()),
	}
	for y := 0; y < g.SizeY(); y++ {
		gs.Cells[y] = make([]CellState, g.SizeX())
		for x := 0; x < g.SizeX(); x++ {
			c := Coordinate{X: x, Y: y}
			view, _ := g.Cell(c)
			cs := CellState{State: view.State, Full: view.Full(), Feedback: bg.feedback[c]}
			if view.Full() {
				cs.ItemID = view.Occupant.ID()
				cs.Rarity = view.Occupant.Rarity()
			}
			if b.sprite != nil {
				hovered := b.hover != nil && b.hover.gridID == g.ID() && b.hover.coord == c
				cs.Sprite = SlotSprite(b.sprite, view, hovered)
			}
			gs.Cells[y][x] = cs
		}
	}
	return gs
}

func (b *Board) itemState(v View) ItemState {
	it := v.Item
	st := ItemState{
		ID:          it.ID(),
		Name:        it.Name(),
		Description: it.Description(),
		Sprite:      it.Sprite(),
		Rarity:      it.Rarity(),
		Cells:       it.Cells(),
		Rotation:    it.Rotation(),
		Flipped:     it.Flipped(),
		Phase:       v.Phase,
		Location:    v.Location,
		GridID:      v.GridID,
		Position:    v.Position,
		Angle:       v.Angle,
		Mirrored:    v.Mirrored,
		Animating:   b.anim.Active(it.ID()),
	}
	if c, ok := it.(catalogued); ok {
		st.CatalogID = c.CatalogID()
	}
	switch v.Location {
	case LocationGrid:
		anchor := v.Anchor
		st.Anchor = &anchor
	case LocationPool:
		slot := v.PoolSlot
		st.PoolSlot = &slot
	}
	return st
}
