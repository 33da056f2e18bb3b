package engine

import (
	"fmt"

	"github.com/rs/zerolog"
)

// BoardGrid pairs a grid with its rect-space mapper and the drag preview
// currently drawn on it.
type BoardGrid struct {
	Grid     *Grid
	Mapper   Mapper
	feedback map[Coordinate]Feedback
}

// Feedback returns a copy of the preview colouring.
func (bg *BoardGrid) Feedback() map[Coordinate]Feedback {
	out := make(map[Coordinate]Feedback, len(bg.feedback))
	for c, f := range bg.feedback {
		out[c] = f
	}
	return out
}

func (bg *BoardGrid) resetFeedback() {
	if len(bg.feedback) > 0 {
		bg.feedback = make(map[Coordinate]Feedback)
	}
}

// View is the engine's record of one item: where it lives and how it is drawn.
type View struct {
	Item     Item
	Phase    Phase
	Location Location
	GridID   string
	Anchor   Coordinate
	PoolSlot int
	Position Vec2
	Angle    float64
	Mirrored bool
}

// DragSession describes the single drag in progress.
type DragSession struct {
	ItemID  string
	From    Location
	GridID  string
	Pointer Vec2
}

// Board is the context object tying grids, the outside pool and item views
// together. It is not safe for concurrent use.
type Board struct {
	grids  []*BoardGrid
	byID   map[string]*BoardGrid
	pool   *Pool
	views  map[string]*View
	order  []string
	drag   *DragSession
	anim   *Animator
	hover  *hoverTarget
	sprite SpriteSet

	progression Progression
	presenter   Presenter
	revision    uint64
	log         zerolog.Logger
}

type hoverTarget struct {
	gridID string
	coord  Coordinate
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithLogger sets the board logger.
func WithLogger(log zerolog.Logger) BoardOption {
	return func(b *Board) { b.log = log }
}

// WithPresenter sets the presentation-layer coordinate converter.
func WithPresenter(p Presenter) BoardOption {
	return func(b *Board) { b.presenter = p }
}

// WithProgression sets the expansion gate.
func WithProgression(p Progression) BoardOption {
	return func(b *Board) { b.progression = p }
}

// WithSprites sets the sprite set used when reporting board state.
func WithSprites(s SpriteSet) BoardOption {
	return func(b *Board) { b.sprite = s }
}

// NewBoard creates a board around pool. Grids are added with AddGrid.
func NewBoard(pool *Pool, opts ...BoardOption) *Board {
	b := &Board{
		byID:        make(map[string]*BoardGrid),
		pool:        pool,
		views:       make(map[string]*View),
		anim:        NewAnimator(),
		progression: OpenProgression{},
		presenter:   IdentityPresenter{},
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// AddGrid registers g with its mapper.
func (b *Board) AddGrid(g *Grid, m Mapper) error {
	if _, dup := b.byID[g.ID()]; dup {
		return fmt.Errorf("grid %s already registered", g.ID())
	}
	if m.SizeX != g.SizeX() || m.SizeY != g.SizeY() {
		return fmt.Errorf("grid %s: mapper is %dx%d but grid is %dx%d", g.ID(), m.SizeX, m.SizeY, g.SizeX(), g.SizeY())
	}
	if m.CellSize <= 0 {
		return fmt.Errorf("grid %s: cell size must be positive", g.ID())
	}

	bg := &BoardGrid{Grid: g, Mapper: m, feedback: make(map[Coordinate]Feedback)}
	g.OnChanged(func(changed *Grid) {
		b.revision++
		b.log.Debug().Str("grid", changed.ID()).Uint64("revision", b.revision).Msg("grid changed")
	})
	b.grids = append(b.grids, bg)
	b.byID[g.ID()] = bg
	g.RefreshExpandableStates(b.progression.IsExpansionUnlockable())
	return nil
}

// Grids lists the registered grids in registration order.
func (b *Board) Grids() []*BoardGrid {
	return append([]*BoardGrid(nil), b.grids...)
}

// Grid looks up a grid by id.
func (b *Board) Grid(id string) (*BoardGrid, error) {
	bg, ok := b.byID[id]
	if !ok {
		return nil, fmt.Errorf("grid %q: %w", id, ErrUnknownGrid)
	}
	return bg, nil
}

func (b *Board) Pool() *Pool              { return b.pool }
func (b *Board) Animator() *Animator      { return b.anim }
func (b *Board) Progression() Progression { return b.progression }
func (b *Board) Presenter() Presenter     { return b.presenter }
func (b *Board) Sprites() SpriteSet       { return b.sprite }

// Revision increases on every change to placements, pool or items.
func (b *Board) Revision() uint64 { return b.revision }

// Tick advances running animations by dt seconds.
func (b *Board) Tick(dt float64) {
	b.anim.Tick(dt)
}

// View returns a copy of the item's view.
func (b *Board) View(itemID string) (View, error) {
	v, ok := b.views[itemID]
	if !ok {
		return View{}, fmt.Errorf("item %q: %w", itemID, ErrUnknownItem)
	}
	return *v, nil
}

// Views returns every item view in the order items were added.
func (b *Board) Views() []View {
	out := make([]View, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.views[id])
	}
	return out
}

// Dragging returns the drag in progress.
func (b *Board) Dragging() (DragSession, bool) {
	if b.drag == nil {
		return DragSession{}, false
	}
	return *b.drag, true
}

// AddItem registers a new item and houses it in the lowest empty pool slot.
// ErrPoolExhausted is returned when it cannot be housed; the item stays on
// the board, unhoused.
func (b *Board) AddItem(item Item) error {
	if _, dup := b.views[item.ID()]; dup {
		return fmt.Errorf("item %q: %w", item.ID(), ErrDuplicateItem)
	}
	v := &View{
		Item:     item,
		Phase:    PhaseResting,
		PoolSlot: -1,
		Mirrored: item.Flipped(),
		Angle:    viewAngle(item),
	}
	b.views[item.ID()] = v
	b.order = append(b.order, item.ID())
	b.revision++

	moves, err := b.pool.Return(item, false, Vec2{})
	b.applyMoves(moves, false)
	if err != nil {
		b.log.Warn().Err(err).Str("item", item.ID()).Msg("new item left unhoused")
	}
	return err
}

// RemoveItem destroys an item wherever it is.
func (b *Board) RemoveItem(itemID string) error {
	v, ok := b.views[itemID]
	if !ok {
		return fmt.Errorf("item %q: %w", itemID, ErrUnknownItem)
	}
	if b.drag != nil && b.drag.ItemID == itemID {
		b.drag = nil
		b.resetAllFeedback()
	}
	b.anim.CancelItem(itemID)
	b.detach(v)
	delete(b.views, itemID)
	for i, id := range b.order {
		if id == itemID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.revision++
	return nil
}

// ReturnToPool moves a resting item, or the item being dragged, back to the
// lowest empty pool slot.
func (b *Board) ReturnToPool(itemID string) ([]PoolMove, error) {
	v, ok := b.views[itemID]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", itemID, ErrUnknownItem)
	}
	if b.drag != nil {
		if b.drag.ItemID != itemID {
			return nil, ErrDragInProgress
		}
		b.drag = nil
		b.resetAllFeedback()
	}
	b.anim.Settle(itemID)
	b.detach(v)
	return b.sendToPool(v, false)
}

// detach removes the item from whichever container holds it.
func (b *Board) detach(v *View) {
	if v.Location == LocationGrid {
		if bg, ok := b.byID[v.GridID]; ok {
			bg.Grid.Remove(v.Item)
		}
	}
	b.pool.Remove(v.Item)
	v.GridID = ""
	v.PoolSlot = -1
}

func (b *Board) sendToPool(v *View, wantsNear bool) ([]PoolMove, error) {
	moves, err := b.pool.Return(v.Item, wantsNear, v.Position)
	b.applyMoves(moves, true)
	if err != nil {
		b.log.Warn().Err(err).Str("item", v.Item.ID()).Msg("item left unhoused")
	}
	return moves, err
}

// applyMoves syncs views with pool moves, sliding them when animate is set.
func (b *Board) applyMoves(moves []PoolMove, animate bool) {
	for _, m := range moves {
		v, ok := b.views[m.Item.ID()]
		if !ok {
			continue
		}
		v.Phase = PhaseResting
		v.GridID = ""
		if !m.Housed() {
			v.Location = LocationUnhoused
			v.PoolSlot = -1
			continue
		}
		v.Location = LocationPool
		v.PoolSlot = m.Slot
		if animate {
			b.slide(v, m.Position)
		} else {
			b.anim.Cancel(v.Item.ID(), ChannelPosition)
			v.Position = m.Position
		}
	}
	if len(moves) > 0 {
		b.revision++
	}
}

// slide animates the view position to target.
func (b *Board) slide(v *View, target Vec2) {
	from := v.Position
	b.anim.Start(v.Item.ID(), ChannelPosition, ReturnSlideDuration,
		func(t float64) { v.Position = lerp(from, target, t) },
		func() { v.Position = target },
	)
}

func viewAngle(item Item) float64 {
	angle := float64(item.Rotation()) * 90
	if item.Flipped() {
		return -angle
	}
	return angle
}
