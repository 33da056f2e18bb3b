package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrid(t *testing.T, sizeX, sizeY int) *Grid {
	t.Helper()
	g, err := NewGrid("test", sizeX, sizeY)
	require.NoError(t, err)
	return g
}

func TestNewGrid(t *testing.T) {
	tests := []struct {
		name    string
		x, y    int
		wantErr bool
	}{
		{"minimum", 1, 1, false},
		{"rectangular", 6, 3, false},
		{"maximum", MaxGridSize, MaxGridSize, false},
		{"zero width", 0, 3, true},
		{"too tall", 3, MaxGridSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid("g", tt.x, tt.y)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			s, err := g.State(Coordinate{X: tt.x - 1, Y: tt.y - 1})
			require.NoError(t, err)
			assert.Equal(t, SlotEmpty, s)
		})
	}
}

func TestGridScenarioA(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	item := mustFootprint(t, "a", Coordinate{}, Coordinate{X: 1})

	evicted := g.Place(item, Coordinate{})
	assert.Empty(t, evicted)

	occ, ok := g.Occupant(Coordinate{X: 1})
	require.True(t, ok)
	assert.Equal(t, item, occ)

	_, ok = g.Occupant(Coordinate{X: 2})
	assert.False(t, ok)
	require.NoError(t, g.CheckConsistency())
}

func TestGridScenarioB(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	a := mustFootprint(t, "a", Coordinate{})
	b := mustFootprint(t, "b", Coordinate{}, Coordinate{Y: 1})

	g.Place(a, Coordinate{})
	evicted := g.Place(b, Coordinate{})

	require.Len(t, evicted, 1)
	assert.Equal(t, "a", evicted[0].ID())
	assert.False(t, g.Contains(a))

	for _, c := range []Coordinate{{}, {Y: 1}} {
		occ, ok := g.Occupant(c)
		require.True(t, ok)
		assert.Equal(t, "b", occ.ID())
	}
	require.NoError(t, g.CheckConsistency())
}

func TestGridEviction(t *testing.T) {
	t.Run("multi-cell overlap evicts once", func(t *testing.T) {
		g := newTestGrid(t, 4, 4)
		a := mustFootprint(t, "a", Coordinate{}, Coordinate{X: 1}, Coordinate{Y: 1}, Coordinate{X: 1, Y: 1})
		b := mustFootprint(t, "b", Coordinate{}, Coordinate{X: 1})

		g.Place(a, Coordinate{})
		evicted := g.Place(b, Coordinate{Y: 1})

		require.Len(t, evicted, 1)
		assert.Equal(t, "a", evicted[0].ID())
		_, ok := g.Occupant(Coordinate{})
		assert.False(t, ok, "evicted item must be cleared from every cell")
		require.NoError(t, g.CheckConsistency())
	})

	t.Run("several occupants", func(t *testing.T) {
		g := newTestGrid(t, 4, 4)
		a := mustFootprint(t, "a", Coordinate{})
		c := mustFootprint(t, "c", Coordinate{})
		b := mustFootprint(t, "b", Coordinate{}, Coordinate{X: 1})

		g.Place(a, Coordinate{})
		g.Place(c, Coordinate{X: 1})
		evicted := g.Place(b, Coordinate{})

		require.Len(t, evicted, 2)
		assert.Equal(t, "a", evicted[0].ID())
		assert.Equal(t, "c", evicted[1].ID())
		require.NoError(t, g.CheckConsistency())
	})

	t.Run("shared anchor without overlapping cells", func(t *testing.T) {
		g := newTestGrid(t, 4, 4)
		a := mustFootprint(t, "a", Coordinate{})
		b := mustFootprint(t, "b", Coordinate{X: 1})

		g.Place(a, Coordinate{X: 1, Y: 1})
		evicted := g.Place(b, Coordinate{X: 1, Y: 1})

		require.Len(t, evicted, 1)
		assert.Equal(t, "a", evicted[0].ID())
		require.NoError(t, g.CheckConsistency())
	})

	t.Run("unplaceable cells are overwritten", func(t *testing.T) {
		g := newTestGrid(t, 2, 2)
		require.NoError(t, g.SetState(Coordinate{}, SlotLocked))
		a := mustFootprint(t, "a", Coordinate{})

		g.Place(a, Coordinate{})
		assert.True(t, g.Contains(a))
		s, _ := g.State(Coordinate{})
		assert.Equal(t, SlotLocked, s, "placement never changes availability")
	})
}

func TestGridPlaceOutOfBounds(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	changes := 0
	g.OnChanged(func(*Grid) { changes++ })

	item := mustFootprint(t, "wide", Coordinate{}, Coordinate{X: 1})
	evicted := g.Place(item, Coordinate{X: 3})

	assert.Nil(t, evicted)
	assert.False(t, g.Contains(item))
	assert.Zero(t, changes)
	_, ok := g.Occupant(Coordinate{X: 3})
	assert.False(t, ok)
	require.NoError(t, g.CheckConsistency())
}

func TestGridRemove(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	changes := 0
	g.OnChanged(func(*Grid) { changes++ })

	item := mustFootprint(t, "a", Coordinate{}, Coordinate{X: 1})
	assert.False(t, g.Remove(item), "absent item")
	assert.Zero(t, changes)

	g.Place(item, Coordinate{X: 1, Y: 2})
	assert.Equal(t, 1, changes)

	anchor, ok := g.AnchorOf(item)
	require.True(t, ok)
	assert.Equal(t, Coordinate{X: 1, Y: 2}, anchor)

	assert.True(t, g.Remove(item))
	assert.Equal(t, 2, changes)
	_, ok = g.Occupant(Coordinate{X: 2, Y: 2})
	assert.False(t, ok)
	assert.Empty(t, g.Items())
	require.NoError(t, g.CheckConsistency())
}

func TestGridRemoveAfterRotation(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	item := mustFootprint(t, "a", Coordinate{}, Coordinate{X: 1}, Coordinate{X: 2})
	g.Place(item, Coordinate{Y: 1})

	item.Rotate()
	require.True(t, g.Remove(item))

	for x := 0; x < 3; x++ {
		_, ok := g.Occupant(Coordinate{X: x, Y: 1})
		assert.False(t, ok)
	}
	require.NoError(t, g.CheckConsistency())
}

func TestGridReplaceAfterRotation(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	item := mustFootprint(t, "a", Coordinate{}, Coordinate{X: 1})
	g.Place(item, Coordinate{X: 1, Y: 1})

	item.Rotate()
	evicted := g.Place(item, Coordinate{X: 1, Y: 1})
	assert.Empty(t, evicted)
	require.NoError(t, g.CheckConsistency())

	_, ok := g.Occupant(Coordinate{X: 2, Y: 1})
	assert.False(t, ok, "cell of the old shape must be released")
	occ, ok := g.Occupant(Coordinate{X: 1, Y: 2})
	require.True(t, ok)
	assert.Equal(t, "a", occ.ID())

	// placing the same shape at the same anchor again changes nothing
	assert.Empty(t, g.Place(item, Coordinate{X: 1, Y: 1}))
	require.NoError(t, g.CheckConsistency())

	require.True(t, g.Remove(item))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			_, ok := g.Occupant(Coordinate{X: x, Y: y})
			assert.False(t, ok, "cell %d,%d", x, y)
		}
	}
	require.NoError(t, g.CheckConsistency())
}

func TestGridMoveWithinGrid(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	item := mustFootprint(t, "a", Coordinate{}, Coordinate{X: 1})

	g.Place(item, Coordinate{})
	evicted := g.Place(item, Coordinate{X: 1, Y: 3})

	assert.Empty(t, evicted)
	_, ok := g.Occupant(Coordinate{})
	assert.False(t, ok)
	occ, ok := g.Occupant(Coordinate{X: 2, Y: 3})
	require.True(t, ok)
	assert.Equal(t, "a", occ.ID())
	assert.Len(t, g.Placements(), 1)
	require.NoError(t, g.CheckConsistency())
}

func TestGridPlaceable(t *testing.T) {
	g := newTestGrid(t, 4, 1)
	require.NoError(t, g.SetState(Coordinate{X: 1}, SlotLocked))
	require.NoError(t, g.SetState(Coordinate{X: 2}, SlotDisabled))
	require.NoError(t, g.SetState(Coordinate{X: 3}, SlotExpandable))

	g.Place(mustFootprint(t, "a", Coordinate{}), Coordinate{})

	assert.True(t, g.IsPlaceable(Coordinate{}), "occupied empty cell stays placeable")
	assert.False(t, g.IsPlaceable(Coordinate{X: 1}))
	assert.False(t, g.IsPlaceable(Coordinate{X: 2}))
	assert.False(t, g.IsPlaceable(Coordinate{X: 3}))
	assert.False(t, g.IsPlaceable(Coordinate{X: -1}))
	assert.False(t, g.IsPlaceable(Coordinate{Y: 1}))

	_, err := g.State(Coordinate{X: 4})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestGridCellView(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	f, err := NewFootprint(FootprintSpec{ID: "gem", Rarity: 3, Cells: []Coordinate{{}}})
	require.NoError(t, err)
	g.Place(f, Coordinate{X: 1, Y: 1})

	view, err := g.Cell(Coordinate{X: 1, Y: 1})
	require.NoError(t, err)
	assert.True(t, view.Full())
	assert.Equal(t, SlotEmpty, view.State)

	r, ok := g.Rarity(Coordinate{X: 1, Y: 1})
	require.True(t, ok)
	assert.Equal(t, 3, r)

	view, err = g.Cell(Coordinate{})
	require.NoError(t, err)
	assert.False(t, view.Full())

	_, err = g.Cell(Coordinate{X: 2})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestGridOnChangedOncePerPlace(t *testing.T) {
	g := newTestGrid(t, 3, 3)
	changes := 0
	g.OnChanged(func(*Grid) { changes++ })

	g.Place(mustFootprint(t, "a", Coordinate{}), Coordinate{})
	g.Place(mustFootprint(t, "b", Coordinate{}), Coordinate{X: 1})
	g.Place(mustFootprint(t, "c", Coordinate{}, Coordinate{X: 1}), Coordinate{})

	assert.Equal(t, 3, changes)
}

func TestGridReset(t *testing.T) {
	g := newTestGrid(t, 3, 3)
	require.NoError(t, g.SetState(Coordinate{X: 2}, SlotLocked))
	g.Place(mustFootprint(t, "a", Coordinate{}), Coordinate{})

	g.Reset()

	assert.Empty(t, g.Items())
	s, _ := g.State(Coordinate{X: 2})
	assert.Equal(t, SlotLocked, s)
	require.NoError(t, g.CheckConsistency())
}
