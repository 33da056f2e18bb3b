package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridFromLayout(t *testing.T, rows ...string) *Grid {
	t.Helper()
	g := newTestGrid(t, len(rows[0]), len(rows))
	require.NoError(t, ApplyLayout(g, rows))
	return g
}

func TestRefreshExpandableStates(t *testing.T) {
	g := gridFromLayout(t,
		"..L",
		"LLL",
		"DLL",
	)

	g.RefreshExpandableStates(true)
	assert.Equal(t, []string{
		"..E",
		"EEL",
		"DLL",
	}, EncodeLayout(g))

	g.RefreshExpandableStates(false)
	assert.Equal(t, []string{
		"..L",
		"LLL",
		"DLL",
	}, EncodeLayout(g))
}

func TestRefreshScenarioC(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.NoError(t, g.SetState(Coordinate{X: x, Y: y}, SlotLocked))
		}
	}
	require.NoError(t, g.SetState(Coordinate{X: 2, Y: 1}, SlotEmpty))

	g.RefreshExpandableStates(true)
	s, _ := g.State(Coordinate{X: 2, Y: 2})
	assert.Equal(t, SlotExpandable, s)

	g.RefreshExpandableStates(false)
	s, _ = g.State(Coordinate{X: 2, Y: 2})
	assert.Equal(t, SlotLocked, s)
}

func TestRefreshCountsOccupiedCells(t *testing.T) {
	g := gridFromLayout(t, ".L")
	g.Place(mustFootprint(t, "a", Coordinate{}), Coordinate{})

	g.RefreshExpandableStates(true)
	s, _ := g.State(Coordinate{X: 1})
	assert.Equal(t, SlotExpandable, s)
}

func TestGridExpand(t *testing.T) {
	g := gridFromLayout(t, "LD", "LL")

	require.NoError(t, g.Expand(Coordinate{X: 1, Y: 1}))
	require.NoError(t, g.Expand(Coordinate{X: 1}))
	assert.Equal(t, []string{"L.", "L."}, EncodeLayout(g))

	assert.ErrorIs(t, g.Expand(Coordinate{X: 2}), ErrOutOfBounds)
}

func TestGridSetDisabled(t *testing.T) {
	g := gridFromLayout(t, ".L")

	require.NoError(t, g.SetDisabled(Coordinate{}, true))
	require.NoError(t, g.SetDisabled(Coordinate{X: 1}, true))
	assert.Equal(t, []string{"DL"}, EncodeLayout(g))

	require.NoError(t, g.SetDisabled(Coordinate{}, false))
	assert.Equal(t, []string{".L"}, EncodeLayout(g))

	assert.ErrorIs(t, g.SetDisabled(Coordinate{Y: 1}, true), ErrOutOfBounds)
}

func TestTokenProgression(t *testing.T) {
	p := &TokenProgression{Tokens: 1}
	assert.True(t, p.IsExpansionUnlockable())

	p.NotifyExpanded("g", Coordinate{})
	assert.False(t, p.IsExpansionUnlockable())

	p.NotifyExpanded("g", Coordinate{})
	assert.Zero(t, p.Tokens)

	p.Grant(2)
	assert.Equal(t, 2, p.Tokens)
}

func expansionBoard(t *testing.T, tokens int) *Board {
	t.Helper()
	cfg := &LayoutConfig{
		Name:     "expansion",
		CellSize: 50,
		Grids: []GridConfig{{
			ID:     "bag",
			Center: Vec2{X: 75, Y: 50},
			Layout: []string{"..L", "LLL"},
		}},
		Pool:      PoolConfig{Capacity: 2, Origin: Vec2{X: 25, Y: 200}, Spacing: Vec2{X: 50}, Columns: 2},
		Catalog:   []ItemConfig{{ID: "dot", Name: "Dot", Shape: []string{"#"}}},
		Expansion: ExpansionConfig{Tokens: tokens},
	}
	b, err := NewBoardFromConfig(cfg)
	require.NoError(t, err)
	return b
}

func TestBoardTryExpand(t *testing.T) {
	t.Run("spends a token and refreshes", func(t *testing.T) {
		b := expansionBoard(t, 1)
		bg, err := b.Grid("bag")
		require.NoError(t, err)
		assert.Equal(t, []string{"..E", "EEL"}, EncodeLayout(bg.Grid))

		require.NoError(t, b.TryExpand("bag", Coordinate{X: 2}))

		tokens := b.Progression().(*TokenProgression).Tokens
		assert.Zero(t, tokens)
		assert.Equal(t, []string{"...", "LLL"}, EncodeLayout(bg.Grid), "gate closed reverts expandable cells")
	})

	t.Run("gate closed", func(t *testing.T) {
		b := expansionBoard(t, 0)
		err := b.TryExpand("bag", Coordinate{X: 2})
		assert.ErrorIs(t, err, ErrNotExpandable)
	})

	t.Run("locked cell with no unlocked neighbour", func(t *testing.T) {
		b := expansionBoard(t, 3)
		err := b.TryExpand("bag", Coordinate{X: 2, Y: 1})
		assert.ErrorIs(t, err, ErrNotExpandable)
	})

	t.Run("empty cell", func(t *testing.T) {
		b := expansionBoard(t, 3)
		assert.ErrorIs(t, b.TryExpand("bag", Coordinate{}), ErrNotExpandable)
	})

	t.Run("unknown grid", func(t *testing.T) {
		b := expansionBoard(t, 3)
		assert.ErrorIs(t, b.TryExpand("nope", Coordinate{}), ErrUnknownGrid)
	})

	t.Run("click maps the pointer", func(t *testing.T) {
		b := expansionBoard(t, 2)
		c, err := b.ClickCell("bag", Vec2{X: 130, Y: 20})
		require.NoError(t, err)
		assert.Equal(t, Coordinate{X: 2}, c)
	})
}

func TestBoardExpandIsUnconditional(t *testing.T) {
	b := expansionBoard(t, 0)
	require.NoError(t, b.Expand("bag", Coordinate{X: 2, Y: 1}))

	bg, _ := b.Grid("bag")
	s, _ := bg.Grid.State(Coordinate{X: 2, Y: 1})
	assert.Equal(t, SlotEmpty, s)
}

func TestBoardSetDisabled(t *testing.T) {
	b := expansionBoard(t, 0)
	require.NoError(t, b.SetDisabled("bag", Coordinate{X: 1}, true))

	bg, _ := b.Grid("bag")
	assert.False(t, bg.Grid.IsPlaceable(Coordinate{X: 1}))
	assert.ErrorIs(t, b.SetDisabled("bag", Coordinate{X: 9}, true), ErrOutOfBounds)
}
