package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// assertSingleOwner checks that every item is held by exactly one container
// and that each view agrees with it.
func assertSingleOwner(t *testing.T, b *Board) {
	t.Helper()
	for _, bg := range b.Grids() {
		require.NoError(t, bg.Grid.CheckConsistency())
	}
	for _, v := range b.Views() {
		owners := 0
		for _, bg := range b.Grids() {
			if bg.Grid.Contains(v.Item) {
				owners++
				require.Equal(t, LocationGrid, v.Location, "item %s", v.Item.ID())
				require.Equal(t, bg.Grid.ID(), v.GridID)
				anchor, ok := bg.Grid.AnchorOf(v.Item)
				require.True(t, ok)
				require.Equal(t, v.Anchor, anchor)
			}
		}
		if slot, ok := b.Pool().SlotOf(v.Item); ok {
			owners++
			require.Equal(t, LocationPool, v.Location, "item %s", v.Item.ID())
			require.Equal(t, v.PoolSlot, slot)
		}
		switch v.Location {
		case LocationUnhoused, LocationHeld:
			require.Zero(t, owners, "item %s", v.Item.ID())
		default:
			require.Equal(t, 1, owners, "item %s", v.Item.ID())
		}
	}
}

func TestRandomOperationsKeepIndicesConsistent(t *testing.T) {
	cfg := DefaultLayoutConfig()
	cfg.StartingItems = []string{"potion", "potion", "shield", "sword", "bow", "bow"}
	cfg.Expansion = ExpansionConfig{Tokens: 3}

	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		b, err := NewBoardFromConfig(cfg)
		require.NoError(t, err)
		bg, err := b.Grid("backpack")
		require.NoError(t, err)

		for step := 0; step < 200; step++ {
			views := b.Views()
			id := views[rng.Intn(len(views))].Item.ID()
			anchor := Coordinate{X: rng.Intn(bg.Grid.SizeX()), Y: rng.Intn(bg.Grid.SizeY())}

			switch rng.Intn(6) {
			case 0, 1:
				_, err = b.PlaceAt(id, "backpack", anchor)
				require.NoError(t, err)
			case 2:
				require.NoError(t, b.BeginDrag(id))
				_, err = b.Rotate(id)
				require.NoError(t, err)
				_, err = b.DragMove(id, Vec2{X: rng.Float64() * 300, Y: rng.Float64() * 300})
				require.NoError(t, err)
				assertSingleOwner(t, b)
				_, err = b.EndDrag(id)
				require.NoError(t, err)
			case 3:
				_, err = b.ReturnToPool(id)
				require.NoError(t, err)
			case 4:
				_ = b.TryExpand("backpack", anchor)
			case 5:
				b.Tick(rng.Float64() * 0.2)
			}
			assertSingleOwner(t, b)
		}
	}
}
