package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/wricardo/placement-grid/game/config"
	"github.com/wricardo/placement-grid/game/engine"
	"github.com/wricardo/placement-grid/game/service"
	"github.com/wricardo/placement-grid/game/session"
)

// fakeClock is advanced by hand so animation ticks are deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupTestService(t *testing.T) (service.InventoryService, *fakeClock) {
	t.Helper()
	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := service.NewInventoryService(
		session.NewManager(),
		configs,
		service.WithClock(clock.Now),
		service.WithMeter(noop.NewMeterProvider().Meter("test")),
	)
	return svc, clock
}

// newSession creates a default-layout session and returns the potion,
// shield and sword item IDs.
func newSession(t *testing.T, svc service.InventoryService) (string, [3]string) {
	t.Helper()
	info, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, info.State.Items, 3)
	return info.ID, [3]string{info.State.Items[0].ID, info.State.Items[1].ID, info.State.Items[2].ID}
}

func item(t *testing.T, st *engine.BoardState, id string) engine.ItemState {
	t.Helper()
	for _, it := range st.Items {
		if it.ID == id {
			return it
		}
	}
	t.Fatalf("item %s not in state", id)
	return engine.ItemState{}
}

func eventTypes(events []service.BoardEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, config.DefaultConfigName, info.ConfigName)
	require.NotNil(t, info.State.Tokens)
	assert.Equal(t, 2, *info.State.Tokens)
	for _, it := range info.State.Items {
		assert.Equal(t, engine.LocationPool, it.Location)
	}

	got, err := svc.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteSession(ctx, info.ID))
	_, err = svc.GetSession(ctx, info.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, info.ID), session.ErrSessionNotFound)
}

func TestCreateSessionUnknownConfig(t *testing.T) {
	svc, _ := setupTestService(t)
	_, err := svc.CreateSession(context.Background(), "ghost")
	require.ErrorIs(t, err, config.ErrConfigNotFound)
	assert.Contains(t, err.Error(), "available: [default]")
}

func TestPlaceItem(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, ids := newSession(t, svc)
	potion, shield, sword := ids[0], ids[1], ids[2]

	t.Run("place on empty cell", func(t *testing.T) {
		res, err := svc.PlaceItem(ctx, sid, potion, "backpack", engine.Coordinate{})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, []string{service.EventPlaced}, eventTypes(res.Events))
		it := item(t, res.State, potion)
		assert.Equal(t, engine.LocationGrid, it.Location)
		assert.Equal(t, &engine.Coordinate{}, it.Anchor)
	})

	t.Run("place over an item evicts it", func(t *testing.T) {
		res, err := svc.PlaceItem(ctx, sid, shield, "backpack", engine.Coordinate{})
		require.NoError(t, err)
		assert.True(t, res.Success)
		require.NotNil(t, res.Drop)
		assert.Equal(t, []string{potion}, res.Drop.Evicted)
		assert.Equal(t, []string{service.EventPlaced, service.EventEvicted}, eventTypes(res.Events))
		assert.Equal(t, engine.LocationPool, item(t, res.State, potion).Location)
	})

	t.Run("blocked drop returns to pool", func(t *testing.T) {
		res, err := svc.PlaceItem(ctx, sid, sword, "backpack", engine.Coordinate{X: 4})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, engine.RejectBlocked, res.Drop.Reason)
		assert.Equal(t, []string{service.EventRejected}, eventTypes(res.Events))
		assert.Equal(t, engine.LocationPool, item(t, res.State, sword).Location)
	})

	t.Run("out of bounds anchor", func(t *testing.T) {
		_, err := svc.PlaceItem(ctx, sid, sword, "backpack", engine.Coordinate{X: 9})
		assert.ErrorIs(t, err, engine.ErrOutOfBounds)
	})

	t.Run("unknown grid and item", func(t *testing.T) {
		_, err := svc.PlaceItem(ctx, sid, sword, "satchel", engine.Coordinate{})
		assert.ErrorIs(t, err, engine.ErrUnknownGrid)
		_, err = svc.PlaceItem(ctx, sid, "nope", "backpack", engine.Coordinate{})
		assert.ErrorIs(t, err, engine.ErrUnknownItem)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.PlaceItem(ctx, "zzzz", sword, "backpack", engine.Coordinate{})
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})
}

func TestDragFlow(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, ids := newSession(t, svc)
	potion, shield := ids[0], ids[1]

	res, err := svc.BeginDrag(ctx, sid, potion)
	require.NoError(t, err)
	assert.Equal(t, []string{service.EventDragStarted}, eventTypes(res.Events))
	require.NotNil(t, res.State.Drag)
	assert.Equal(t, potion, res.State.Drag.ItemID)

	_, err = svc.BeginDrag(ctx, sid, shield)
	assert.ErrorIs(t, err, engine.ErrDragInProgress)

	res, err = svc.DragMove(ctx, sid, potion, engine.Vec2{X: 25, Y: 25})
	require.NoError(t, err)
	require.Len(t, res.Feedback, 1)
	assert.Equal(t, []engine.Coordinate{{}}, res.Feedback[0].Valid)
	assert.Empty(t, res.Events)

	res, err = svc.EndDrag(ctx, sid, potion)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "backpack", res.Drop.GridID)
	assert.Nil(t, res.State.Drag)

	_, err = svc.EndDrag(ctx, sid, potion)
	assert.ErrorIs(t, err, engine.ErrNotDragging)
}

func TestRotateItem(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, ids := newSession(t, svc)
	potion, sword := ids[0], ids[2]

	t.Run("pool item rotates in place", func(t *testing.T) {
		res, err := svc.RotateItem(ctx, sid, sword)
		require.NoError(t, err)
		assert.True(t, res.Success)
		it := item(t, res.State, sword)
		assert.Equal(t, 1, it.Rotation)
		assert.Equal(t, engine.LocationPool, it.Location)
	})

	t.Run("pool item keeps its slot when a lower one is free", func(t *testing.T) {
		st, err := svc.GetBoardState(ctx, sid)
		require.NoError(t, err)
		before := item(t, st, sword)
		require.NotNil(t, before.PoolSlot)

		_, err = svc.PlaceItem(ctx, sid, potion, "backpack", engine.Coordinate{X: 2, Y: 2})
		require.NoError(t, err)
		res, err := svc.RotateItem(ctx, sid, sword)
		require.NoError(t, err)
		after := item(t, res.State, sword)
		assert.Equal(t, engine.LocationPool, after.Location)
		assert.Equal(t, before.PoolSlot, after.PoolSlot)
		assert.Equal(t, 2, after.Rotation)

		_, err = svc.ReturnItem(ctx, sid, potion)
		require.NoError(t, err)
	})

	t.Run("grid item that still fits stays", func(t *testing.T) {
		_, err := svc.PlaceItem(ctx, sid, potion, "backpack", engine.Coordinate{X: 1, Y: 1})
		require.NoError(t, err)
		res, err := svc.RotateItem(ctx, sid, potion)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, []string{service.EventRotated, service.EventPlaced}, eventTypes(res.Events))
		assert.Equal(t, &engine.Coordinate{X: 1, Y: 1}, item(t, res.State, potion).Anchor)
	})

	t.Run("grid item that no longer fits falls back to the pool", func(t *testing.T) {
		// two more rotations bring the sword back to vertical
		for i := 0; i < 2; i++ {
			_, err := svc.RotateItem(ctx, sid, sword)
			require.NoError(t, err)
		}
		res, err := svc.PlaceItem(ctx, sid, sword, "backpack", engine.Coordinate{})
		require.NoError(t, err)
		require.True(t, res.Success)

		res, err = svc.RotateItem(ctx, sid, sword)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, engine.RejectOutside, res.Drop.Reason)
		assert.Equal(t, []string{service.EventRotated, service.EventRejected}, eventTypes(res.Events))
		assert.Equal(t, engine.LocationPool, item(t, res.State, sword).Location)
	})

	t.Run("held item rotates in hand", func(t *testing.T) {
		_, err := svc.BeginDrag(ctx, sid, potion)
		require.NoError(t, err)
		res, err := svc.RotateItem(ctx, sid, potion)
		require.NoError(t, err)
		assert.Equal(t, engine.LocationHeld, item(t, res.State, potion).Location)
		_, err = svc.EndDrag(ctx, sid, potion)
		require.NoError(t, err)
	})
}

func TestReturnItemAnimatesWithClock(t *testing.T) {
	svc, clock := setupTestService(t)
	ctx := context.Background()
	sid, ids := newSession(t, svc)
	potion := ids[0]

	_, err := svc.PlaceItem(ctx, sid, potion, "backpack", engine.Coordinate{X: 2, Y: 2})
	require.NoError(t, err)

	res, err := svc.ReturnItem(ctx, sid, potion)
	require.NoError(t, err)
	require.Len(t, res.Moves, 1)
	assert.Equal(t, potion, res.Moves[0].ItemID)
	assert.Equal(t, 0, res.Moves[0].Slot)
	assert.True(t, item(t, res.State, potion).Animating)

	clock.Advance(time.Second)
	st, err := svc.GetBoardState(ctx, sid)
	require.NoError(t, err)
	it := item(t, st, potion)
	assert.False(t, it.Animating)
	assert.Equal(t, res.Moves[0].Position, it.Position)
}

func TestSavingKeepsAnimationsRunning(t *testing.T) {
	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	persistence, err := session.NewFilePersistence(t.TempDir(), configs)
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := service.NewInventoryService(
		session.NewManagerWithPersistence(persistence),
		configs,
		service.WithClock(clock.Now),
		service.WithMeter(noop.NewMeterProvider().Meter("test")),
	)
	ctx := context.Background()
	sid, ids := newSession(t, svc)
	potion, shield := ids[0], ids[1]

	_, err = svc.PlaceItem(ctx, sid, potion, "backpack", engine.Coordinate{})
	require.NoError(t, err)
	res, err := svc.PlaceItem(ctx, sid, shield, "backpack", engine.Coordinate{})
	require.NoError(t, err)
	require.Equal(t, []string{potion}, res.Drop.Evicted)
	require.True(t, persistence.Exists(sid))

	assert.True(t, item(t, res.State, potion).Animating, "the evicted item is still sliding after the save")
	st, err := svc.GetBoardState(ctx, sid)
	require.NoError(t, err)
	assert.True(t, item(t, st, potion).Animating)

	loaded, err := persistence.Load(sid)
	require.NoError(t, err)
	v, err := loaded.Board.View(potion)
	require.NoError(t, err)
	assert.Equal(t, engine.LocationPool, v.Location, "the saved copy holds the slide's destination")

	clock.Advance(time.Second)
	st, err = svc.GetBoardState(ctx, sid)
	require.NoError(t, err)
	it := item(t, st, potion)
	assert.False(t, it.Animating)
	assert.Equal(t, v.Position, it.Position)
}

func TestSpawnAndRemove(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, _ := newSession(t, svc)

	res, err := svc.SpawnItem(ctx, sid, "bow")
	require.NoError(t, err)
	assert.Equal(t, []string{service.EventSpawned}, eventTypes(res.Events))
	bow := item(t, res.State, res.ItemID)
	assert.Equal(t, "bow", bow.CatalogID)
	require.NotNil(t, bow.PoolSlot)
	assert.Equal(t, 3, *bow.PoolSlot)

	_, err = svc.SpawnItem(ctx, sid, "axe")
	assert.ErrorIs(t, err, engine.ErrUnknownCatalogItem)

	res, err = svc.RemoveItem(ctx, sid, bow.ID)
	require.NoError(t, err)
	assert.Len(t, res.State.Items, 3)

	_, err = svc.RemoveItem(ctx, sid, bow.ID)
	assert.ErrorIs(t, err, engine.ErrUnknownItem)
}

func TestSpawnIntoFullPool(t *testing.T) {
	dir := t.TempDir()
	configs, err := config.NewManager(dir)
	require.NoError(t, err)
	cfg := engine.DefaultLayoutConfig()
	cfg.Pool.Capacity = 3
	cfg.Pool.Overflow = false
	require.NoError(t, configs.SaveConfig("tight", cfg))

	svc := service.NewInventoryService(session.NewManager(), configs,
		service.WithMeter(noop.NewMeterProvider().Meter("test")))
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, "tight")
	require.NoError(t, err)

	res, err := svc.SpawnItem(ctx, info.ID, "potion")
	require.NoError(t, err, "exhaustion is reported, not fatal")
	assert.Equal(t, []string{service.EventSpawned, service.EventPoolExhausted}, eventTypes(res.Events))
	assert.Equal(t, engine.LocationUnhoused, item(t, res.State, res.ItemID).Location)
}

func TestExpansion(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, _ := newSession(t, svc)

	res, err := svc.ExpandSlot(ctx, sid, "backpack", engine.Coordinate{X: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{service.EventExpanded}, eventTypes(res.Events))
	assert.Equal(t, 1, *res.State.Tokens)
	assert.Equal(t, engine.SlotEmpty, res.State.Grids[0].Cells[0][4].State)

	_, err = svc.ExpandSlot(ctx, sid, "backpack", engine.Coordinate{X: 0})
	assert.ErrorIs(t, err, engine.ErrNotExpandable, "empty cells cannot be expanded")

	// (4,1) is at (225,75) on screen
	res, err = svc.ClickSlot(ctx, sid, "backpack", engine.Vec2{X: 225, Y: 75})
	require.NoError(t, err)
	assert.Equal(t, &engine.Coordinate{X: 4, Y: 1}, res.Coordinate)
	assert.Equal(t, 0, *res.State.Tokens)
	assert.False(t, res.State.ExpansionOpen)

	_, err = svc.ExpandSlot(ctx, sid, "backpack", engine.Coordinate{X: 3, Y: 2})
	assert.ErrorIs(t, err, engine.ErrNotExpandable, "gate is closed")

	_, err = svc.GrantTokens(ctx, sid, 0)
	assert.ErrorIs(t, err, service.ErrInvalidArgument)

	res, err = svc.GrantTokens(ctx, sid, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, *res.State.Tokens)
	assert.Equal(t, engine.SlotExpandable, res.State.Grids[0].Cells[2][3].State)
}

func TestUnlimitedExpansionRejectsTokens(t *testing.T) {
	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	cfg := engine.DefaultLayoutConfig()
	cfg.Expansion = engine.ExpansionConfig{Unlimited: true}
	require.NoError(t, configs.SaveConfig("open", cfg))

	svc := service.NewInventoryService(session.NewManager(), configs,
		service.WithMeter(noop.NewMeterProvider().Meter("test")))
	info, err := svc.CreateSession(context.Background(), "open")
	require.NoError(t, err)

	_, err = svc.GrantTokens(context.Background(), info.ID, 1)
	assert.ErrorIs(t, err, service.ErrUnlimitedExpansion)
}

func TestSetSlotDisabled(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, ids := newSession(t, svc)

	res, err := svc.SetSlotDisabled(ctx, sid, "backpack", engine.Coordinate{X: 1}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{service.EventDisabled}, eventTypes(res.Events))
	assert.Equal(t, engine.SlotDisabled, res.State.Grids[0].Cells[0][1].State)

	res, err = svc.PlaceItem(ctx, sid, ids[0], "backpack", engine.Coordinate{X: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = svc.SetSlotDisabled(ctx, sid, "backpack", engine.Coordinate{X: 1}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{service.EventEnabled}, eventTypes(res.Events))
	assert.Equal(t, engine.SlotEmpty, res.State.Grids[0].Cells[0][1].State)
}

func TestHoverAndRender(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, _ := newSession(t, svc)

	res, err := svc.Hover(ctx, sid, engine.Vec2{X: 225, Y: 25})
	require.NoError(t, err)
	cell := res.State.Grids[0].Cells[0][4]
	assert.Equal(t, engine.SlotExpandable, cell.State)
	assert.Equal(t, engine.DefaultSprites().ExpandableHover, cell.Sprite)

	view, err := svc.RenderBoard(ctx, sid, false)
	require.NoError(t, err)
	assert.Contains(t, view, " 3  + + + # #")
	assert.Contains(t, view, "expansion tokens: 2")
}

func TestReset(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, ids := newSession(t, svc)

	_, err := svc.PlaceItem(ctx, sid, ids[0], "backpack", engine.Coordinate{})
	require.NoError(t, err)
	_, err = svc.ExpandSlot(ctx, sid, "backpack", engine.Coordinate{X: 4})
	require.NoError(t, err)

	res, err := svc.Reset(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, []string{service.EventReset}, eventTypes(res.Events))
	assert.Equal(t, 2, *res.State.Tokens)
	for _, it := range res.State.Items {
		assert.Equal(t, engine.LocationPool, it.Location)
	}
}

func TestConfigPassThrough(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	cfg := engine.DefaultLayoutConfig()
	cfg.Name = "Copy"
	require.NoError(t, svc.SaveConfig(ctx, "copy", cfg))

	loaded, err := svc.LoadConfig(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, "Copy", loaded.Name)

	list, err := svc.ListConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "copy", list[0].ConfigID)
	assert.Equal(t, config.DefaultConfigName, list[1].ConfigID)
}

func TestConcurrentOperations(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	sid, ids := newSession(t, svc)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ids[i%3]
			_, err := svc.PlaceItem(ctx, sid, id, "backpack", engine.Coordinate{X: i % 3, Y: i % 2})
			assert.NoError(t, err)
			_, err = svc.GetBoardState(ctx, sid)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st, err := svc.GetBoardState(ctx, sid)
	require.NoError(t, err)
	assert.Len(t, st.Items, 3)
}
