package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/placement-grid/game/engine"
	"github.com/wricardo/placement-grid/game/service"
)

var errUnknownConfig = errors.New("configuration not found")

// stubConfigs serves the built-in layout under "default" and a single-grid
// layout under "tiny".
type stubConfigs struct{}

func (stubConfigs) LoadConfig(name string) (*engine.LayoutConfig, error) {
	switch name {
	case "default":
		return engine.DefaultLayoutConfig(), nil
	case "tiny":
		return createTestConfig(), nil
	}
	return nil, errUnknownConfig
}

func (stubConfigs) ListConfigs() ([]*service.ConfigInfo, error) {
	return []*service.ConfigInfo{
		service.NewConfigInfo("default", "", engine.DefaultLayoutConfig()),
		service.NewConfigInfo("tiny", "tiny.yaml", createTestConfig()),
	}, nil
}

func (stubConfigs) GetDefault() *engine.LayoutConfig { return engine.DefaultLayoutConfig() }
func (stubConfigs) DefaultName() string              { return "default" }

func (stubConfigs) SaveConfig(string, *engine.LayoutConfig) error { return nil }

func createTestConfig() *engine.LayoutConfig {
	return &engine.LayoutConfig{
		Name:     "Tiny",
		CellSize: 10,
		Grids: []engine.GridConfig{
			{ID: "pouch", Center: engine.Vec2{X: 20, Y: 10}, Layout: []string{"...L", "..LL"}},
		},
		Pool: engine.PoolConfig{Capacity: 2, Origin: engine.Vec2{X: 5, Y: 50}, Spacing: engine.Vec2{X: 10}},
		Catalog: []engine.ItemConfig{
			{ID: "coin", Name: "Coin", Shape: []string{"#"}},
			{ID: "stick", Name: "Stick", Rarity: 1, Shape: []string{"##"}},
		},
		StartingItems: []string{"coin", "stick"},
		Expansion:     engine.ExpansionConfig{Tokens: 1},
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", "tiny", config)
		require.NoError(t, err)
		assert.Equal(t, "test-session", session.ID)
		assert.Equal(t, "tiny", session.ConfigID)
		require.NotNil(t, session.Board)
		assert.Len(t, session.Board.Views(), 2)
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "tiny", config)
		require.NoError(t, err)
		assert.Len(t, session.ID, 4)
	})

	t.Run("duplicate ID is case-insensitive", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "tiny", config)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("invalid ID", func(t *testing.T) {
		_, err := manager.Create("../escape", "tiny", config)
		assert.ErrorIs(t, err, ErrInvalidSessionID)
	})

	t.Run("nil config uses the built-in layout", func(t *testing.T) {
		session, err := manager.Create("builtin", "default", nil)
		require.NoError(t, err)
		_, err = session.Board.Grid("backpack")
		assert.NoError(t, err)
	})
}

func TestManager_GetAndDelete(t *testing.T) {
	manager := NewManager()
	_, err := manager.Create("AbCd", "tiny", createTestConfig())
	require.NoError(t, err)

	session, err := manager.Get("abcd")
	require.NoError(t, err)
	assert.Equal(t, "AbCd", session.ID)

	_, err = manager.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	again, err := manager.GetOrCreate("ABCD", "tiny", createTestConfig())
	require.NoError(t, err)
	assert.Same(t, session, again)

	fresh, err := manager.GetOrCreate("new1", "tiny", createTestConfig())
	require.NoError(t, err)
	assert.Equal(t, "new1", fresh.ID)
	assert.Equal(t, 2, manager.Count())

	require.NoError(t, manager.Delete("abcd"))
	assert.ErrorIs(t, manager.Delete("abcd"), ErrSessionNotFound)
	assert.Equal(t, 1, manager.Count())

	assert.ErrorIs(t, manager.DeleteFromMemory("abcd"), ErrSessionNotFound)
	require.NoError(t, manager.DeleteFromMemory("new1"))
	assert.Zero(t, manager.Count())
}

func TestManager_ListIsOrdered(t *testing.T) {
	manager := NewManager()
	for _, id := range []string{"c", "a", "b"} {
		_, err := manager.Create(id, "tiny", createTestConfig())
		require.NoError(t, err)
	}
	base := time.Now()
	for i, id := range []string{"c", "a", "b"} {
		s, _ := manager.Get(id)
		s.CreatedAt = base.Add(time.Duration(i) * time.Second)
	}

	var ids []string
	for _, s := range manager.List() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	manager := NewManager()
	old, err := manager.Create("old", "tiny", createTestConfig())
	require.NoError(t, err)
	_, err = manager.Create("new", "tiny", createTestConfig())
	require.NoError(t, err)

	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	assert.Equal(t, 1, manager.CleanupExpiredSessions(time.Hour))

	_, err = manager.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	before := time.Now()
	require.NoError(t, manager.UpdateLastAccessed("new"))
	s, _ := manager.Get("new")
	assert.False(t, s.LastAccessedAt.Before(before))
	assert.ErrorIs(t, manager.UpdateLastAccessed("old"), ErrSessionNotFound)
}

func TestManager_ConcurrentCreate(t *testing.T) {
	manager := NewManager()
	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := strings.Repeat("x", i+1)
			if _, err := manager.Create(id, "tiny", createTestConfig()); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 20, manager.Count())
}
