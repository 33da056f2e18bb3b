package service

import (
	"context"
	"time"

	"github.com/wricardo/placement-grid/game/engine"
)

// InventoryService defines all board operations exposed to transports
type InventoryService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Reset(ctx context.Context, sessionID string) (*ActionResult, error)

	// Board State
	GetBoardState(ctx context.Context, sessionID string) (*engine.BoardState, error)
	RenderBoard(ctx context.Context, sessionID string, colored bool) (string, error)

	// Items
	SpawnItem(ctx context.Context, sessionID, catalogID string) (*ActionResult, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*ActionResult, error)
	BeginDrag(ctx context.Context, sessionID, itemID string) (*ActionResult, error)
	DragMove(ctx context.Context, sessionID, itemID string, pointer engine.Vec2) (*ActionResult, error)
	EndDrag(ctx context.Context, sessionID, itemID string) (*ActionResult, error)
	RotateItem(ctx context.Context, sessionID, itemID string) (*ActionResult, error)
	PlaceItem(ctx context.Context, sessionID, itemID, gridID string, anchor engine.Coordinate) (*ActionResult, error)
	ReturnItem(ctx context.Context, sessionID, itemID string) (*ActionResult, error)
	Hover(ctx context.Context, sessionID string, pointer engine.Vec2) (*ActionResult, error)

	// Slots
	ExpandSlot(ctx context.Context, sessionID, gridID string, c engine.Coordinate) (*ActionResult, error)
	ClickSlot(ctx context.Context, sessionID, gridID string, pointer engine.Vec2) (*ActionResult, error)
	SetSlotDisabled(ctx context.Context, sessionID, gridID string, c engine.Coordinate, disabled bool) (*ActionResult, error)
	GrantTokens(ctx context.Context, sessionID string, n int) (*ActionResult, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.LayoutConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.LayoutConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.LayoutConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.LayoutConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles layout configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.LayoutConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.LayoutConfig
	DefaultName() string
	SaveConfig(name string, config *engine.LayoutConfig) error
}

// Session represents an active inventory session
type Session struct {
	ID             string
	ConfigID       string
	Board          *engine.Board
	Config         *engine.LayoutConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
	// LastTick is when the board's animations were last advanced.
	LastTick time.Time
}
