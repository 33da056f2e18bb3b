package service

import (
	"time"

	"github.com/wricardo/placement-grid/game/engine"
)

// SessionInfo provides information about an inventory session
type SessionInfo struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	State          *engine.BoardState   `json:"state"`
	Config         *engine.LayoutConfig `json:"config,omitempty"`
}

// ActionResult is returned by every operation that changes a board
type ActionResult struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	ItemID     string                `json:"item_id,omitempty"`
	Drop       *engine.DropResult    `json:"drop,omitempty"`
	Feedback   []engine.GridFeedback `json:"feedback,omitempty"`
	Moves      []PoolMoveInfo        `json:"moves,omitempty"`
	Coordinate *engine.Coordinate    `json:"coordinate,omitempty"`
	Events     []BoardEvent          `json:"events,omitempty"`
	State      *engine.BoardState    `json:"state"`
}

// PoolMoveInfo is the wire form of engine.PoolMove. Slot is -1 for an item
// the pool could not house.
type PoolMoveInfo struct {
	ItemID   string      `json:"item_id"`
	Slot     int         `json:"slot"`
	Position engine.Vec2 `json:"position"`
}

// Event types reported in ActionResult.Events
const (
	EventSpawned       = "spawned"
	EventRemoved       = "removed"
	EventDragStarted   = "drag_started"
	EventRotated       = "rotated"
	EventPlaced        = "placed"
	EventRejected      = "rejected"
	EventEvicted       = "evicted"
	EventReturned      = "returned"
	EventPoolExhausted = "pool_exhausted"
	EventExpanded      = "expanded"
	EventDisabled      = "disabled"
	EventEnabled       = "enabled"
	EventTokens        = "tokens_granted"
	EventReset         = "reset"
)

// BoardEvent represents something that happened on a board
type BoardEvent struct {
	Type       string             `json:"type"`
	Message    string             `json:"message"`
	Timestamp  time.Time          `json:"timestamp"`
	ItemID     string             `json:"item_id,omitempty"`
	GridID     string             `json:"grid_id,omitempty"`
	Coordinate *engine.Coordinate `json:"coordinate,omitempty"`
}

// ConfigInfo provides information about a layout configuration
type ConfigInfo struct {
	Filename     string     `json:"filename"`
	ConfigID     string     `json:"config_id"` // The identifier to use for session creation
	Name         string     `json:"name"`      // Display name
	Description  string     `json:"description"`
	Grids        []GridInfo `json:"grids"`
	PoolCapacity int        `json:"pool_capacity"`
	CatalogSize  int        `json:"catalog_size"`
}

// GridInfo summarises one grid of a layout
type GridInfo struct {
	ID    string `json:"id"`
	SizeX int    `json:"size_x"`
	SizeY int    `json:"size_y"`
}

// NewConfigInfo summarises cfg under the given identifier.
func NewConfigInfo(configID, filename string, cfg *engine.LayoutConfig) *ConfigInfo {
	info := &ConfigInfo{
		Filename:     filename,
		ConfigID:     configID,
		Name:         cfg.Name,
		Description:  cfg.Description,
		PoolCapacity: cfg.Pool.Capacity,
		CatalogSize:  len(cfg.Catalog),
	}
	for _, g := range cfg.Grids {
		w, h := g.Size()
		info.Grids = append(info.Grids, GridInfo{ID: g.ID, SizeX: w, SizeY: h})
	}
	return info
}
