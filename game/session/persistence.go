package session

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/placement-grid/game/engine"
	"github.com/wricardo/placement-grid/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the stored form of a session
type PersistedSessionData struct {
	ID             string                `json:"id"`
	ConfigName     string                `json:"config_name"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	Snapshot       *engine.BoardSnapshot `json:"snapshot"`
}

func newPersistedData(session *service.Session) PersistedSessionData {
	snap := session.Board.Snapshot()
	return PersistedSessionData{
		ID:             session.ID,
		ConfigName:     session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Snapshot:       &snap,
	}
}

// restoreSession rebuilds a board from its layout and replays the snapshot
// onto it.
func restoreSession(data PersistedSessionData, configs service.ConfigManager, log zerolog.Logger) (*service.Session, error) {
	cfg, err := configs.LoadConfig(data.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
	}

	board, err := engine.NewBoardFromConfig(cfg, engine.WithLogger(log.With().Str("session", data.ID).Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	if data.Snapshot != nil {
		if err := engine.RestoreBoard(board, *data.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to restore board: %w", err)
		}
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Board:          board,
		Config:         cfg,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

func sortSessions(sessions []*service.Session) {
	slices.SortFunc(sessions, func(a, b *service.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
