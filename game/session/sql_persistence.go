package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wricardo/placement-grid/game/engine"
	"github.com/wricardo/placement-grid/game/service"
)

// sessionRecord is the table row of a persisted session.
type sessionRecord struct {
	ID             string `gorm:"primaryKey;size:64"`
	ConfigName     string `gorm:"size:128"`
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Snapshot       datatypes.JSON
}

func (sessionRecord) TableName() string { return "sessions" }

// SQLPersistence implements SessionPersistence on SQLite through gorm
type SQLPersistence struct {
	db            *gorm.DB
	configManager service.ConfigManager
	log           zerolog.Logger
}

// NewSQLPersistence opens (or creates) the SQLite database at path. An empty
// path uses a shared in-memory database.
func NewSQLPersistence(path string, configManager service.ConfigManager) (*SQLPersistence, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session table: %w", err)
	}

	return &SQLPersistence{db: db, configManager: configManager, log: zerolog.Nop()}, nil
}

// SetLogger sets the logger handed to restored boards.
func (sp *SQLPersistence) SetLogger(log zerolog.Logger) {
	sp.log = log
}

// Save upserts a session row
func (sp *SQLPersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data := newPersistedData(session)
	snap, err := json.Marshal(data.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	rec := sessionRecord{
		ID:             strings.ToLower(data.ID),
		ConfigName:     data.ConfigName,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
		Snapshot:       datatypes.JSON(snap),
	}
	if err := sp.db.Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads a session row and rebuilds its board
func (sp *SQLPersistence) Load(id string) (*service.Session, error) {
	var rec sessionRecord
	err := sp.db.First(&rec, "id = ?", strings.ToLower(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var snap engine.BoardSnapshot
	if err := json.Unmarshal(rec.Snapshot, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return restoreSession(PersistedSessionData{
		ID:             rec.ID,
		ConfigName:     rec.ConfigName,
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
		Snapshot:       &snap,
	}, sp.configManager, sp.log)
}

// Delete removes a session row
func (sp *SQLPersistence) Delete(id string) error {
	res := sp.db.Delete(&sessionRecord{}, "id = ?", strings.ToLower(id))
	if res.Error != nil {
		return fmt.Errorf("failed to delete session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs
func (sp *SQLPersistence) ListAll() ([]string, error) {
	var ids []string
	if err := sp.db.Model(&sessionRecord{}).Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Exists checks if a session row exists
func (sp *SQLPersistence) Exists(id string) bool {
	var n int64
	if err := sp.db.Model(&sessionRecord{}).Where("id = ?", strings.ToLower(id)).Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}

// Close releases the database handle.
func (sp *SQLPersistence) Close() error {
	sqlDB, err := sp.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
