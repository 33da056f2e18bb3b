package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings(NewViper(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, s.Port)
	assert.Equal(t, "localhost", s.Host)
	assert.Equal(t, "localhost:8080", s.Addr())
	assert.Equal(t, "configs", s.ConfigDir)
	assert.Equal(t, "sessions", s.SessionsDir)
	assert.Equal(t, StoreFile, s.Store)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, DefaultConfigName, s.DefaultConfig)
	assert.False(t, s.Ngrok.Enabled)
	assert.Equal(t, time.Hour, s.Cleanup.Interval)
	assert.Equal(t, 24*time.Hour, s.Cleanup.MaxAge)
}

func TestLoadSettings_File(t *testing.T) {
	dir := t.TempDir()
	doc := `
port: 9090
store: sqlite
db_path: /tmp/grid.db
cleanup:
  interval: 10m
  max_age: 2h
ngrok:
  enabled: true
  domain: grid.example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName+".yaml"), []byte(doc), 0644))

	s, err := LoadSettings(NewViper(), dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, s.Port)
	assert.Equal(t, StoreSQLite, s.Store)
	assert.Equal(t, "/tmp/grid.db", s.DBPath)
	assert.Equal(t, 10*time.Minute, s.Cleanup.Interval)
	assert.Equal(t, 2*time.Hour, s.Cleanup.MaxAge)
	assert.True(t, s.Ngrok.Enabled)
	assert.Equal(t, "grid.example.com", s.Ngrok.Domain)
}

func TestLoadSettings_Environment(t *testing.T) {
	t.Setenv("PGRID_PORT", "7070")
	t.Setenv("PGRID_CLEANUP_MAX_AGE", "30m")
	t.Setenv("PGRID_STORE", "memory")

	s, err := LoadSettings(NewViper())
	require.NoError(t, err)
	assert.Equal(t, 7070, s.Port)
	assert.Equal(t, 30*time.Minute, s.Cleanup.MaxAge)
	assert.Equal(t, StoreMemory, s.Store)
}

func TestLoadSettings_Invalid(t *testing.T) {
	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName+".yaml"), []byte("port: [1"), 0644))
		_, err := LoadSettings(NewViper(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading settings file")
	})

	t.Run("unknown store", func(t *testing.T) {
		v := NewViper()
		v.Set("store", "redis")
		_, err := LoadSettings(v)
		assert.ErrorIs(t, err, ErrInvalidSettings)
	})

	t.Run("port out of range", func(t *testing.T) {
		v := NewViper()
		v.Set("port", 70000)
		_, err := LoadSettings(v)
		assert.ErrorIs(t, err, ErrInvalidSettings)
	})
}
