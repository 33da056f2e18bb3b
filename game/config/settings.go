package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SettingsFileName is the base name of the optional server settings file.
const SettingsFileName = "placement-grid"

// EnvPrefix prefixes every environment override, e.g. PGRID_PORT or PGRID_CLEANUP_MAX_AGE.
const EnvPrefix = "PGRID"

// Store backends understood by the server
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Settings holds the server configuration
type Settings struct {
	Port          int             `mapstructure:"port"`
	Host          string          `mapstructure:"host"`
	ConfigDir     string          `mapstructure:"config_dir"`
	SessionsDir   string          `mapstructure:"sessions_dir"`
	Store         string          `mapstructure:"store"`
	DBPath        string          `mapstructure:"db_path"`
	LogLevel      string          `mapstructure:"log_level"`
	DefaultConfig string          `mapstructure:"default_config"`
	APIURL        string          `mapstructure:"api_url"`
	Ngrok         NgrokSettings   `mapstructure:"ngrok"`
	Cleanup       CleanupSettings `mapstructure:"cleanup"`
}

// NgrokSettings configures the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"authtoken"`
	Domain    string `mapstructure:"domain"`
}

// CleanupSettings controls expiry of idle sessions
type CleanupSettings struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// Addr is the listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NewViper returns a viper instance carrying the server defaults and the
// PGRID_ environment binding.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("host", "localhost")
	v.SetDefault("config_dir", "configs")
	v.SetDefault("sessions_dir", "sessions")
	v.SetDefault("store", StoreFile)
	v.SetDefault("db_path", "sessions.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("default_config", DefaultConfigName)
	v.SetDefault("api_url", "http://localhost:8080")

	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.authtoken", "")
	v.SetDefault("ngrok.domain", "")

	v.SetDefault("cleanup.interval", time.Hour)
	v.SetDefault("cleanup.max_age", 24*time.Hour)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadSettings reads placement-grid.yaml from dirs (first match wins) on top
// of the defaults. A missing file is not an error.
func LoadSettings(v *viper.Viper, dirs ...string) (*Settings, error) {
	if v == nil {
		v = NewViper()
	}
	v.SetConfigName(SettingsFileName)
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	if len(dirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading settings file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidSettings, s.Port)
	}
	switch s.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store %q (want file, sqlite or memory)", ErrInvalidSettings, s.Store)
	}
	if s.Cleanup.Interval <= 0 {
		return fmt.Errorf("%w: cleanup.interval must be positive", ErrInvalidSettings)
	}
	return nil
}
