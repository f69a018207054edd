// Package config loads the server configuration. Values are layered:
// defaults, then an optional YAML file, then a .env file, then environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Bookmarks BookmarksConfig `yaml:"bookmarks"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Hostname is the public hostname where this service is reachable.
	Hostname string `yaml:"hostname"`

	// Port is the HTTP server port.
	Port int `yaml:"port"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig selects the storage driver.
type DatabaseConfig struct {
	// Driver is one of "sqlite", "postgres" (lib/pq) or "pgx".
	Driver string `yaml:"driver"`

	// URL is the DSN. For sqlite it may be a plain file path.
	URL string `yaml:"url"`
}

// AuthConfig controls how the acting user is identified. Tokens are issued
// elsewhere; this service only verifies them.
type AuthConfig struct {
	// JWTSecret is the HS256 key for bearer tokens. Empty disables them.
	JWTSecret string `yaml:"jwt_secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer"`

	// TrustUserHeader accepts X-User-ID from an authenticating gateway.
	TrustUserHeader bool `yaml:"trust_user_header"`
}

// IngestConfig configures the relay subscriber.
type IngestConfig struct {
	// RelayURL is the websocket endpoint. Empty disables ingest.
	RelayURL string `yaml:"relay_url"`

	// CursorInterval is how often the relay position is persisted.
	CursorInterval time.Duration `yaml:"cursor_interval"`
}

// BookmarksConfig configures the dangling-bookmark prune job.
type BookmarksConfig struct {
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Hostname:     "localhost",
			Port:         3000,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			URL:    "murmur.db",
		},
		Ingest: IngestConfig{
			CursorInterval: 5 * time.Second,
		},
		Bookmarks: BookmarksConfig{
			PruneInterval: time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or pgx, got %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Ingest.RelayURL != "" && c.Ingest.CursorInterval <= 0 {
		return fmt.Errorf("ingest.cursor_interval must be positive")
	}
	if c.Bookmarks.PruneInterval <= 0 {
		return fmt.Errorf("bookmarks.prune_interval must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Load builds the configuration. path may be empty to skip the YAML file.
// A .env file in the working directory is loaded if present; variables that
// are already set in the environment take precedence over it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("MURMUR_HOSTNAME"); v != "" {
		c.Server.Hostname = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
		// A postgres URL without an explicit driver means lib/pq.
		if os.Getenv("MURMUR_DB_DRIVER") == "" && isPostgresURL(v) {
			c.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("MURMUR_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("MURMUR_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("MURMUR_TRUST_USER_HEADER"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MURMUR_TRUST_USER_HEADER: %w", err)
		}
		c.Auth.TrustUserHeader = trust
	}
	if v := os.Getenv("MURMUR_RELAY_URL"); v != "" {
		c.Ingest.RelayURL = v
	}
	if v := os.Getenv("MURMUR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func isPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
