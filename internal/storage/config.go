package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/stackcheck/seedimport/internal/config"
)

const (
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

var (
	// ErrDatabaseURLEmpty is returned when the database url is an empty string.
	ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")
)

// Config holds PostgreSQL connection configuration for the direct import backend.
// Imports run one statement at a time, so the pool stays small.
type Config struct {
	databaseURL     string
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of connections
	ConnMaxIdleTime time.Duration // Maximum idle time for connections
}

// LoadConfig loads PostgreSQL configuration from environment variables with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		databaseURL:     config.GetEnvStr("DATABASE_URL", ""), // DatabaseURL is private for obvious reasons.
		MaxOpenConns:    config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
	}
}

// WithDatabaseURL returns a copy of the config pointing at url.
// Used when the URL comes from a command-line flag instead of the environment.
func (c *Config) WithDatabaseURL(url string) *Config {
	cp := *c
	cp.databaseURL = url

	return &cp
}

// DatabaseURL returns the raw connection string. Never log it; use MaskDatabaseURL.
func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

// Validate checks if the PostgreSQL configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	return nil
}

// MaskDatabaseURL returns a masked databaseURL safe for logging.
func (c *Config) MaskDatabaseURL() string {
	return MaskURL(c.databaseURL)
}

// MaskURL replaces the password portion of a connection URL with "***".
func MaskURL(raw string) string {
	if raw == "" {
		return ""
	}

	schemeEnd := strings.Index(raw, "://")
	if schemeEnd == -1 {
		return raw
	}

	// The last @ separates userinfo from host; passwords may contain '@'.
	afterScheme := raw[schemeEnd+3:]

	lastAt := strings.LastIndex(afterScheme, "@")
	if lastAt == -1 {
		return raw
	}

	username, password, found := strings.Cut(afterScheme[:lastAt], ":")
	if !found || password == "" {
		return raw
	}

	return raw[:schemeEnd] + "://" + username + ":***" + afterScheme[lastAt:]
}
