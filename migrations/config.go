package migrations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stackcheck/seedimport/internal/config"
	"github.com/stackcheck/seedimport/internal/storage"
)

const defaultMigrationTable = "schema_migrations"

var (
	// ErrMigrationTableEmpty is returned when the tracking table name is blank.
	ErrMigrationTableEmpty = errors.New("migration table cannot be empty")
)

// Config holds migration settings.
type Config struct {
	DatabaseURL    string
	MigrationTable string
}

// LoadConfig loads migration settings from environment variables.
func LoadConfig() *Config {
	return &Config{
		DatabaseURL:    config.GetEnvStr("DATABASE_URL", ""),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", defaultMigrationTable),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return storage.ErrDatabaseURLEmpty
	}

	if strings.TrimSpace(c.MigrationTable) == "" {
		return ErrMigrationTableEmpty
	}

	return nil
}

// String is safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DatabaseURL: %s, MigrationTable: %s}",
		storage.MaskURL(c.DatabaseURL), c.MigrationTable)
}
