package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type (
	// Status describes the schema version of a database relative to the embedded migrations.
	Status struct {
		Version   uint
		Dirty     bool
		Available int // highest embedded version
	}

	// Runner applies the embedded migrations with golang-migrate.
	Runner struct {
		config  *Config
		source  *Source
		migrate *migrate.Migrate
		db      *sql.DB
		logger  *slog.Logger
	}

	// migrateLogger adapts golang-migrate's logger to slog.
	migrateLogger struct {
		logger *slog.Logger
	}
)

var _ migrate.Logger = (*migrateLogger)(nil)

// Pending returns how many embedded migrations are not yet applied.
// Negative means the database is ahead of this binary.
func (s Status) Pending() int {
	return s.Available - int(s.Version) //nolint:gosec // migration versions are small
}

// NewRunner validates the embedded migrations and connects to the database.
func NewRunner(cfg *Config, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Info("Initializing migration runner", slog.String("config", cfg.String()))

	source := NewSource(nil)
	if err := source.Validate(); err != nil {
		return nil, fmt.Errorf("embedded migration validation failed: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationTable})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(source.FS(), ".")
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create embedded migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{logger: logger}

	return &Runner{
		config:  cfg,
		source:  source,
		migrate: m,
		db:      db,
		logger:  logger,
	}, nil
}

// Up applies all pending migrations. Returns true if anything was applied.
func (r *Runner) Up() (bool, error) {
	if err := r.source.Validate(); err != nil {
		return false, fmt.Errorf("pre-operation validation failed: %w", err)
	}

	err := r.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("No new migrations to apply")

		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("migration up failed: %w", err)
	}

	r.logger.Info("All migrations applied")

	return true, nil
}

// Down rolls back the most recent migration. Returns true if anything was rolled back.
func (r *Runner) Down() (bool, error) {
	if err := r.source.Validate(); err != nil {
		return false, fmt.Errorf("pre-operation validation failed: %w", err)
	}

	err := r.migrate.Steps(-1)
	if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("No migrations to roll back")

		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("migration down failed: %w", err)
	}

	r.logger.Info("Last migration rolled back")

	return true, nil
}

// Status reports the current schema version.
func (r *Runner) Status() (Status, error) {
	st := Status{Available: r.source.MaxVersion()}

	ver, dirty, err := r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return st, nil
	}

	if err != nil {
		return st, fmt.Errorf("failed to get migration version: %w", err)
	}

	st.Version = ver
	st.Dirty = dirty

	return st, nil
}

// Drop removes every table in the database.
func (r *Runner) Drop() error {
	r.logger.Warn("Dropping all tables")

	if err := r.migrate.Drop(); err != nil {
		return fmt.Errorf("drop operation failed: %w", err)
	}

	return nil
}

// Close releases the migrate instance and the database connection.
func (r *Runner) Close() error {
	var errs []error

	if r.migrate != nil {
		sourceErr, dbErr := r.migrate.Close()
		if sourceErr != nil {
			errs = append(errs, fmt.Errorf("source close error: %w", sourceErr))
		}

		if dbErr != nil {
			errs = append(errs, fmt.Errorf("database close error: %w", dbErr))
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, fmt.Errorf("database connection close error: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf("[MIGRATE] "+format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
