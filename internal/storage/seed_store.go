package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// StatementTimeout bounds a single artifact execution.
const StatementTimeout = 60 * time.Second

const queryTimeout = 30 * time.Second

var (
	// ErrStatementFailed is returned when PostgreSQL rejects an artifact.
	ErrStatementFailed = errors.New("statement execution failed")

	// ErrConnectionLost is returned when the connection drops mid-import.
	ErrConnectionLost = errors.New("database connection lost")
)

// SeedStore executes seed artifacts and verification queries directly against PostgreSQL.
// It is the alternative to the REST exec endpoint when the importer has database access.
type SeedStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewSeedStore returns a store bound to conn. A nil logger discards output.
func NewSeedStore(conn *Connection, logger *slog.Logger) (*SeedStore, error) {
	if conn == nil || conn.DB == nil {
		return nil, ErrNoDatabaseConnection
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &SeedStore{conn: conn, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (s *SeedStore) Close() error {
	return s.conn.Close()
}

// Execute runs one artifact's SQL text. Multi-statement artifacts are sent as a
// single simple-query so they commit or fail together.
func (s *SeedStore) Execute(ctx context.Context, statement string) error {
	ctx, cancel := context.WithTimeout(ctx, StatementTimeout)
	defer cancel()

	if _, err := s.conn.ExecContext(ctx, statement); err != nil {
		if isDatabaseConnectionError(err) {
			return fmt.Errorf("%w: %w", ErrConnectionLost, err)
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			s.logger.Debug("Statement rejected",
				slog.String("code", string(pqErr.Code)),
				slog.String("detail", pqErr.Detail))

			return fmt.Errorf("%w: %s (SQLSTATE %s)", ErrStatementFailed, pqErr.Message, pqErr.Code)
		}

		return fmt.Errorf("%w: %w", ErrStatementFailed, err)
	}

	return nil
}

// CountRows returns the exact row count of table.
func (s *SeedStore) CountRows(ctx context.Context, table string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int64

	query := "SELECT count(*) FROM " + pq.QuoteIdentifier(table) //nolint:gosec // identifier is quoted

	if err := s.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}

	return count, nil
}

// SampleRows returns up to limit rows of table, each encoded as a JSON object.
func (s *SeedStore) SampleRows(ctx context.Context, table string, limit int) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf( //nolint:gosec // identifier is quoted
		"SELECT row_to_json(t)::text FROM (SELECT * FROM %s LIMIT $1) t",
		pq.QuoteIdentifier(table),
	)

	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s: %w", table, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	samples := make([]json.RawMessage, 0, limit)

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s sample: %w", table, err)
		}

		samples = append(samples, json.RawMessage(raw))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s samples: %w", table, err)
	}

	return samples, nil
}
