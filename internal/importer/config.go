package importer

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/stackcheck/seedimport/internal/config"
)

// Backend names accepted by SEED_BACKEND.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

const defaultReportPath = "artifacts/seed-import/seed_import_report.txt"

var (
	// ErrUnknownBackend is returned for a SEED_BACKEND value other than rest or postgres.
	ErrUnknownBackend = errors.New("unknown import backend")
)

// Config holds import run settings.
type Config struct {
	ArtifactDir string
	ReportPath  string
	Backend     string
}

// LoadConfig loads import settings from environment variables with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		ArtifactDir: config.GetEnvStr("SEED_OUTPUT_DIR", "scripts/sql-mapped"),
		ReportPath:  config.GetEnvStr("SEED_REPORT_PATH", defaultReportPath),
		Backend:     config.GetEnvStr("SEED_BACKEND", BackendREST),
	}
}

// Validate checks the import settings.
func (c *Config) Validate() error {
	if c.ReportPath == "" {
		return ErrReportPathEmpty
	}

	if c.Backend != BackendREST && c.Backend != BackendPostgres {
		return fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownBackend, c.Backend, BackendREST, BackendPostgres)
	}

	return nil
}

// Source returns the artifact source for ArtifactDir.
func (c *Config) Source() DirSource {
	return DirSource(filepath.Clean(c.ArtifactDir))
}
