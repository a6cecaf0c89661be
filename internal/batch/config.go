package batch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stackcheck/seedimport/internal/config"
	"github.com/stackcheck/seedimport/internal/seed"
)

const (
	defaultDataDir          = "supabase/seed"
	defaultOutputDir        = "scripts/sql-mapped"
	defaultSupplementsFile  = "supplements.csv"
	defaultMedicationsFile  = "medications.csv"
	defaultInteractionsFile = "interactions.csv"
)

// Config holds the file locations and batch size for generation.
type Config struct {
	DataDir          string
	SupplementsFile  string
	MedicationsFile  string
	InteractionsFile string
	OutputDir        string
	BatchSize        int
}

// LoadConfig loads generation settings from environment variables with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		DataDir:          config.GetEnvStr("SEED_DATA_DIR", defaultDataDir),
		SupplementsFile:  config.GetEnvStr("SEED_SUPPLEMENTS_FILE", defaultSupplementsFile),
		MedicationsFile:  config.GetEnvStr("SEED_MEDICATIONS_FILE", defaultMedicationsFile),
		InteractionsFile: config.GetEnvStr("SEED_INTERACTIONS_FILE", defaultInteractionsFile),
		OutputDir:        config.GetEnvStr("SEED_OUTPUT_DIR", defaultOutputDir),
		BatchSize:        config.GetEnvInt("SEED_BATCH_SIZE", DefaultBatchSize),
	}
}

// Validate checks the generation settings.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.BatchSize)
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	return nil
}

// Paths resolves the source file names against DataDir. Absolute names are used as given.
func (c *Config) Paths() seed.Paths {
	return seed.Paths{
		Supplements:  c.resolve(c.SupplementsFile),
		Medications:  c.resolve(c.MedicationsFile),
		Interactions: c.resolve(c.InteractionsFile),
	}
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(c.DataDir, name)
}
