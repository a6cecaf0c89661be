package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackcheck/seedimport/internal/batch"
	"github.com/stackcheck/seedimport/internal/seed"
	"github.com/stackcheck/seedimport/internal/transcript"
)

func newGenerateCmd(a *app) *cobra.Command {
	cfg := batch.LoadConfig()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write batched INSERT artifacts from the seed CSVs",
		Long: `Reads supplements, medications and interactions CSVs and writes:

  01_supplements.sql              all supplements, upserted by id
  02_medications.sql              all medications, upserted by id
  03_interactions_batch_NN.sql    interactions, at most --batch-size rows each
  manifest.yaml                   the ordered artifact list used by import

A missing or empty id/name field aborts generation with the file and line.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := generate(cfg, transcript.New(a.logger))

			return err
		},
	}

	addGenerateFlags(cmd, cfg)

	return cmd
}

func addGenerateFlags(cmd *cobra.Command, cfg *batch.Config) {
	flags := cmd.Flags()
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory containing the seed CSVs")
	flags.StringVar(&cfg.SupplementsFile, "supplements", cfg.SupplementsFile, "supplements CSV (relative to --data-dir)")
	flags.StringVar(&cfg.MedicationsFile, "medications", cfg.MedicationsFile, "medications CSV (relative to --data-dir)")
	flags.StringVar(&cfg.InteractionsFile, "interactions", cfg.InteractionsFile,
		"interactions CSV (relative to --data-dir)")
	flags.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "directory for SQL artifacts")
	flags.IntVarP(&cfg.BatchSize, "batch-size", "b", cfg.BatchSize, "maximum interaction rows per artifact")
}

// generate reads the dataset and writes artifacts plus manifest to cfg.OutputDir.
func generate(cfg *batch.Config, t *transcript.Transcript) (*batch.Manifest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gen, err := batch.NewGenerator(cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	paths := cfg.Paths()
	t.Logf("Reading seed data from %s", cfg.DataDir)

	ds, err := seed.Load(paths)
	if err != nil {
		t.Errorf("ERROR: %s", err)

		return nil, fmt.Errorf("failed to load seed data: %w", err)
	}

	t.Logf("Loaded %d supplements, %d medications, %d interactions",
		len(ds.Supplements), len(ds.Medications), len(ds.Interactions))

	batches, err := gen.Generate(ds)
	if err != nil {
		t.Errorf("ERROR: %s", err)

		return nil, fmt.Errorf("failed to generate batches: %w", err)
	}

	manifest, err := batch.WriteArtifacts(cfg.OutputDir, batches, gen.BatchSize())
	if err != nil {
		t.Errorf("ERROR: %s", err)

		return nil, err
	}

	for _, entry := range manifest.Artifacts {
		t.Logf("Wrote %s (%d rows)", entry.File, entry.Rows)
	}

	t.Logf("Generated %d artifacts in %s", len(manifest.Artifacts), cfg.OutputDir)

	return manifest, nil
}
