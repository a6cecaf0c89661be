package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stackcheck/seedimport/internal/batch"
	"github.com/stackcheck/seedimport/internal/importer"
	"github.com/stackcheck/seedimport/internal/remote"
	"github.com/stackcheck/seedimport/internal/storage"
	"github.com/stackcheck/seedimport/internal/transcript"
)

// importOptions gathers the configuration of every import backend.
type importOptions struct {
	run         *importer.Config
	remote      *remote.Config
	storage     *storage.Config
	databaseURL string
}

func loadImportOptions() *importOptions {
	return &importOptions{
		run:     importer.LoadConfig(),
		remote:  remote.LoadConfig(),
		storage: storage.LoadConfig(),
	}
}

func addImportFlags(cmd *cobra.Command, opts *importOptions, withArtifactDir bool) {
	flags := cmd.Flags()

	if withArtifactDir {
		flags.StringVar(&opts.run.ArtifactDir, "artifact-dir", opts.run.ArtifactDir, "directory holding SQL artifacts")
	}

	flags.StringVar(&opts.run.ReportPath, "report", opts.run.ReportPath, "report file, overwritten on each run")
	flags.StringVar(&opts.run.Backend, "backend", opts.run.Backend, "import backend: rest or postgres")
	flags.StringVar(&opts.remote.BaseURL, "remote-url", opts.remote.BaseURL, "REST endpoint base URL (rest backend)")
	flags.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL URL (postgres backend, overrides DATABASE_URL)")
}

func newImportCmd(a *app) *cobra.Command {
	opts := loadImportOptions()

	cmd := &cobra.Command{
		Use:   "import [artifact...]",
		Short: "Execute SQL artifacts in order and write the import report",
		Long: `Executes each artifact one at a time, pausing briefly between them.
A failed artifact is recorded and the run continues. After the last artifact
the row count and a few sample rows of every table are recorded.

Artifacts are taken from the manifest in --artifact-dir, or from the NN_*.sql
files there in name order. Naming artifacts on the command line runs only those.

Exits non-zero if any artifact failed.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			t := transcript.New(a.logger)
			defer t.FlushTo(opts.run.ReportPath, &err)

			ids := args
			if len(ids) == 0 {
				ids, err = batch.ArtifactList(opts.run.ArtifactDir)
				if err != nil {
					t.Errorf("ERROR: %s", err)

					return fmt.Errorf("failed to list artifacts in %s: %w", opts.run.ArtifactDir, err)
				}
			}

			return runImport(cmd.Context(), a, opts, ids, t)
		},
	}

	addImportFlags(cmd, opts, true)

	return cmd
}

// runImport executes ids with the configured backend and prints the outcome.
func runImport(
	ctx context.Context,
	a *app,
	opts *importOptions,
	ids []string,
	t *transcript.Transcript,
) error {
	if err := opts.run.Validate(); err != nil {
		return err
	}

	a.logger.Debug("Artifact list resolved", slog.Int("count", len(ids)), slog.Any("artifacts", ids))

	backend, closer, err := newBackend(opts, a.logger)
	if err != nil {
		t.Errorf("ERROR: %s", err)

		return err
	}

	defer func() {
		_ = closer.Close()
	}()

	runner, err := importer.NewRunner(backend, backend, opts.run.Source(), t, opts.run.ReportPath)
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx, ids)
	if err != nil {
		return err
	}

	printReport(a.stdout, report, opts.run.ReportPath)

	if !report.OK() {
		return errImportFailed
	}

	return nil
}

// newBackend builds the executor/verifier for the selected backend.
func newBackend(opts *importOptions, logger *slog.Logger) (importer.Backend, io.Closer, error) {
	switch opts.run.Backend {
	case importer.BackendPostgres:
		cfg := opts.storage
		if opts.databaseURL != "" {
			cfg = cfg.WithDatabaseURL(opts.databaseURL)
		}

		logger.Info("Using postgres backend", slog.String("database_url", cfg.MaskDatabaseURL()))

		conn, err := storage.NewConnection(cfg)
		if err != nil {
			return nil, nil, err
		}

		store, err := storage.NewSeedStore(conn, logger)
		if err != nil {
			_ = conn.Close()

			return nil, nil, err
		}

		return store, store, nil
	default:
		logger.Info("Using rest backend",
			slog.String("remote_url", opts.remote.BaseURL),
			slog.String("service_key", opts.remote.MaskServiceKey()))

		client, err := remote.NewClient(opts.remote, remote.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}

		return client, closerFunc(func() error { return nil }), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func printReport(w io.Writer, report *importer.Report, reportPath string) {
	_, _ = fmt.Fprintf(w, "Run %s: %d/%d batches succeeded in %.2fs\n",
		report.RunID, report.Succeeded(), len(report.Results), report.Duration().Seconds())

	for _, res := range report.Failed() {
		_, _ = fmt.Fprintf(w, "  FAILED %s: %s\n", res.ID, res.Err)
	}

	for _, c := range report.Counts {
		_, _ = fmt.Fprintf(w, "  %-14s %s\n", c.Table, c.Value())
	}

	_, _ = fmt.Fprintf(w, "Report: %s\n", reportPath)
}
