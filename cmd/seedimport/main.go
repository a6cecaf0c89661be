// Package main provides the seedimport CLI.
//
// seedimport turns the supplement, medication and interaction CSV seed files
// into batched INSERT artifacts, applies them to the database one at a time and
// writes a timestamped import report.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackcheck/seedimport/internal/config"
)

// Build-time version information, set with -ldflags.
var (
	Version   = "1.0.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const name = "seedimport"

// errImportFailed signals that at least one artifact failed; details are already in the report.
var errImportFailed = errors.New("one or more batches failed")

// app carries what every command needs.
type app struct {
	logger *slog.Logger
	stdout io.Writer
	stdin  io.Reader
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   name,
		Short: "Generate and import supplement/medication interaction seed data",
		Long: `seedimport - batch generator and sequential importer for reference seed data.

Commands:
  generate  Read the seed CSVs and write batched INSERT artifacts
  import    Execute artifacts in order, verify tables, write the report
  run       generate followed by import, in one report
  migrate   Manage the seed schema (up, down, status, version, drop)
  version   Show version information

Configuration comes from the environment (SEED_*, DATABASE_URL, LOG_LEVEL);
flags override it.

Examples:
  seedimport generate --batch-size 500
  seedimport import --backend rest
  seedimport import 03_interactions_batch_02.sql   # retry one batch
  seedimport migrate up`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(a.stdout)
	root.SetIn(a.stdin)

	root.AddCommand(
		newGenerateCmd(a),
		newImportCmd(a),
		newRunCmd(a),
		newMigrateCmd(a),
		newVersionCmd(a),
	)

	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(a.stdout, "%s v%s\n", name, Version)
			_, _ = fmt.Fprintf(a.stdout, "Git Commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(a.stdout, "Build Time: %s\n", BuildTime)
		},
	}
}

func main() {
	a := &app{
		logger: config.NewLogger(os.Stderr),
		stdout: os.Stdout,
		stdin:  os.Stdin,
	}

	if err := newRootCmd(a).Execute(); err != nil {
		if !errors.Is(err, errImportFailed) {
			a.logger.Error("Command failed", slog.String("error", err.Error()))
		}

		os.Exit(1)
	}
}
