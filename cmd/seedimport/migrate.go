package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackcheck/seedimport/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	cfg := migrations.LoadConfig()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the seed schema",
		Long: `Applies the embedded schema migrations (seed tables and the exec_sql
function used by the rest backend) with golang-migrate.

Requires DATABASE_URL or --database-url.`,
	}

	cmd.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL URL")
	cmd.PersistentFlags().StringVar(&cfg.MigrationTable, "migration-table", cfg.MigrationTable,
		"migration tracking table")

	// withRunner opens a runner for the duration of fn.
	withRunner := func(fn func(r *migrations.Runner) error) error {
		runner, err := migrations.NewRunner(cfg, a.logger)
		if err != nil {
			return err
		}

		defer func() {
			_ = runner.Close()
		}()

		return fn(runner)
	}

	var assumeYes bool

	drop := &cobra.Command{
		Use:   "drop",
		Short: "Drop all tables (asks for confirmation)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !assumeYes && !confirm(cmd, "WARNING: This will drop all tables. Are you sure? (y/N): ") {
				_, _ = fmt.Fprintln(a.stdout, "Operation cancelled.")

				return nil
			}

			return withRunner(func(r *migrations.Runner) error {
				return r.Drop()
			})
		},
	}
	drop.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withRunner(func(r *migrations.Runner) error {
					applied, err := r.Up()
					if err != nil {
						return err
					}

					if applied {
						_, _ = fmt.Fprintln(a.stdout, "All migrations applied.")
					} else {
						_, _ = fmt.Fprintln(a.stdout, "No new migrations to apply.")
					}

					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withRunner(func(r *migrations.Runner) error {
					rolledBack, err := r.Down()
					if err != nil {
						return err
					}

					if rolledBack {
						_, _ = fmt.Fprintln(a.stdout, "Last migration rolled back.")
					} else {
						_, _ = fmt.Fprintln(a.stdout, "No migrations to roll back.")
					}

					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show schema version and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withRunner(func(r *migrations.Runner) error {
					st, err := r.Status()
					if err != nil {
						return err
					}

					printStatus(a, st)

					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return withRunner(func(r *migrations.Runner) error {
					st, err := r.Status()
					if err != nil {
						return err
					}

					dirty := ""
					if st.Dirty {
						dirty = " (dirty)"
					}

					_, _ = fmt.Fprintf(a.stdout, "%03d%s\n", st.Version, dirty)

					return nil
				})
			},
		},
		drop,
	)

	return cmd
}

func printStatus(a *app, st migrations.Status) {
	state := "clean"
	if st.Dirty {
		state = "dirty (needs manual intervention)"
	}

	_, _ = fmt.Fprintf(a.stdout, "Database schema: v%03d (%s)\n", st.Version, state)
	_, _ = fmt.Fprintf(a.stdout, "Embedded schema: v%03d\n", st.Available)

	switch pending := st.Pending(); {
	case pending == 0:
		_, _ = fmt.Fprintln(a.stdout, "Status: up to date")
	case pending > 0:
		_, _ = fmt.Fprintf(a.stdout, "Status: %d migration(s) pending, run 'seedimport migrate up'\n", pending)
	default:
		_, _ = fmt.Fprintln(a.stdout, "Status: database schema is newer than this binary")
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)

	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')

	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
