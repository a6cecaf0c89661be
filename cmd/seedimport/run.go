package main

import (
	"github.com/spf13/cobra"

	"github.com/stackcheck/seedimport/internal/batch"
	"github.com/stackcheck/seedimport/internal/transcript"
)

func newRunCmd(a *app) *cobra.Command {
	gen := batch.LoadConfig()
	opts := loadImportOptions()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate artifacts and import them in one run",
		Long: `Runs generate and then import with a single report. If generation fails
the report is still written and nothing is imported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			t := transcript.New(a.logger)
			defer t.FlushTo(opts.run.ReportPath, &err)

			manifest, err := generate(gen, t)
			if err != nil {
				return err
			}

			opts.run.ArtifactDir = gen.OutputDir

			return runImport(cmd.Context(), a, opts, manifest.Files(), t)
		},
	}

	addGenerateFlags(cmd, gen)
	addImportFlags(cmd, opts, false)

	return cmd
}
