package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/secmon-lab/grcbook/pkg/usecase/converter"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/secmon-lab/grcbook/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

var (
	ErrNoInputFile    = goerr.New("no input file given")
	ErrImportHasError = goerr.New("import finished with errors")
)

func cmdImport() *cli.Command {
	var appCfg appConfig
	var dryRun bool
	var commit string
	var actor string
	var asJSON bool
	var strict bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Validate the file without writing anything",
			Destination: &dryRun,
		},
		&cli.StringFlag{
			Name:        "commit",
			Usage:       "Commit policy: batch (all rows at the end) or row (each row immediately)",
			Value:       "batch",
			Sources:     cli.EnvVars("GRCBOOK_IMPORT_COMMIT"),
			Destination: &commit,
		},
		&cli.StringFlag{
			Name:        "actor",
			Usage:       "E-mail of the person running the import",
			Sources:     cli.EnvVars("GRCBOOK_ACTOR"),
			Destination: &actor,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print block results as JSON",
			Destination: &asJSON,
		},
		&cli.BoolFlag{
			Name:        "strict",
			Usage:       "Exit with an error when any row or block has errors",
			Destination: &strict,
		},
	}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Import CSV or XLSX files",
		ArgsUsage: "<file> [file...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			files := c.Args().Slice()
			if len(files) == 0 {
				return goerr.Wrap(ErrNoInputFile, "import needs at least one file")
			}

			policy, err := converter.ParseCommitPolicy(commit)
			if err != nil {
				return err
			}
			opts := usecase.ImportOptions{
				DryRun: dryRun,
				Commit: policy,
				Actor:  actor,
			}

			a, err := appCfg.build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			w := c.Root().Writer
			all := make(map[string][]*model.BlockResult, len(files))
			hasErrors := false
			for _, file := range files {
				results, err := importFile(ctx, a.uc, file, opts)
				if err != nil {
					return err
				}
				all[file] = results
				if model.SumBlocks(results).Errors > 0 {
					hasErrors = true
				}
				if !asJSON {
					printImportSummary(w, file, results, dryRun)
				}
			}

			if asJSON {
				if err := writeJSON(w, all); err != nil {
					return err
				}
			}

			if strict && hasErrors {
				return goerr.Wrap(ErrImportHasError, "some rows were rejected")
			}
			return nil
		},
	}
}

func importFile(ctx context.Context, uc *usecase.UseCases, path string, opts usecase.ImportOptions) ([]*model.BlockResult, error) {
	// #nosec G304 - path is provided by CLI argument
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open import file", goerr.V("path", path))
	}
	defer safe.Close(ctx, f, "path", path)

	logging.Default().Info("Importing file", "path", path, "dry_run", opts.DryRun, "commit", opts.Commit.String())
	return uc.Import.ImportFile(ctx, f, path, opts)
}
