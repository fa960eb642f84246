package cli

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/secmon-lab/grcbook/pkg/utils/csvfile"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/secmon-lab/grcbook/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdExport() *cli.Command {
	var appCfg appConfig
	var objectTypes []string
	var slugs []string
	var statuses []string
	var fields []string
	var format string
	var output string
	var upload string

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "object-type",
			Aliases:     []string{"t"},
			Usage:       "Object type to export, one block per type (repeatable)",
			Required:    true,
			Destination: &objectTypes,
		},
		&cli.StringSliceFlag{
			Name:        "slug",
			Usage:       "Only export records with these codes",
			Destination: &slugs,
		},
		&cli.StringSliceFlag{
			Name:        "status",
			Usage:       "Only export records in these statuses",
			Destination: &statuses,
		},
		&cli.StringSliceFlag{
			Name:        "field",
			Usage:       "Only export these columns (Code is always included)",
			Destination: &fields,
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "Output format: csv or xlsx. Defaults to the output file extension.",
			Destination: &format,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output file, - for stdout",
			Value:       "-",
			Destination: &output,
		},
		&cli.StringFlag{
			Name:        "upload",
			Usage:       "Upload the export to Cloud Storage under this name instead of writing it",
			Destination: &upload,
		},
	}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "export",
		Aliases: []string{"e"},
		Usage:   "Export records in the import layout",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if format == "" && strings.HasSuffix(strings.ToLower(output), ".xlsx") {
				format = string(csvfile.FormatXLSX)
			}
			outFormat, err := csvfile.ParseFormat(format)
			if err != nil {
				return err
			}

			queries := make([]usecase.ExportQuery, 0, len(objectTypes))
			for _, t := range objectTypes {
				q, err := usecase.NewExportQuery(t, slugs, statuses, fields)
				if err != nil {
					return err
				}
				queries = append(queries, q)
			}

			a, err := appCfg.build(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if upload != "" {
				location, err := a.uc.Export.Upload(ctx, upload, outFormat, queries...)
				if err != nil {
					return err
				}
				_, _ = okColor.Fprintf(c.Root().Writer, "Uploaded %s\n", location)
				return nil
			}

			if output == "-" {
				return a.uc.Export.Write(ctx, c.Root().Writer, outFormat, queries...)
			}

			// #nosec G304 - path is provided by CLI flag
			f, err := os.Create(output)
			if err != nil {
				return goerr.Wrap(err, "failed to create output file", goerr.V("path", output))
			}
			defer safe.Close(ctx, f, "path", output)

			if err := a.uc.Export.Write(ctx, f, outFormat, queries...); err != nil {
				return err
			}
			logging.Default().Info("Export written", "path", output, "format", outFormat, "blocks", len(queries))
			return nil
		},
	}
}
