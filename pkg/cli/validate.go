package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/cli/config"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	domainConfig "github.com/secmon-lab/grcbook/pkg/domain/model/config"
	"github.com/secmon-lab/grcbook/pkg/repository/firestore"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

var (
	ErrNoSchemaFile    = goerr.New("no schema file given")
	ErrMissingRecord   = goerr.New("record referenced by schema not found")
)

func cmdValidate() *cli.Command {
	var projectID string
	var databaseID string
	var prefix string

	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a schema file and optionally check referenced records",
		ArgsUsage: "<schema.toml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (optional, enables record check)",
				Sources:     cli.EnvVars("GRCBOOK_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("GRCBOOK_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix for Firestore collection names",
				Sources:     cli.EnvVars("GRCBOOK_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &prefix,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return goerr.Wrap(ErrNoSchemaFile, "validate needs a schema file")
			}

			logger := logging.From(ctx)

			schema, err := config.LoadSchema(path)
			if err != nil {
				_, _ = errColor.Fprintf(os.Stdout, "%s: invalid\n", path)
				return err
			}
			printSchemaSummary(os.Stdout, path, schema)

			if projectID == "" {
				logger.Debug("Skip record check, no Firestore project given")
				return nil
			}

			repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize firestore repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			return checkLocalAttributes(ctx, os.Stdout, repo.Record(), schema)
		},
	}
}

func printSchemaSummary(w io.Writer, path string, schema *domainConfig.Schema) {
	_, _ = okColor.Fprintf(w, "%s: OK\n", path)
	_, _ = fmt.Fprintf(w, "  roles:            %d\n", len(schema.Roles))
	_, _ = fmt.Fprintf(w, "  attributes:       %d\n", len(schema.Attributes))
	_, _ = fmt.Fprintf(w, "  local attributes: %d\n", len(schema.LocalAttributes))
	_, _ = fmt.Fprintf(w, "  verifier role:    %s\n", schema.VerifierRole)
	_, _ = fmt.Fprintf(w, "  digest:           due in %d day(s), cycle lead %d day(s), %s\n",
		schema.Digest.DueInDays, schema.Digest.CycleStartLead, schema.Digest.TimeZone())
}

// checkLocalAttributes verifies every record that carries a local attribute exists
func checkLocalAttributes(ctx context.Context, w io.Writer, repo interfaces.RecordRepository, schema *domainConfig.Schema) error {
	var missing int
	for _, la := range schema.LocalAttributes {
		rec, err := repo.GetBySlug(ctx, la.Definition.ObjectType, la.RecordSlug)
		if err != nil {
			return goerr.Wrap(err, "failed to look up record",
				goerr.V("object_type", la.Definition.ObjectType),
				goerr.V("slug", la.RecordSlug))
		}
		if rec == nil {
			missing++
			_, _ = warnColor.Fprintf(w, "  missing %s %s (attribute %q)\n",
				la.Definition.ObjectType, la.RecordSlug, la.Definition.Title)
		}
	}

	if missing > 0 {
		return goerr.Wrap(ErrMissingRecord, "schema references unknown records",
			goerr.V("missing", missing))
	}
	_, _ = okColor.Fprintf(w, "  %d local attribute record(s) found\n", len(schema.LocalAttributes))
	return nil
}
