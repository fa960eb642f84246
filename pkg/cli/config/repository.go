package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/repository/firestore"
	"github.com/secmon-lab/grcbook/pkg/repository/memory"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Repository selects where records, people and notifications are stored
type Repository struct {
	backend    string
	projectID  string
	databaseID string
	prefix     string
}

func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Where records are stored (firestore or memory)",
			Category:    "Repository",
			Value:       BackendFirestore,
			Sources:     cli.EnvVars("GRCBOOK_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Google Cloud project holding the Firestore database",
			Category:    "Repository",
			Sources:     cli.EnvVars("GRCBOOK_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore database ID (empty for the default database)",
			Category:    "Repository",
			Sources:     cli.EnvVars("GRCBOOK_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix for collection names, e.g. \"staging_\"",
			Category:    "Repository",
			Sources:     cli.EnvVars("GRCBOOK_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.prefix,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.String("collection_prefix", r.prefix),
	)
}

// Validate checks the backend name and its required settings
func (r *Repository) Validate() error {
	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return goerr.Wrap(ErrInvalidConfig, "firestore backend needs --firestore-project-id")
		}
	case BackendMemory:
	default:
		return goerr.Wrap(ErrInvalidConfig, "unknown repository backend", goerr.V("backend", r.backend))
	}
	return nil
}

// Configure opens the repository. The caller closes it.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	if r.backend == BackendMemory {
		logging.Default().Warn("Using in-memory repository, data is lost on exit")
		return memory.New(), nil
	}

	repo, err := firestore.New(ctx, r.projectID, r.databaseID, firestore.WithCollectionPrefix(r.prefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize firestore repository")
	}
	logging.Default().Info("Using Firestore repository", "repository", r)
	return repo, nil
}
