package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/service/storage"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage holds the Cloud Storage settings for export upload and evidence
// lookup
type Storage struct {
	bucket string
	prefix string
}

func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "Cloud Storage bucket for exports and gs:// evidence",
			Category:    "Storage",
			Destination: &x.bucket,
			Sources:     cli.EnvVars("GRCBOOK_STORAGE_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "storage-prefix",
			Usage:       "Object name prefix for uploaded exports",
			Category:    "Storage",
			Value:       "exports",
			Destination: &x.prefix,
			Sources:     cli.EnvVars("GRCBOOK_STORAGE_PREFIX"),
		},
	}
}

// StorageServices is the result of Storage.Configure. Store is nil without a bucket.
type StorageServices struct {
	EvidenceHost interfaces.EvidenceHost
	Store        interfaces.ExportStore
	close        func() error
}

// Close releases the storage client, if any
func (s *StorageServices) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Configure returns the evidence host and export store. Without a bucket
// evidence links are accepted as plain URLs and uploads are unavailable.
func (x *Storage) Configure(ctx context.Context) (*StorageServices, error) {
	if x.bucket == "" {
		return &StorageServices{EvidenceHost: &storage.LinkOnly{}}, nil
	}

	client, err := storage.New(ctx, x.bucket, x.prefix)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize cloud storage", goerr.V("bucket", x.bucket))
	}
	logging.Default().Info("Using Cloud Storage", "bucket", x.bucket, "prefix", x.prefix)
	return &StorageServices{
		EvidenceHost: client,
		Store:        client,
		close:        client.Close,
	}, nil
}
