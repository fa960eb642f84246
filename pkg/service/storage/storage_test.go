package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/grcbook/pkg/service/storage"
)

func TestParseGSLink(t *testing.T) {
	tests := []struct {
		link   string
		bucket string
		object string
		ok     bool
	}{
		{"gs://evidence/audits/2026/report.pdf", "evidence", "audits/2026/report.pdf", true},
		{"gs://evidence/", "", "", false},
		{"gs://", "", "", false},
		{"https://example.com/report.pdf", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			bucket, object, ok := storage.ParseGSLink(tt.link)
			gt.Value(t, ok).Equal(tt.ok)
			gt.Value(t, bucket).Equal(tt.bucket)
			gt.Value(t, object).Equal(tt.object)
		})
	}
}

func TestLinkOnly(t *testing.T) {
	ctx := context.Background()
	host := &storage.LinkOnly{}

	doc, err := host.Resolve(ctx, " https://docs.example.com/policies/access.pdf ")
	gt.NoError(t, err).Required()
	gt.Value(t, doc.Link).Equal("https://docs.example.com/policies/access.pdf")
	gt.Value(t, doc.Name).Equal("access.pdf")

	doc, err = host.Resolve(ctx, "https://docs.example.com")
	gt.NoError(t, err).Required()
	gt.Value(t, doc.Name).Equal("docs.example.com")

	_, err = host.Resolve(ctx, "not a link")
	gt.Error(t, err).Is(storage.ErrInvalidLink)

	_, err = host.Resolve(ctx, "ftp://files.example.com/a")
	gt.Error(t, err).Is(storage.ErrInvalidLink)
}

func TestIntegration(t *testing.T) {
	bucket := os.Getenv("TEST_STORAGE_BUCKET")
	if bucket == "" {
		t.Skip("TEST_STORAGE_BUCKET is not set")
	}
	ctx := context.Background()

	client, err := storage.New(ctx, bucket, "grcbook-test")
	gt.NoError(t, err).Required()
	defer func() { _ = client.Close() }()

	name := "export-" + time.Now().Format("20060102150405") + ".csv"
	location, err := client.Upload(ctx, name, "text/csv", []byte("Object type,Program\n"))
	gt.NoError(t, err).Required()
	gt.Value(t, location).Equal("gs://" + bucket + "/grcbook-test/" + name)

	doc, err := client.Resolve(ctx, location)
	gt.NoError(t, err).Required()
	gt.Value(t, doc.Name).Equal(name)

	_, err = client.Resolve(ctx, "gs://"+bucket+"/grcbook-test/missing.csv")
	gt.Error(t, err).Is(storage.ErrObjectNotFound)
}
