package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/secmon-lab/grcbook/pkg/utils/safe"
	"google.golang.org/api/option"
)

var (
	ErrInvalidLink    = goerr.New("invalid evidence link")
	ErrObjectNotFound = goerr.New("object not found")
)

// Client uploads exports to and resolves evidence in Cloud Storage
type Client struct {
	client *storage.Client
	bucket string
	prefix string
	links  *LinkOnly
}

// New creates a client writing exports to gs://bucket/prefix
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Client, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &Client{
		client: c,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		links:  &LinkOnly{},
	}, nil
}

// Close releases the storage client
func (c *Client) Close() error {
	return c.client.Close()
}

// Upload implements interfaces.ExportStore
func (c *Client) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	objName := path.Join(c.prefix, name)
	w := c.client.Bucket(c.bucket).Object(objName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		safe.Close(ctx, w, "object", objName)
		return "", goerr.Wrap(err, "failed to write object", goerr.V("bucket", c.bucket), goerr.V("object", objName))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", c.bucket), goerr.V("object", objName))
	}

	location := fmt.Sprintf("gs://%s/%s", c.bucket, objName)
	logging.From(ctx).Info("uploaded object", "location", location, "bytes", len(data))
	return location, nil
}

// Resolve implements interfaces.EvidenceHost. gs:// links must point to an
// existing object; other links are accepted as plain URLs.
func (c *Client) Resolve(ctx context.Context, link string) (*model.Document, error) {
	bucket, object, ok := ParseGSLink(link)
	if !ok {
		return c.links.Resolve(ctx, link)
	}

	attrs, err := c.client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, goerr.Wrap(ErrObjectNotFound, "evidence object does not exist", goerr.V("link", link))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get object attributes", goerr.V("link", link))
	}

	return &model.Document{
		ID:   fmt.Sprintf("%s/%s#%d", attrs.Bucket, attrs.Name, attrs.Generation),
		Link: link,
		Name: path.Base(attrs.Name),
	}, nil
}

// ParseGSLink splits "gs://bucket/path/to/object"
func ParseGSLink(link string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(link), "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// LinkOnly accepts any absolute http(s) or gs URL without contacting a host
type LinkOnly struct{}

// Resolve implements interfaces.EvidenceHost
func (h *LinkOnly) Resolve(ctx context.Context, link string) (*model.Document, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidLink, "cannot parse link", goerr.V("link", link))
	}
	switch u.Scheme {
	case "http", "https", "gs":
	default:
		return nil, goerr.Wrap(ErrInvalidLink, "unsupported link scheme", goerr.V("link", link))
	}
	if u.Host == "" {
		return nil, goerr.Wrap(ErrInvalidLink, "link has no host", goerr.V("link", link))
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = u.Host
	}
	return &model.Document{
		Link: u.String(),
		Name: name,
	}, nil
}
