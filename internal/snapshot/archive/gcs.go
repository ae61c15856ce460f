package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// GCSConfig names the bucket and service account credentials file used
// to authenticate. ServiceAccountKeyFile may be empty to use ambient
// application-default credentials.
type GCSConfig struct {
	Bucket                string
	ServiceAccountKeyFile string
	KeyPrefix             string
}

// GCSMirror mirrors golden snapshots to a Google Cloud Storage bucket.
type GCSMirror struct {
	bucket    *storage.BucketHandle
	keyPrefix string
}

// NewGCSMirror builds a mirror over cfg.Bucket.
func NewGCSMirror(ctx context.Context, cfg GCSConfig) (*GCSMirror, error) {
	var opts []option.ClientOption
	if cfg.ServiceAccountKeyFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.ServiceAccountKeyFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: build gcs client: %w", err)
	}
	return &GCSMirror{bucket: client.Bucket(cfg.Bucket), keyPrefix: cfg.KeyPrefix}, nil
}

func (m *GCSMirror) Upload(ctx context.Context, key string, snap displayapi.Snapshot) error {
	raw, err := marshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("archive: marshal for gcs mirror: %w", err)
	}

	w := m.bucket.Object(objectKey(m.keyPrefix, key)).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(raw)); err != nil {
		_ = w.Close()
		return fmt.Errorf("archive: gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: gcs close writer: %w", err)
	}
	return nil
}

func (m *GCSMirror) Download(ctx context.Context, key string) (displayapi.Snapshot, error) {
	r, err := m.bucket.Object(objectKey(m.keyPrefix, key)).NewReader(ctx)
	if err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: gcs new reader: %w", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: gcs read: %w", err)
	}
	return unmarshalSnapshot(raw)
}

var _ Mirror = (*GCSMirror)(nil)
