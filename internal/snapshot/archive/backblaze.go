package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Backblaze/blazer/b2"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// BackblazeConfig names the B2 bucket and application key credentials.
type BackblazeConfig struct {
	KeyID     string
	Key       string
	Bucket    string
	KeyPrefix string
}

// BackblazeMirror mirrors golden snapshots to a Backblaze B2 bucket.
type BackblazeMirror struct {
	bucket    *b2.Bucket
	keyPrefix string
}

// NewBackblazeMirror authenticates against B2 and resolves cfg.Bucket.
func NewBackblazeMirror(ctx context.Context, cfg BackblazeConfig) (*BackblazeMirror, error) {
	client, err := b2.NewClient(ctx, cfg.KeyID, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("archive: b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("archive: b2 resolve bucket %q: %w", cfg.Bucket, err)
	}
	return &BackblazeMirror{bucket: bucket, keyPrefix: cfg.KeyPrefix}, nil
}

func (m *BackblazeMirror) Upload(ctx context.Context, key string, snap displayapi.Snapshot) error {
	raw, err := marshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("archive: marshal for b2 mirror: %w", err)
	}

	w := m.bucket.Object(objectKey(m.keyPrefix, key)).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(raw)); err != nil {
		_ = w.Close()
		return fmt.Errorf("archive: b2 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: b2 close writer: %w", err)
	}
	return nil
}

func (m *BackblazeMirror) Download(ctx context.Context, key string) (displayapi.Snapshot, error) {
	r := m.bucket.Object(objectKey(m.keyPrefix, key)).NewReader(ctx)
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: b2 read: %w", err)
	}
	return unmarshalSnapshot(raw)
}

var _ Mirror = (*BackblazeMirror)(nil)
