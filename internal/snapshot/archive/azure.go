package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// AzureConfig names the container and the connection string used to
// authenticate against the storage account.
type AzureConfig struct {
	ConnectionString string
	Container        string
	KeyPrefix        string
}

// AzureMirror mirrors golden snapshots to an Azure Blob Storage container.
type AzureMirror struct {
	client    *azblob.Client
	container string
	keyPrefix string
}

// NewAzureMirror builds a mirror authenticated via cfg.ConnectionString.
func NewAzureMirror(cfg AzureConfig) (*AzureMirror, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: build azure blob client: %w", err)
	}
	return &AzureMirror{client: client, container: cfg.Container, keyPrefix: cfg.KeyPrefix}, nil
}

func (m *AzureMirror) Upload(ctx context.Context, key string, snap displayapi.Snapshot) error {
	raw, err := marshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("archive: marshal for azure mirror: %w", err)
	}

	_, err = m.client.UploadBuffer(ctx, m.container, objectKey(m.keyPrefix, key), raw, nil)
	if err != nil {
		return fmt.Errorf("archive: azure upload buffer: %w", err)
	}
	return nil
}

func (m *AzureMirror) Download(ctx context.Context, key string) (displayapi.Snapshot, error) {
	resp, err := m.client.DownloadStream(ctx, m.container, objectKey(m.keyPrefix, key), nil)
	if err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: azure download stream: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: read azure blob body: %w", err)
	}
	return unmarshalSnapshot(raw)
}

var _ Mirror = (*AzureMirror)(nil)
