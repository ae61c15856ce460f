package main

import (
	"context"
	"fmt"

	"github.com/lanternops/display-helper-core/internal/config"
	"github.com/lanternops/display-helper-core/internal/snapshot/archive"
)

// buildArchiveMirror constructs the configured remote golden-snapshot
// mirror, or nil if cfg.ArchiveProvider is empty (local-only ledger).
func buildArchiveMirror(ctx context.Context, cfg *config.Config) (archive.Mirror, error) {
	switch cfg.ArchiveProvider {
	case "":
		return nil, nil

	case "local":
		dir := cfg.ArchiveLocalDir
		if dir == "" {
			return nil, fmt.Errorf("archive provider %q requires archive_local_dir", cfg.ArchiveProvider)
		}
		return archive.NewLocalMirror(dir), nil

	case "s3":
		return archive.NewS3Mirror(ctx, archive.S3Config{
			Bucket:    cfg.ArchiveBucket,
			Region:    cfg.ArchiveRegion,
			Endpoint:  cfg.ArchiveEndpoint,
			KeyPrefix: cfg.ArchiveKeyPrefix,
		})

	case "azure":
		return archive.NewAzureMirror(archive.AzureConfig{
			ConnectionString: cfg.ArchiveConnString,
			Container:        cfg.ArchiveContainer,
			KeyPrefix:        cfg.ArchiveKeyPrefix,
		})

	case "backblaze":
		return archive.NewBackblazeMirror(ctx, archive.BackblazeConfig{
			KeyID:     cfg.ArchiveKeyID,
			Key:       cfg.ArchiveAppKey,
			Bucket:    cfg.ArchiveBucket,
			KeyPrefix: cfg.ArchiveKeyPrefix,
		})

	case "gcs":
		return archive.NewGCSMirror(ctx, archive.GCSConfig{
			Bucket:                cfg.ArchiveBucket,
			ServiceAccountKeyFile: cfg.ArchiveCredsFile,
			KeyPrefix:             cfg.ArchiveKeyPrefix,
		})

	default:
		return nil, fmt.Errorf("unrecognized archive_provider %q", cfg.ArchiveProvider)
	}
}
