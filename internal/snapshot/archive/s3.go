package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// S3Config names the bucket and optional S3-compatible endpoint override.
type S3Config struct {
	Bucket         string
	Region         string
	Endpoint       string
	KeyPrefix      string
	ForcePathStyle bool
}

// S3Mirror mirrors golden snapshots to an S3-compatible bucket.
type S3Mirror struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Mirror loads AWS credentials from the default chain (env vars,
// shared config, EC2/ECS instance role) and builds a mirror over cfg.
func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Mirror{client: s3.NewFromConfig(awsCfg, s3Opts...), cfg: cfg}, nil
}

func (m *S3Mirror) Upload(ctx context.Context, key string, snap displayapi.Snapshot) error {
	raw, err := marshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("archive: marshal for s3 mirror: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(objectKey(m.cfg.KeyPrefix, key)),
		Body:   bytes.NewReader(raw),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put object: %w", err)
	}
	return nil
}

func (m *S3Mirror) Download(ctx context.Context, key string) (displayapi.Snapshot, error) {
	resp, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(objectKey(m.cfg.KeyPrefix, key)),
	})
	if err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: s3 get object: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: read s3 object body: %w", err)
	}
	return unmarshalSnapshot(raw)
}

var _ Mirror = (*S3Mirror)(nil)
