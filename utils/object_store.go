// utils/object_store.go
package utils

import (
	"context"
	"errors"
	"fmt"

	appconfig "game-session-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewObjectStore builds an S3 client for the archive bucket. With no explicit
// endpoint it targets the account's Cloudflare R2 endpoint.
func NewObjectStore(ctx context.Context, cfg appconfig.ArchiveConfig) (*s3.Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("archive storage is not configured")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object store config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = cfg.Endpoint != ""
	}), nil
}
