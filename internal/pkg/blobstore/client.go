package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// Client is the boundary to the external blob store. The engine never reads
// or writes blob bytes itself; it only mints presigned URLs against the CIDs
// it bookkeeps.
type Client struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

// New creates a blob store client and ensures the configured bucket exists.
func New(ctx context.Context, cfg *Config, log *logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid blob store configuration: %w", err)
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store client: %w", err)
	}

	c := &Client{
		client: mc,
		bucket: cfg.Bucket,
		logger: log,
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
		log.Info("blob store bucket created", zap.String("bucket", cfg.Bucket))
	}

	log.Info("blob store connected",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket))
	return c, nil
}

// PresignedPut mints a presigned upload URL for one object.
func (c *Client) PresignedPut(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if objectName == "" {
		return "", fmt.Errorf("object name is required")
	}
	u, err := c.client.PresignedPutObject(ctx, c.bucket, objectName, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %q: %w", objectName, err)
	}
	return u.String(), nil
}

// PresignedGet mints a presigned download URL for one object.
func (c *Client) PresignedGet(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if objectName == "" {
		return "", fmt.Errorf("object name is required")
	}
	u, err := c.client.PresignedGetObject(ctx, c.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %q: %w", objectName, err)
	}
	return u.String(), nil
}

// StatObject reports whether the blob behind a CID has actually landed.
func (c *Client) StatObject(ctx context.Context, objectName string) (int64, error) {
	info, err := c.client.StatObject(ctx, c.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to stat %q: %w", objectName, err)
	}
	return info.Size, nil
}
