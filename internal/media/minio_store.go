package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// MinioStore keeps objects in an S3-compatible bucket.
type MinioStore struct {
	client *mclient.Client
	bucket string
}

// NewMinioStore connects to the endpoint and fails fast when the bucket is missing.
func NewMinioStore(ctx context.Context, configuration S3Config) (*MinioStore, error) {
	const op = "media.minio.new"

	endpoint := configuration.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Scheme != "" {
		endpoint = parsed.Host
		secure = parsed.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(configuration.AccessKey, configuration.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, configuration.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, configuration.Bucket)
	}
	return &MinioStore{client: client, bucket: configuration.Bucket}, nil
}

// Put uploads content under key.
func (store *MinioStore) Put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := store.client.PutObject(ctx, store.bucket, key, bytes.NewReader(content), int64(len(content)), mclient.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("media.minio.put: %w", err)
	}
	return nil
}

// Delete removes key from the bucket.
func (store *MinioStore) Delete(ctx context.Context, key string) error {
	if err := store.client.RemoveObject(ctx, store.bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		errResp := mclient.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("media.minio.delete: %w", err)
	}
	return nil
}
