package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"example.com/recordetl/internal/config"
	"example.com/recordetl/internal/etl"
)

// Store is an etl.ObjectStore that can also read object metadata and create
// buckets.
type Store interface {
	etl.ObjectStore
	HeadMetadata(ctx context.Context, bucket, key string) (map[string]string, error)
	EnsureBucket(ctx context.Context, bucket string) error
}

// NewStore picks the S3-compatible backend when an endpoint is configured and
// AWS S3 otherwise.
func NewStore(cfg *config.Config, sess *session.Session) (Store, error) {
	if cfg.Storage.Endpoint != "" {
		return NewMinioStore(cfg.Storage, cfg.AWS.Region)
	}
	return NewS3Store(s3.New(sess)), nil
}
