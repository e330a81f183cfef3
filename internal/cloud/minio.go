package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"example.com/recordetl/internal/config"
	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/logger"
)

// MinioStore talks to any S3-compatible endpoint (MinIO, LocalStack) and is
// what local runs use when S3_ENDPOINT is set.
type MinioStore struct {
	client *minio.Client
	region string
}

var _ etl.ObjectStore = (*MinioStore)(nil)

func NewMinioStore(cfg config.StorageConfig, region string) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3 endpoint must be provided")
	}
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	if strings.HasPrefix(endpoint, "http://") {
		endpoint, secure = strings.TrimPrefix(endpoint, "http://"), false
	} else if strings.HasPrefix(endpoint, "https://") {
		endpoint, secure = strings.TrimPrefix(endpoint, "https://"), true
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStore{client: client, region: region}, nil
}

func (m *MinioStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, minioError("get", bucket, key, err)
	}
	defer obj.Close()

	// minio defers the request until the first read.
	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, minioError("get", bucket, key, err)
	}
	return body, nil
}

func (m *MinioStore) PutObject(ctx context.Context, in etl.PutObjectInput) error {
	_, err := m.client.PutObject(ctx, in.Bucket, in.Key, bytes.NewReader(in.Body), int64(len(in.Body)), minio.PutObjectOptions{
		ContentType:  in.ContentType,
		UserMetadata: in.Metadata,
	})
	if err != nil {
		return minioError("put", in.Bucket, in.Key, err)
	}
	return nil
}

func (m *MinioStore) HeadMetadata(ctx context.Context, bucket, key string) (map[string]string, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, minioError("head", bucket, key, err)
	}
	md := make(map[string]string, len(info.UserMetadata))
	for k, v := range info.UserMetadata {
		md[http.CanonicalHeaderKey(k)] = v
	}
	return md, nil
}

func (m *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	ok, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		serr := minioError("head", bucket, "", err)
		if errors.Is(serr, etl.ErrAccess) {
			logger.Log.Warn().Msgf("The credentials do not have access to bucket %s. Skipping creation.", bucket)
			return nil
		}
		return serr
	}
	if ok {
		return nil
	}
	logger.Log.Info().Msgf("Bucket %s not found. Creating it now.", bucket)
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return minioError("create", bucket, "", err)
	}
	return nil
}

func minioError(op, bucket, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	var kind error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		kind = etl.ErrNotFound
	case resp.StatusCode == http.StatusForbidden:
		kind = etl.ErrAccess
	default:
		kind = classifyCode(resp.Code)
	}
	return &etl.StorageError{Op: op, Bucket: bucket, Key: key, Kind: kind, Err: err}
}
