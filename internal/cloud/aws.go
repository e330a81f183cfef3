package cloud

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/logger"
)

// NewSession builds a session from the shared config chain, pinned to region
// when one is given.
func NewSession(region string) (*session.Session, error) {
	opts := session.Options{SharedConfigState: session.SharedConfigEnable}
	if region != "" {
		opts.Config = aws.Config{Region: aws.String(region)}
	}
	return session.NewSessionWithOptions(opts)
}

type S3Store struct {
	svc s3iface.S3API
}

func NewS3Store(svc s3iface.S3API) *S3Store {
	return &S3Store{svc: svc}
}

var _ etl.ObjectStore = (*S3Store)(nil)

func (s *S3Store) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s3Error("get", bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &etl.StorageError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}
	return body, nil
}

func (s *S3Store) PutObject(ctx context.Context, in etl.PutObjectInput) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(in.Key),
		Body:   bytes.NewReader(in.Body),
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if len(in.Metadata) > 0 {
		input.Metadata = aws.StringMap(in.Metadata)
	}
	if _, err := s.svc.PutObjectWithContext(ctx, input); err != nil {
		return s3Error("put", in.Bucket, in.Key, err)
	}
	return nil
}

// HeadMetadata returns the user metadata stored on an object.
func (s *S3Store) HeadMetadata(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s3Error("head", bucket, key, err)
	}
	md := make(map[string]string, len(out.Metadata))
	for k, v := range out.Metadata {
		// S3 returns canonical header casing for metadata keys.
		md[http.CanonicalHeaderKey(k)] = aws.StringValue(v)
	}
	return md, nil
}

// EnsureBucket creates bucket when it does not exist. A bucket the caller may
// not inspect is left alone.
func (s *S3Store) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.svc.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	serr := s3Error("head", bucket, "", err)
	switch {
	case errors.Is(serr, etl.ErrNotFound):
		logger.Log.Info().Msgf("Bucket %s not found. Creating it now.", bucket)
		if _, err := s.svc.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
			return s3Error("create", bucket, "", err)
		}
		return nil
	case errors.Is(serr, etl.ErrAccess):
		logger.Log.Warn().Msgf("The credentials do not have access to bucket %s. Skipping creation.", bucket)
		return nil
	default:
		return serr
	}
}

func s3Error(op, bucket, key string, err error) error {
	return &etl.StorageError{Op: op, Bucket: bucket, Key: key, Kind: classifyAWS(err), Err: err}
}

func classifyAWS(err error) error {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode() {
		case http.StatusNotFound:
			return etl.ErrNotFound
		case http.StatusForbidden:
			return etl.ErrAccess
		}
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return classifyCode(aerr.Code())
	}
	return nil
}

func classifyCode(code string) error {
	switch code {
	case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
		return etl.ErrNotFound
	case "AccessDenied", "Forbidden", "AllAccessDisabled", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return etl.ErrAccess
	}
	return nil
}
