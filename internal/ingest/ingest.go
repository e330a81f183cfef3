// Package ingest lands uploaded payloads in the source bucket, where the
// bucket notification picks them up and starts a transform run.
package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"

	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/logger"
	"example.com/recordetl/internal/types"
)

var (
	ErrMissingKey    = errors.New("missing object key")
	ErrMissingBucket = errors.New("unable to resolve target bucket")
)

type ObjectWriter interface {
	PutObject(ctx context.Context, in etl.PutObjectInput) error
	EnsureBucket(ctx context.Context, bucket string) error
}

type Handler struct {
	store              ObjectWriter
	defaultBucket      string
	defaultContentType string
}

func NewHandler(store ObjectWriter, defaultBucket, defaultContentType string) *Handler {
	if defaultContentType == "" {
		defaultContentType = etl.JSONContentType
	}
	return &Handler{store: store, defaultBucket: defaultBucket, defaultContentType: defaultContentType}
}

func (h *Handler) Handle(ctx context.Context, event types.IngestEvent) (types.IngestResult, error) {
	if event.Key == "" {
		return types.IngestResult{}, ErrMissingKey
	}
	bucket := event.Bucket
	if bucket == "" {
		bucket = h.defaultBucket
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return types.IngestResult{}, ErrMissingBucket
	}

	contentType := event.ContentType
	if contentType == "" {
		contentType = h.defaultContentType
	}
	metadata := make(map[string]string, len(event.Metadata)+1)
	for k, v := range event.Metadata {
		metadata[k] = v
	}
	if event.OutputBucket != "" {
		metadata[types.MetadataOutputBucket] = event.OutputBucket
	}

	if err := h.store.EnsureBucket(ctx, bucket); err != nil {
		return types.IngestResult{}, err
	}
	err := h.store.PutObject(ctx, etl.PutObjectInput{
		Bucket:      bucket,
		Key:         event.Key,
		Body:        []byte(event.Content),
		ContentType: contentType,
		Metadata:    metadata,
	})
	if err != nil {
		return types.IngestResult{}, err
	}
	logger.Log.Info().Msgf("Uploaded s3://%s/%s via ingest lambda", bucket, event.Key)

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return types.IngestResult{Bucket: bucket, Key: event.Key, MetadataKeys: keys}, nil
}
