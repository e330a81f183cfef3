package etl

import (
	"context"

	"github.com/rs/zerolog"
)

const (
	OutputPrefix    = "transformed/"
	JSONContentType = "application/json"
)

type PutObjectInput struct {
	Bucket      string
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// ObjectStore is the part of an object storage client the pipeline needs.
// Implementations report missing objects with ErrNotFound and permission
// failures with ErrAccess.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, in PutObjectInput) error
}

// OutputKey derives the destination key. It is a plain prefix, so any path
// separators in the source key are kept as they are.
func OutputKey(sourceKey string) string {
	return OutputPrefix + sourceKey
}

type Result struct {
	OutputBucket string
	OutputKey    string
	Records      int
	Bytes        int
}

type Pipeline struct {
	store ObjectStore
	log   zerolog.Logger
}

func NewPipeline(store ObjectStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{store: store, log: log}
}

// Run reads the source object, transforms every record and writes the result
// with a single put. Nothing is written unless every record transformed.
func (p *Pipeline) Run(ctx context.Context, params JobParameters) (Result, error) {
	outputKey := OutputKey(params.SourceKey)

	p.log.Info().Msgf("Reading s3://%s/%s", params.SourceBucket, params.SourceKey)
	body, err := p.store.GetObject(ctx, params.SourceBucket, params.SourceKey)
	if err != nil {
		return Result{}, err
	}

	out, n, err := TransformBody(body)
	if err != nil {
		return Result{}, err
	}

	p.log.Info().Msgf("Writing transformed data to s3://%s/%s", params.OutputBucket, outputKey)
	err = p.store.PutObject(ctx, PutObjectInput{
		Bucket:      params.OutputBucket,
		Key:         outputKey,
		Body:        out,
		ContentType: JSONContentType,
	})
	if err != nil {
		return Result{}, err
	}

	p.log.Info().Int("records", n).Msg("Transformation complete")
	return Result{
		OutputBucket: params.OutputBucket,
		OutputKey:    outputKey,
		Records:      n,
		Bytes:        len(out),
	}, nil
}
