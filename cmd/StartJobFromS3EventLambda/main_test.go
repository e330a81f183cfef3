package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/recordetl/internal/database"
	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/types"
)

func s3Event(bucket string, keys ...string) events.S3Event {
	var ev events.S3Event
	for _, k := range keys {
		var rec events.S3EventRecord
		rec.S3.Bucket.Name = bucket
		rec.S3.Object.Key = k
		ev.Records = append(ev.Records, rec)
	}
	return ev
}

type recorder struct {
	started []etl.JobParameters
	records []types.RunRecord
}

func newContext(r *recorder, meta map[string]string) LambdaContext {
	return LambdaContext{
		startJob: func(ctx context.Context, params etl.JobParameters) (string, error) {
			r.started = append(r.started, params)
			return "jr_" + params.SourceKey, nil
		},
		createRecord: func(ctx context.Context, record types.RunRecord) error {
			r.records = append(r.records, record)
			return nil
		},
		readMetadata: func(ctx context.Context, bucket, key string) (map[string]string, error) {
			return meta, nil
		},
		jobName:       "etl-demo-job",
		defaultOutput: "etl-transformed-bucket",
	}
}

func TestHandleRequest_StartsJobAndRecordsRun(t *testing.T) {
	r := &recorder{}
	ids, err := newContext(r, nil).HandleRequest(context.Background(), s3Event("landing", "incoming/my+file%281%29.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, []string{"jr_incoming/my file(1).jsonl"}, ids)

	require.Len(t, r.started, 1)
	assert.Equal(t, etl.JobParameters{
		SourceBucket: "landing",
		SourceKey:    "incoming/my file(1).jsonl",
		OutputBucket: "etl-transformed-bucket",
	}, r.started[0])
	assert.Equal(t, map[string]string{
		"--SOURCE_BUCKET": "landing",
		"--SOURCE_KEY":    "incoming/my file(1).jsonl",
		"--OUTPUT_BUCKET": "etl-transformed-bucket",
	}, r.started[0].Args())

	require.Len(t, r.records, 1)
	rec := r.records[0]
	assert.Equal(t, "jr_incoming/my file(1).jsonl", rec.JobRunID)
	assert.Equal(t, "etl-demo-job", rec.JobName)
	assert.Equal(t, "transformed/incoming/my file(1).jsonl", rec.OutputKey)
	assert.Equal(t, database.StatusStarting, rec.JobStatus)
}

func TestHandleRequest_MetadataOverridesOutputBucket(t *testing.T) {
	r := &recorder{}
	_, err := newContext(r, map[string]string{"Pipeline-Output-Bucket": " curated "}).
		HandleRequest(context.Background(), s3Event("landing", "a.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, "curated", r.started[0].OutputBucket)
	assert.Equal(t, "curated", r.records[0].OutputBucket)
}

func TestHandleRequest_SkipsTransformedKeys(t *testing.T) {
	r := &recorder{}
	ids, err := newContext(r, nil).HandleRequest(context.Background(), s3Event("shared", "transformed/a.jsonl", "b.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, []string{"jr_b.jsonl"}, ids)
	require.Len(t, r.started, 1)
	assert.Equal(t, "b.jsonl", r.started[0].SourceKey)
}

func TestHandleRequest_FirstFailureAborts(t *testing.T) {
	r := &recorder{}
	lc := newContext(r, nil)
	boom := errors.New("throttled")
	lc.startJob = func(ctx context.Context, params etl.JobParameters) (string, error) {
		if params.SourceKey == "b.jsonl" {
			return "", boom
		}
		r.started = append(r.started, params)
		return "jr_" + params.SourceKey, nil
	}

	ids, err := lc.HandleRequest(context.Background(), s3Event("landing", "a.jsonl", "b.jsonl", "c.jsonl"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"jr_a.jsonl"}, ids)
	assert.Len(t, r.started, 1)
	assert.Len(t, r.records, 1)
}

func TestHandleRequest_MetadataErrorAborts(t *testing.T) {
	r := &recorder{}
	lc := newContext(r, nil)
	lc.readMetadata = func(ctx context.Context, bucket, key string) (map[string]string, error) {
		return nil, &etl.StorageError{Op: "head", Bucket: bucket, Key: key, Kind: etl.ErrNotFound, Err: errors.New("NotFound")}
	}
	_, err := lc.HandleRequest(context.Background(), s3Event("landing", "gone.jsonl"))
	assert.ErrorIs(t, err, etl.ErrNotFound)
	assert.Empty(t, r.started)
}

func TestHandleRequest_BadKeyEncoding(t *testing.T) {
	_, err := newContext(&recorder{}, nil).HandleRequest(context.Background(), s3Event("landing", "bad%zz"))
	assert.Error(t, err)
}
