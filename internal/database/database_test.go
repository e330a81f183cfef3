package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/types"
)

type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI

	items     map[string]map[string]*dynamodb.AttributeValue
	updates   []*dynamodb.UpdateItemInput
	updateErr error
}

func (f *fakeDynamo) PutItemWithContext(ctx aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.items[*in.Item[hashKey].S] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItemWithContext(ctx aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[*in.Key[hashKey].S]}, nil
}

func (f *fakeDynamo) UpdateItemWithContext(ctx aws.Context, in *dynamodb.UpdateItemInput, _ ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func newTestLedger(svc *fakeDynamo) *Ledger {
	l := NewLedger(svc, "etl-runs")
	l.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestLedger_CreateAndGet(t *testing.T) {
	svc := &fakeDynamo{items: map[string]map[string]*dynamodb.AttributeValue{}}
	l := newTestLedger(svc)
	ctx := context.Background()

	err := l.CreateRecord(ctx, types.RunRecord{
		JobRunID:     "jr_1",
		JobName:      "etl-demo-job",
		SourceBucket: "landing",
		SourceKey:    "a.jsonl",
		OutputBucket: "curated",
		OutputKey:    "transformed/a.jsonl",
		JobStatus:    StatusStarting,
	})
	require.NoError(t, err)

	rec, err := l.GetRecord(ctx, "jr_1")
	require.NoError(t, err)
	assert.Equal(t, "transformed/a.jsonl", rec.OutputKey)
	assert.Equal(t, StatusStarting, rec.JobStatus)
	assert.Equal(t, l.now(), rec.StartedAt)
	assert.Equal(t, l.now(), rec.UpdatedAt)
}

func TestLedger_GetMissing(t *testing.T) {
	svc := &fakeDynamo{items: map[string]map[string]*dynamodb.AttributeValue{}}
	_, err := newTestLedger(svc).GetRecord(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, etl.ErrNotFound))
}

func TestLedger_SetStatus(t *testing.T) {
	svc := &fakeDynamo{}
	require.NoError(t, newTestLedger(svc).SetStatus(context.Background(), "jr_1", "SUCCEEDED", ""))

	require.Len(t, svc.updates, 1)
	in := svc.updates[0]
	assert.Equal(t, "jr_1", aws.StringValue(in.Key[hashKey].S))
	assert.Equal(t, "SUCCEEDED", aws.StringValue(in.ExpressionAttributeValues[":s"].S))
	assert.Equal(t, "2024-05-01T12:00:00Z", aws.StringValue(in.ExpressionAttributeValues[":u"].S))
}

func TestLedger_SetStatusUnknownRun(t *testing.T) {
	svc := &fakeDynamo{updateErr: awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "conditional", nil)}
	err := newTestLedger(svc).SetStatus(context.Background(), "jr_x", "FAILED", "boom")
	require.Error(t, err)
	assert.True(t, errors.Is(err, etl.ErrNotFound))
}
