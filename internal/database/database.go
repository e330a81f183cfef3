package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/types"
)

const (
	StatusStarting = "STARTING"
	hashKey        = "job_run_id"
)

// Ledger keeps one row per job run in a DynamoDB table keyed by job_run_id.
type Ledger struct {
	svc   dynamodbiface.DynamoDBAPI
	table string
	now   func() time.Time
}

func NewLedger(svc dynamodbiface.DynamoDBAPI, table string) *Ledger {
	return &Ledger{svc: svc, table: table, now: time.Now}
}

func (l *Ledger) CreateRecord(ctx context.Context, record types.RunRecord) error {
	now := l.now().UTC()
	if record.StartedAt.IsZero() {
		record.StartedAt = now
	}
	record.UpdatedAt = now

	av, err := dynamodbattribute.MarshalMap(record)
	if err != nil {
		return err
	}
	_, err = l.svc.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(l.table),
	})
	if err != nil {
		return fmt.Errorf("put run %s: %w", record.JobRunID, err)
	}
	return nil
}

func (l *Ledger) GetRecord(ctx context.Context, jobRunID string) (types.RunRecord, error) {
	var rec types.RunRecord
	result, err := l.svc.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.table),
		Key: map[string]*dynamodb.AttributeValue{
			hashKey: {S: aws.String(jobRunID)},
		},
	})
	if err != nil {
		return rec, fmt.Errorf("get run %s: %w", jobRunID, err)
	}
	if result.Item == nil {
		return rec, fmt.Errorf("run %s: %w", jobRunID, etl.ErrNotFound)
	}
	if err := dynamodbattribute.UnmarshalMap(result.Item, &rec); err != nil {
		return rec, fmt.Errorf("decode run %s: %w", jobRunID, err)
	}
	return rec, nil
}

// SetStatus records a new state for a run. The row must already exist.
func (l *Ledger) SetStatus(ctx context.Context, jobRunID, status, message string) error {
	updatedAt, err := dynamodbattribute.Marshal(l.now().UTC())
	if err != nil {
		return err
	}
	input := &dynamodb.UpdateItemInput{
		ExpressionAttributeNames: map[string]*string{
			"#m": aws.String("message"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":s": {S: aws.String(status)},
			":m": {S: aws.String(message)},
			":u": updatedAt,
		},
		TableName: aws.String(l.table),
		Key: map[string]*dynamodb.AttributeValue{
			hashKey: {S: aws.String(jobRunID)},
		},
		ConditionExpression: aws.String("attribute_exists(" + hashKey + ")"),
		ReturnValues:        aws.String("UPDATED_NEW"),
		UpdateExpression:    aws.String("set job_status = :s, #m = :m, updated_at = :u"),
	}
	if _, err := l.svc.UpdateItemWithContext(ctx, input); err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return fmt.Errorf("run %s: %w", jobRunID, etl.ErrNotFound)
		}
		return fmt.Errorf("update run %s: %w", jobRunID, err)
	}
	return nil
}
