package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/glue"

	"example.com/recordetl/internal/cloud"
	"example.com/recordetl/internal/config"
	"example.com/recordetl/internal/database"
	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/logger"
	"example.com/recordetl/internal/types"
)

type StartJobFunc func(ctx context.Context, params etl.JobParameters) (string, error)
type CreateRecordFunc func(ctx context.Context, record types.RunRecord) error
type MetadataFunc func(ctx context.Context, bucket, key string) (map[string]string, error)

type LambdaContext struct {
	startJob      StartJobFunc
	createRecord  CreateRecordFunc
	readMetadata  MetadataFunc
	jobName       string
	defaultOutput string
}

// objectKey returns the decoded key. S3 notifications form-encode keys, so
// '+' stands for a space.
func objectKey(obj events.S3Object) (string, error) {
	if obj.URLDecodedKey != "" {
		return obj.URLDecodedKey, nil
	}
	return url.QueryUnescape(obj.Key)
}

func (lc LambdaContext) outputBucket(ctx context.Context, bucket, key string) (string, error) {
	if lc.readMetadata == nil {
		return lc.defaultOutput, nil
	}
	meta, err := lc.readMetadata(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	if v := strings.TrimSpace(meta[http.CanonicalHeaderKey(types.MetadataOutputBucket)]); v != "" {
		return v, nil
	}
	return lc.defaultOutput, nil
}

// HandleRequest starts one job run per created object and returns the run
// ids. Processing stops at the first failure.
func (lc LambdaContext) HandleRequest(ctx context.Context, event events.S3Event) ([]string, error) {
	runIDs := []string{}
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key, err := objectKey(record.S3.Object)
		if err != nil {
			return runIDs, fmt.Errorf("decode key %q: %w", record.S3.Object.Key, err)
		}
		if strings.HasPrefix(key, etl.OutputPrefix) {
			logger.Log.Debug().Str("bucket", bucket).Str("key", key).Msg("skipping transformed object")
			continue
		}

		output, err := lc.outputBucket(ctx, bucket, key)
		if err != nil {
			return runIDs, err
		}
		params := etl.JobParameters{SourceBucket: bucket, SourceKey: key, OutputBucket: output}

		runID, err := lc.startJob(ctx, params)
		if err != nil {
			return runIDs, err
		}
		logger.Log.Info().Msgf("Started Glue job %s (%s) for s3://%s/%s", lc.jobName, runID, bucket, key)

		err = lc.createRecord(ctx, types.RunRecord{
			JobRunID:     runID,
			JobName:      lc.jobName,
			SourceBucket: bucket,
			SourceKey:    key,
			OutputBucket: output,
			OutputKey:    etl.OutputKey(key),
			JobStatus:    database.StatusStarting,
		})
		if err != nil {
			return runIDs, err
		}
		runIDs = append(runIDs, runID)
	}
	return runIDs, nil
}

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	sess, err := cloud.NewSession(cfg.AWS.Region)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Unable to create AWS session")
	}
	store, err := cloud.NewStore(cfg, sess)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Unable to create object store")
	}
	runner := cloud.NewJobRunner(glue.New(sess), cfg.AWS.GlueJobName)
	ledger := database.NewLedger(dynamodb.New(sess), cfg.AWS.TableName)

	lambdaContext := LambdaContext{
		startJob:      runner.Start,
		createRecord:  ledger.CreateRecord,
		readMetadata:  store.HeadMetadata,
		jobName:       runner.JobName(),
		defaultOutput: cfg.AWS.TransformedBucket,
	}

	lambda.Start(func(ctx context.Context, event events.S3Event) ([]string, error) {
		return lambdaContext.HandleRequest(ctx, event)
	})
}
