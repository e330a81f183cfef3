package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"example.com/recordetl/internal/cloud"
	"example.com/recordetl/internal/config"
	"example.com/recordetl/internal/database"
	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/logger"
)

// JobStateDetail is the detail of a Glue "Glue Job State Change" event.
type JobStateDetail struct {
	JobName  string `json:"jobName"`
	Severity string `json:"severity"`
	State    string `json:"state"`
	JobRunID string `json:"jobRunId"`
	Message  string `json:"message"`
}

type UpdateJobStatusFunc func(ctx context.Context, jobRunID, status, message string) error

type LambdaContext struct {
	updateJobStatus UpdateJobStatusFunc
	jobName         string
}

func (lc *LambdaContext) HandleRequest(ctx context.Context, event events.CloudWatchEvent) error {
	var detail JobStateDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("decode %q detail: %w", event.DetailType, err)
	}
	if detail.JobName != lc.jobName {
		logger.Log.Debug().Str("job", detail.JobName).Msg("ignoring state change for other job")
		return nil
	}
	if detail.JobRunID == "" {
		return fmt.Errorf("state change for %s has no jobRunId", detail.JobName)
	}

	err := lc.updateJobStatus(ctx, detail.JobRunID, detail.State, detail.Message)
	if errors.Is(err, etl.ErrNotFound) {
		// Runs started outside the trigger have no ledger row.
		logger.Log.Warn().Str("run", detail.JobRunID).Msg("no ledger record for job run")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Log.Info().Msgf("Job run %s is %s", detail.JobRunID, detail.State)
	return nil
}

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	sess, err := cloud.NewSession(cfg.AWS.Region)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Unable to create AWS session")
	}
	ledger := database.NewLedger(dynamodb.New(sess), cfg.AWS.TableName)

	lambdaContext := LambdaContext{
		updateJobStatus: ledger.SetStatus,
		jobName:         cfg.AWS.GlueJobName,
	}
	lambda.Start(func(ctx context.Context, event events.CloudWatchEvent) error {
		return lambdaContext.HandleRequest(ctx, event)
	})
}
