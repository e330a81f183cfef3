package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/aws/aws-sdk-go/service/glue/glueiface"

	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/types"
)

type JobRunner struct {
	svc     glueiface.GlueAPI
	jobName string
}

func NewJobRunner(svc glueiface.GlueAPI, jobName string) *JobRunner {
	return &JobRunner{svc: svc, jobName: jobName}
}

func (j *JobRunner) JobName() string { return j.jobName }

// Start launches one run of the transform job and returns its run id.
func (j *JobRunner) Start(ctx context.Context, params etl.JobParameters) (string, error) {
	out, err := j.svc.StartJobRunWithContext(ctx, &glue.StartJobRunInput{
		JobName:   aws.String(j.jobName),
		Arguments: aws.StringMap(params.Args()),
	})
	if err != nil {
		return "", fmt.Errorf("start job %s: %w", j.jobName, err)
	}
	return aws.StringValue(out.JobRunId), nil
}

// Get fetches a run. An unknown run id yields etl.ErrNotFound.
func (j *JobRunner) Get(ctx context.Context, runID string) (*types.JobRun, error) {
	out, err := j.svc.GetJobRunWithContext(ctx, &glue.GetJobRunInput{
		JobName:              aws.String(j.jobName),
		RunId:                aws.String(runID),
		PredecessorsIncluded: aws.Bool(false),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == glue.ErrCodeEntityNotFoundException {
			return nil, fmt.Errorf("job run %s: %w", runID, etl.ErrNotFound)
		}
		return nil, fmt.Errorf("get job run %s: %w", runID, err)
	}
	run := out.JobRun
	if run == nil {
		return nil, fmt.Errorf("job run %s: %w", runID, etl.ErrNotFound)
	}
	return &types.JobRun{
		ID:           aws.StringValue(run.Id),
		JobName:      aws.StringValue(run.JobName),
		State:        aws.StringValue(run.JobRunState),
		StartedOn:    run.StartedOn,
		CompletedOn:  run.CompletedOn,
		ErrorMessage: aws.StringValue(run.ErrorMessage),
		Arguments:    aws.StringValueMap(run.Arguments),
	}, nil
}
