package types

import "time"

// MetadataOutputBucket is the object metadata key an uploader sets to choose
// where the transformed output goes.
const MetadataOutputBucket = "pipeline-output-bucket"

// RunRecord is one row of the job run ledger.
type RunRecord struct {
	JobRunID     string    `json:"job_run_id" dynamodbav:"job_run_id"`
	JobName      string    `json:"job_name" dynamodbav:"job_name"`
	SourceBucket string    `json:"source_bucket" dynamodbav:"source_bucket"`
	SourceKey    string    `json:"source_key" dynamodbav:"source_key"`
	OutputBucket string    `json:"output_bucket" dynamodbav:"output_bucket"`
	OutputKey    string    `json:"output_key" dynamodbav:"output_key"`
	JobStatus    string    `json:"job_status" dynamodbav:"job_status"`
	Message      string    `json:"message,omitempty" dynamodbav:"message,omitempty"`
	StartedAt    time.Time `json:"started_at" dynamodbav:"started_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// IngestEvent is the payload the ingest Lambda accepts.
type IngestEvent struct {
	Bucket       string            `json:"bucket,omitempty"`
	Key          string            `json:"key"`
	Content      string            `json:"content"`
	ContentType  string            `json:"contentType,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	OutputBucket string            `json:"outputBucket,omitempty"`
}

type IngestResult struct {
	Bucket       string   `json:"bucket"`
	Key          string   `json:"key"`
	MetadataKeys []string `json:"metadataKeys"`
}

// JobRun is the orchestrator's view of a single job run.
type JobRun struct {
	ID           string            `json:"id"`
	JobName      string            `json:"jobName"`
	State        string            `json:"state"`
	StartedOn    *time.Time        `json:"startedOn,omitempty"`
	CompletedOn  *time.Time        `json:"completedOn,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Arguments    map[string]string `json:"arguments,omitempty"`
}

// PipelineRequest is the body of the upload and run API calls.
type PipelineRequest struct {
	Bucket       string            `json:"bucket,omitempty"`
	Key          string            `json:"key"`
	Content      string            `json:"content"`
	ContentType  string            `json:"contentType,omitempty"`
	OutputBucket string            `json:"outputBucket,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type PipelineResponse struct {
	Bucket          string  `json:"bucket"`
	Key             string  `json:"key"`
	LambdaRequestID *string `json:"lambdaRequestId"`
	Message         string  `json:"message"`
}
