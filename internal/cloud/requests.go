package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"

	"example.com/recordetl/internal/types"
)

const APITimeout = 30 * time.Second

// APIError is the {"error": "..."} body the ETL API writes for a failed call.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// APIClient calls the ETL HTTP API. Paths are resolved relative to the base
// URL, so a stage prefix such as https://host/prod is kept.
type APIClient struct {
	base   string
	client *http.Client
}

func NewAPIClient(base string, client *http.Client) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: APITimeout}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &APIClient{base: base, client: client}
}

func (c *APIClient) builder(path string) *requests.Builder {
	return requests.URL(c.base).Path(path).Client(c.client)
}

// fetch runs the request and, when the API answered with an error body,
// returns that message as an *APIError wrapping the transport error.
func fetch(ctx context.Context, b *requests.Builder) error {
	apiErr := &APIError{}
	err := b.AddValidator(requests.ErrorJSON(apiErr)).Fetch(ctx)
	if err == nil {
		return nil
	}
	if apiErr.Message == "" {
		return err
	}
	if respErr := new(requests.ResponseError); errors.As(err, &respErr) {
		apiErr.Status = respErr.StatusCode
	}
	return fmt.Errorf("%w: %w", apiErr, err)
}

func runPath(prefix, id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.Contains(id, "/") {
		return "", fmt.Errorf("invalid job run id %q", id)
	}
	return prefix + id, nil
}

func (c *APIClient) Upload(ctx context.Context, req types.PipelineRequest) (types.PipelineResponse, error) {
	var resp types.PipelineResponse
	err := fetch(ctx, c.builder("etl/upload").BodyJSON(&req).ToJSON(&resp))
	return resp, err
}

func (c *APIClient) Run(ctx context.Context, req types.PipelineRequest) (types.PipelineResponse, error) {
	var resp types.PipelineResponse
	err := fetch(ctx, c.builder("etl/run").BodyJSON(&req).ToJSON(&resp))
	return resp, err
}

func (c *APIClient) JobRun(ctx context.Context, id string) (types.JobRun, error) {
	var run types.JobRun
	path, err := runPath("etl/jobs/", id)
	if err != nil {
		return run, err
	}
	err = fetch(ctx, c.builder(path).ToJSON(&run))
	return run, err
}

func (c *APIClient) RunRecord(ctx context.Context, id string) (types.RunRecord, error) {
	var rec types.RunRecord
	path, err := runPath("etl/runs/", id)
	if err != nil {
		return rec, err
	}
	err = fetch(ctx, c.builder(path).ToJSON(&rec))
	return rec, err
}
