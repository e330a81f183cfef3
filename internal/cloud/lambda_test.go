package cloud

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client/metadata"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/recordetl/internal/types"
)

type fakeLambda struct {
	lambdaiface.LambdaAPI

	input    *lambda.InvokeInput
	response *lambda.InvokeOutput
}

func (f *fakeLambda) InvokeRequest(in *lambda.InvokeInput) (*request.Request, *lambda.InvokeOutput) {
	f.input = in
	out := &lambda.InvokeOutput{}
	handlers := request.Handlers{}
	handlers.Send.PushBack(func(r *request.Request) {
		r.RequestID = "req-123"
		*out = *f.response
	})
	req := request.New(aws.Config{}, metadata.ClientInfo{}, handlers, nil, &request.Operation{Name: "Invoke"}, in, out)
	return req, out
}

func TestIngestInvoker_Invoke(t *testing.T) {
	result, _ := json.Marshal(types.IngestResult{Bucket: "landing", Key: "k", MetadataKeys: []string{"pipeline-output-bucket"}})
	svc := &fakeLambda{response: &lambda.InvokeOutput{StatusCode: aws.Int64(200), Payload: result}}

	inv, err := NewIngestInvoker(svc, "etl-ingest").Invoke(context.Background(), types.IngestEvent{Key: "k", Content: "{}", OutputBucket: "curated"})
	require.NoError(t, err)
	assert.Equal(t, "req-123", inv.RequestID)
	assert.Equal(t, "landing", inv.Result.Bucket)

	assert.Equal(t, "etl-ingest", aws.StringValue(svc.input.FunctionName))
	assert.Equal(t, lambda.InvocationTypeRequestResponse, aws.StringValue(svc.input.InvocationType))
	var sent types.IngestEvent
	require.NoError(t, json.Unmarshal(svc.input.Payload, &sent))
	assert.Equal(t, "curated", sent.OutputBucket)
}

func TestIngestInvoker_FunctionError(t *testing.T) {
	svc := &fakeLambda{response: &lambda.InvokeOutput{
		StatusCode:    aws.Int64(200),
		FunctionError: aws.String("Unhandled"),
		Payload:       []byte(`{"errorMessage":"missing object key"}`),
	}}
	_, err := NewIngestInvoker(svc, "etl-ingest").Invoke(context.Background(), types.IngestEvent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing object key")
}
