package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"

	"example.com/recordetl/internal/types"
)

type IngestInvocation struct {
	RequestID string
	Result    types.IngestResult
}

// IngestInvoker calls the ingest Lambda synchronously.
type IngestInvoker struct {
	svc          lambdaiface.LambdaAPI
	functionName string
}

func NewIngestInvoker(svc lambdaiface.LambdaAPI, functionName string) *IngestInvoker {
	return &IngestInvoker{svc: svc, functionName: functionName}
}

func (i *IngestInvoker) FunctionName() string { return i.functionName }

func (i *IngestInvoker) Invoke(ctx context.Context, event types.IngestEvent) (IngestInvocation, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return IngestInvocation{}, err
	}
	req, out := i.svc.InvokeRequest(&lambda.InvokeInput{
		FunctionName:   aws.String(i.functionName),
		InvocationType: aws.String(lambda.InvocationTypeRequestResponse),
		Payload:        payload,
	})
	req.SetContext(ctx)
	if err := req.Send(); err != nil {
		return IngestInvocation{}, fmt.Errorf("invoke %s: %w", i.functionName, err)
	}

	inv := IngestInvocation{RequestID: req.RequestID}
	if out.FunctionError != nil {
		return inv, fmt.Errorf("invoke %s: %s: %s", i.functionName, aws.StringValue(out.FunctionError), string(out.Payload))
	}
	if len(out.Payload) > 0 {
		if err := json.Unmarshal(out.Payload, &inv.Result); err != nil {
			return inv, fmt.Errorf("invoke %s: decode result: %w", i.functionName, err)
		}
	}
	return inv, nil
}
