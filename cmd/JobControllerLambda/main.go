package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/glue"
	awslambda "github.com/aws/aws-sdk-go/service/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"

	"example.com/recordetl/internal/api"
	"example.com/recordetl/internal/cloud"
	"example.com/recordetl/internal/config"
	"example.com/recordetl/internal/database"
	"example.com/recordetl/internal/logger"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "POST, GET, OPTIONS",
	"Access-Control-Allow-Headers": "Accept, Content-Type, Content-Length, Accept-Encoding",
}

func optionsResponse() events.APIGatewayProxyResponse {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range corsHeaders {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}
}

type LambdaContext struct {
	handler  http.Handler
	accessor core.RequestAccessor
}

// HandleRequest serves an API Gateway proxy event through the ETL API router.
func (lc LambdaContext) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if strings.EqualFold(req.HTTPMethod, http.MethodOptions) {
		return optionsResponse(), nil
	}
	w := core.NewProxyResponseWriter()
	r, err := lc.accessor.EventToRequestWithContext(ctx, req)
	if err != nil {
		api.WriteError(w, fmt.Errorf("%w: %v", api.ErrValidation, err))
	} else {
		lc.handler.ServeHTTP(w, r)
	}
	resp, err := w.GetProxyResponse()
	if err != nil {
		return resp, err
	}
	origin := corsHeaders["Access-Control-Allow-Origin"]
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["Access-Control-Allow-Origin"] = origin
	if resp.MultiValueHeaders != nil {
		resp.MultiValueHeaders["Access-Control-Allow-Origin"] = []string{origin}
	}
	return resp, nil
}

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	sess, err := cloud.NewSession(cfg.AWS.Region)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Unable to create AWS session")
	}
	srv := api.NewServer(
		cloud.NewIngestInvoker(awslambda.New(sess), cfg.AWS.IngestLambdaFunctionName),
		cloud.NewJobRunner(glue.New(sess), cfg.AWS.GlueJobName),
		database.NewLedger(dynamodb.New(sess), cfg.AWS.TableName),
		api.Options{
			DefaultBucket:      cfg.AWS.SourceBucket,
			DefaultContentType: cfg.AWS.DefaultContentType,
			Logger:             logger.Log,
		},
	)

	lambdaContext := LambdaContext{handler: srv.Handler()}
	lambda.Start(lambdaContext.HandleRequest)
}
