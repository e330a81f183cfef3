package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	method, path, query, contentType, body string
}

func echoHandler(s *seen) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*s = seen{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type"), string(b)}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true}`)
	})
}

func TestHandleRequest_ForwardsToRouter(t *testing.T) {
	var s seen
	lc := LambdaContext{handler: echoHandler(&s)}

	resp, err := lc.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		Path:                  "/etl/run",
		Headers:               map[string]string{"content-type": "application/json"},
		QueryStringParameters: map[string]string{"dry": "1"},
		Body:                  base64.StdEncoding.EncodeToString([]byte(`{"key":"k","content":""}`)),
		IsBase64Encoded:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, resp.Body)
	headers := http.Header(resp.MultiValueHeaders)
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "*", headers.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	assert.Equal(t, seen{http.MethodPost, "/etl/run", "dry=1", "application/json", `{"key":"k","content":""}`}, s)
}

func TestHandleRequest_Options(t *testing.T) {
	lc := LambdaContext{handler: http.NotFoundHandler()}
	resp, err := lc.HandleRequest(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "OPTIONS", Path: "/etl/run"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Headers["Access-Control-Allow-Methods"], "POST")
}

func TestHandleRequest_BadBase64(t *testing.T) {
	lc := LambdaContext{handler: http.NotFoundHandler()}
	resp, err := lc.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/etl/upload",
		Body:            "!!!",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Body, "error")
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandleRequest_MultiValueQuery(t *testing.T) {
	var s seen
	lc := LambdaContext{handler: echoHandler(&s)}

	_, err := lc.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:                      http.MethodGet,
		Path:                            "/etl/runs/jr_1",
		MultiValueQueryStringParameters: map[string][]string{"tag": {"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, s.method)
	assert.Equal(t, "/etl/runs/jr_1", s.path)
	assert.ElementsMatch(t, []string{"tag=a", "tag=b"}, strings.Split(s.query, "&"))
}
