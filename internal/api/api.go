// Package api serves the ETL HTTP API: uploads go to the ingest Lambda, run
// state comes from Glue and the run ledger.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/urfave/negroni"

	"example.com/recordetl/internal/cloud"
	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/telemetry"
	"example.com/recordetl/internal/types"
)

const (
	UploadMessage = "Object upload scheduled via Lambda. Downstream processing will continue automatically."
	RunMessage    = "Pipeline triggered asynchronously. Monitor the Glue-triggering Lambda for job run details."

	maxBodyBytes = 10 << 20
)

var ErrValidation = errors.New("validation failed")

type Ingester interface {
	Invoke(ctx context.Context, event types.IngestEvent) (cloud.IngestInvocation, error)
	FunctionName() string
}

type JobReader interface {
	Get(ctx context.Context, runID string) (*types.JobRun, error)
}

type RunReader interface {
	GetRecord(ctx context.Context, jobRunID string) (types.RunRecord, error)
}

type Server struct {
	ingest             Ingester
	jobs               JobReader
	runs               RunReader
	defaultBucket      string
	defaultContentType string
	metrics            *telemetry.Metrics
	log                zerolog.Logger
}

type Options struct {
	DefaultBucket      string
	DefaultContentType string
	Metrics            *telemetry.Metrics
	Logger             zerolog.Logger
}

func NewServer(ingest Ingester, jobs JobReader, runs RunReader, opts Options) *Server {
	if opts.DefaultContentType == "" {
		opts.DefaultContentType = etl.JSONContentType
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewMetrics()
	}
	return &Server{
		ingest:             ingest,
		jobs:               jobs,
		runs:               runs,
		defaultBucket:      opts.DefaultBucket,
		defaultContentType: opts.DefaultContentType,
		metrics:            opts.Metrics,
		log:                opts.Logger,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metrics.Middleware)
	// Router.Use only wraps matched routes; count misses too.
	r.NotFoundHandler = s.metrics.Middleware(statusHandler(http.StatusNotFound))
	r.MethodNotAllowedHandler = s.metrics.Middleware(statusHandler(http.StatusMethodNotAllowed))
	r.HandleFunc("/ping", s.PingHandler).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	sr := r.PathPrefix("/etl").Subrouter()
	sr.HandleFunc("/upload", s.UploadHandler).Methods(http.MethodPost)
	sr.HandleFunc("/run", s.RunHandler).Methods(http.MethodPost)
	sr.HandleFunc("/jobs/{jobRunId}", s.GetJobRunHandler).Methods(http.MethodGet)
	sr.HandleFunc("/runs/{jobRunId}", s.GetRunRecordHandler).Methods(http.MethodGet)
	return r
}

func statusHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, status, map[string]string{"error": strings.ToLower(http.StatusText(status))})
	})
}

// Handler is the router behind panic recovery and an access log.
func (s *Server) Handler() http.Handler {
	recovery := negroni.NewRecovery()
	recovery.PrintStack = false
	recovery.Logger = recoveryLogger{s.log}

	n := negroni.New(recovery, negroni.HandlerFunc(s.accessLog))
	n.UseHandler(s.Router())
	return n
}

// recoveryLogger lets negroni's recovery middleware log through zerolog.
type recoveryLogger struct {
	zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.Error().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l recoveryLogger) Printf(format string, v ...interface{}) {
	l.Error().Msgf(format, v...)
}

func (s *Server) accessLog(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(w, r)
	rw := w.(negroni.ResponseWriter)
	s.log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rw.Status()).
		Int("size", rw.Size()).
		Dur("duration", time.Since(start)).
		Msg("request")
}

func (s *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	WriteResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) UploadHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodePipelineRequest(w, r)
	if err != nil {
		WriteError(w, err)
		return
	}
	// Uploads never choose the output bucket.
	req.OutputBucket = ""
	resp, err := s.triggerIngest(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	s.log.Info().Msgf("Upload queued via ingest lambda %s for s3://%s/%s", s.ingest.FunctionName(), resp.Bucket, resp.Key)
	resp.Message = UploadMessage
	WriteResponse(w, http.StatusCreated, resp)
}

func (s *Server) RunHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodePipelineRequest(w, r)
	if err != nil {
		WriteError(w, err)
		return
	}
	resp, err := s.triggerIngest(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	s.log.Info().Msgf("Pipeline triggered via ingest lambda %s for s3://%s/%s", s.ingest.FunctionName(), resp.Bucket, resp.Key)
	resp.Message = RunMessage
	WriteResponse(w, http.StatusCreated, resp)
}

func (s *Server) GetJobRunHandler(w http.ResponseWriter, r *http.Request) {
	run, err := s.jobs.Get(r.Context(), mux.Vars(r)["jobRunId"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteResponse(w, http.StatusOK, run)
}

func (s *Server) GetRunRecordHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runs.GetRecord(r.Context(), mux.Vars(r)["jobRunId"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteResponse(w, http.StatusOK, rec)
}

func (s *Server) triggerIngest(ctx context.Context, req types.PipelineRequest) (types.PipelineResponse, error) {
	event := types.IngestEvent{
		Bucket:       req.Bucket,
		Key:          req.Key,
		Content:      req.Content,
		ContentType:  req.ContentType,
		Metadata:     req.Metadata,
		OutputBucket: req.OutputBucket,
	}
	if event.Bucket == "" {
		event.Bucket = s.defaultBucket
	}
	if event.ContentType == "" {
		event.ContentType = s.defaultContentType
	}

	inv, err := s.ingest.Invoke(ctx, event)
	if err != nil {
		s.metrics.IngestInvokes.WithLabelValues("error").Inc()
		return types.PipelineResponse{}, err
	}
	s.metrics.IngestInvokes.WithLabelValues("ok").Inc()

	resp := types.PipelineResponse{Bucket: event.Bucket, Key: event.Key}
	if inv.RequestID != "" {
		resp.LambdaRequestID = &inv.RequestID
	}
	return resp, nil
}

// pipelineBody mirrors PipelineRequest with pointers so that absent required
// fields can be told apart from empty ones.
type pipelineBody struct {
	Bucket       *string           `json:"bucket"`
	Key          *string           `json:"key"`
	Content      *string           `json:"content"`
	ContentType  *string           `json:"contentType"`
	OutputBucket *string           `json:"outputBucket"`
	Metadata     map[string]string `json:"metadata"`
}

func decodePipelineRequest(w http.ResponseWriter, r *http.Request) (types.PipelineRequest, error) {
	var body pipelineBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return types.PipelineRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var problems []string
	if body.Key == nil {
		problems = append(problems, "key must be a string")
	} else if strings.TrimSpace(*body.Key) == "" {
		problems = append(problems, "key should not be empty")
	}
	if body.Content == nil {
		problems = append(problems, "content must be a string")
	}
	if len(problems) > 0 {
		return types.PipelineRequest{}, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}

	req := types.PipelineRequest{
		Key:      *body.Key,
		Content:  *body.Content,
		Metadata: body.Metadata,
	}
	if body.Bucket != nil {
		req.Bucket = *body.Bucket
	}
	if body.ContentType != nil {
		req.ContentType = *body.ContentType
	}
	if body.OutputBucket != nil {
		req.OutputBucket = *body.OutputBucket
	}
	return req, nil
}

// StatusFor maps an error to the HTTP status reported for it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, etl.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, etl.ErrAccess):
		return http.StatusForbidden
	case errors.Is(err, etl.ErrParse), errors.Is(err, etl.ErrConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func WriteError(w http.ResponseWriter, err error) {
	WriteResponse(w, StatusFor(err), map[string]string{"error": err.Error()})
}

func WriteResponse(w http.ResponseWriter, status int, body interface{}) {
	jbody, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		jbody = []byte(`{"error":"unable to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jbody)
}
