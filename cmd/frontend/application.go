package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/glue"
	"github.com/aws/aws-sdk-go/service/lambda"

	"example.com/recordetl/internal/api"
	"example.com/recordetl/internal/cloud"
	"example.com/recordetl/internal/config"
	"example.com/recordetl/internal/database"
	"example.com/recordetl/internal/logger"
	"example.com/recordetl/internal/telemetry"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	sess, err := cloud.NewSession(cfg.AWS.Region)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Unable to create AWS session")
	}
	logger.Log.Info().Msgf("Source Bucket: %s", cfg.AWS.SourceBucket)
	logger.Log.Info().Msgf("Run Table: %s", cfg.AWS.TableName)

	srv := api.NewServer(
		cloud.NewIngestInvoker(lambda.New(sess), cfg.AWS.IngestLambdaFunctionName),
		cloud.NewJobRunner(glue.New(sess), cfg.AWS.GlueJobName),
		database.NewLedger(dynamodb.New(sess), cfg.AWS.TableName),
		api.Options{
			DefaultBucket:      cfg.AWS.SourceBucket,
			DefaultContentType: cfg.AWS.DefaultContentType,
			Metrics:            telemetry.NewMetrics(),
			Logger:             logger.Log,
		},
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Log.Info().Msgf("Listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatal().Err(err).Msg("Server failed")
	}
}
