package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"example.com/recordetl/internal/cloud"
	"example.com/recordetl/internal/config"
	"example.com/recordetl/internal/ingest"
	"example.com/recordetl/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	sess, err := cloud.NewSession(cfg.AWS.Region)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Unable to create AWS session")
	}
	store, err := cloud.NewStore(cfg, sess)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Unable to create object store")
	}

	handler := ingest.NewHandler(store, cfg.AWS.SourceBucket, cfg.AWS.DefaultContentType)
	lambda.Start(handler.Handle)
}
