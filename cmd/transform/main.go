// Command transform is the batch job entry point. The orchestrator starts it
// with --SOURCE_BUCKET, --SOURCE_KEY and --OUTPUT_BUCKET.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"

	"example.com/recordetl/internal/cloud"
	"example.com/recordetl/internal/config"
	"example.com/recordetl/internal/etl"
	"example.com/recordetl/internal/logger"
)

const (
	exitFailure = 1
	exitConfig  = 2
)

type StoreFunc func() (etl.ObjectStore, error)

func run(ctx context.Context, args []string, newStore StoreFunc, log zerolog.Logger) int {
	params, err := etl.ResolveJobParameters(args)
	if err != nil {
		log.Error().Err(err).Msg("Invalid job arguments")
		return exitConfig
	}
	store, err := newStore()
	if err != nil {
		log.Error().Err(err).Msg("Unable to create object store")
		if errors.Is(err, etl.ErrConfiguration) {
			return exitConfig
		}
		return exitFailure
	}
	if _, err := etl.NewPipeline(store, log).Run(ctx, params); err != nil {
		log.Error().Err(err).Msg("Transformation failed")
		return exitFailure
	}
	return 0
}

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	newStore := func() (etl.ObjectStore, error) {
		sess, err := cloud.NewSession(cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		return cloud.NewStore(cfg, sess)
	}
	os.Exit(run(context.Background(), os.Args[1:], newStore, logger.Log))
}
