// Command tessera-reconciler is an AWS Lambda function attached to the
// streams of DynamoDB primary tables. It removes by-field projections left
// behind by concurrent writers.
//
// Entities are read from TESSERA_ENTITIES; table names carry
// TESSERA_TABLE_PREFIX.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/tessera/dynamo"
	"github.com/jacentio/tessera/internal/config"
	"github.com/jacentio/tessera/store"
	"github.com/jacentio/tessera/stream"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := cfg.NewLogger(os.Stdout, true)
	slog.SetDefault(logger)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load aws config", "error", err)
		os.Exit(1)
	}

	handler, err := newHandler(cfg, dynamodb.NewFromConfig(awsCfg), logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	lambda.Start(handler.HandleProjectionRepair)
}

// newHandler wires a stream handler over one store per configured entity.
func newHandler(cfg config.Config, client dynamo.API, logger *slog.Logger) (*stream.Handler, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	entities := reg.Entities()

	sess := dynamo.New(client, dynamo.Config{
		TablePrefix: cfg.TablePrefix,
		Logger:      logger,
	}, entities...)

	stores := make([]*store.Store, len(entities))
	for i, e := range entities {
		st, err := store.New(sess, e, cfg.StoreConfig(logger))
		if err != nil {
			return nil, err
		}
		stores[i] = st
	}

	logger.Info("reconciler ready",
		"entities", len(entities),
		"tablePrefix", cfg.TablePrefix,
		"consistency", cfg.Consistency.String(),
	)
	return stream.NewHandler(sess, stores, stream.Config{
		Consistency: cfg.Consistency,
		Logger:      logger,
	}), nil
}
