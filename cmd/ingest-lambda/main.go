// ingest-lambda is the API Gateway request handler. One invocation parses
// an optional JSON payload and writes one movie to the DynamoDB table.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/dannyrandall/movie-ingest/internal/config"
	"github.com/dannyrandall/movie-ingest/internal/handlers"
	"github.com/dannyrandall/movie-ingest/internal/moviestore"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadLambda()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger.Info().Str("table", cfg.TableName).Msg("using DynamoDB movies table")

	// Timeout for setup; invocations get their own deadlines from the
	// runtime.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load aws config")
	}
	awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)

	h := &handlers.Ingest{
		Store: moviestore.New(dynamodb.NewFromConfig(awsCfg), cfg.TableName),
		Log:   logger,
	}

	lambda.Start(h.Handle)
}
