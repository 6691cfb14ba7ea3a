// movie-processor drains ingest payloads from an SQS queue and forwards
// them to the ingest HTTP service.
package main

import (
	"context"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/dannyrandall/movie-ingest/internal/config"
	"github.com/dannyrandall/movie-ingest/internal/otel"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelotel "go.opentelemetry.io/otel"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadProcessor()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	svcName := config.ServiceName("movie-processor")
	if err := otel.SetupTracer(context.Background(), svcName); err != nil {
		logger.Fatal().Err(err).Msg("setup otel tracer")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("load aws config")
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	q := &MovieQueue{
		SQS:       sqs.NewFromConfig(awsCfg),
		HTTP:      otelhttp.DefaultClient,
		Tracer:    otelotel.Tracer(""),
		Log:       logger,
		QueueName: cfg.QueueName,
		IngestURL: cfg.IngestURL,
	}

	if err := q.ResolveQueueURL(context.Background()); err != nil {
		logger.Fatal().Err(err).Str("queue", cfg.QueueName).Msg("resolve queue url")
	}

	logger.Info().Str("queue_url", q.QueueURL).Msg("waiting for events")

	if err := q.ReceiveAndProcess(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("receive and process")
	}
}
