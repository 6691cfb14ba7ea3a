// ingest serves the same movie-ingest flow as a long-lived HTTP service,
// for local runs and container deploys where API Gateway isn't fronting
// the handler.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dannyrandall/movie-ingest/internal/config"
	"github.com/dannyrandall/movie-ingest/internal/moviestore"
	"github.com/dannyrandall/movie-ingest/internal/otel"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadServer()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger.Info().Str("table", cfg.TableName).Msg("using DynamoDB movies table")

	// Timeout for setup functions
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	svcName := config.ServiceName("movie-ingest")
	if err := otel.SetupTracer(ctx, svcName); err != nil {
		logger.Fatal().Err(err).Msg("setup otel tracer")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load aws config")
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})

	mux.Handle("/movies/api/ingest", otelhttp.NewHandler(&IngestHandler{
		Store: moviestore.New(dynamodb.NewFromConfig(awsCfg), cfg.TableName),
		Log:   logger,
	}, "ingest"))

	logger.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("error serving")
	}
}
