// Package handlers holds the API Gateway-facing Lambda handler.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/dannyrandall/movie-ingest/internal/movies"
	"github.com/dannyrandall/movie-ingest/internal/moviestore"
	"github.com/rs/zerolog"
)

// SuccessMessage is the only body the ingest path returns. Parse and
// storage failures surface as invocation errors, not as responses.
const SuccessMessage = "Successfully inserted data!"

type Ingest struct {
	Store *moviestore.Store
	Log   zerolog.Logger
}

// Handle processes one API Gateway event. A non-empty body is parsed into a
// movie and written; an empty body writes the default record under a fresh
// id. Exactly one PutItem happens per invocation.
func (h *Ingest) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	reqID := requestID(ctx)

	h.Log.Info().
		Str("event_type", "api_request").
		Str("request_id", reqID).
		Str("source_ip", req.RequestContext.Identity.SourceIP).
		Str("user_agent", req.RequestContext.Identity.UserAgent).
		Str("method", req.HTTPMethod).
		Str("path", req.Path).
		Str("resource", req.Resource).
		Str("stage", req.RequestContext.Stage).
		Msg("handling api request")

	var (
		movie     movies.Movie
		defaulted bool
	)
	if req.Body != "" {
		err := xray.Capture(ctx, "process_request_body", func(ctx context.Context) error {
			m, err := movies.FromJSON([]byte(req.Body))
			movie = m
			return err
		})
		if err != nil {
			return events.APIGatewayProxyResponse{}, fmt.Errorf("process request body: %w", err)
		}
	} else {
		h.Log.Info().Str("request_id", reqID).Msg("received request without a payload")
		movie = movies.Default()
		defaulted = true
	}

	err := xray.Capture(ctx, "dynamodb_put_item", func(ctx context.Context) error {
		return h.Store.Put(ctx, movie)
	})
	h.logOperation(reqID, movie.ID, defaulted, err)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("put movie %q: %w", movie.ID, err)
	}

	body, err := json.Marshal(struct {
		Message string `json:"message"`
	}{Message: SuccessMessage})
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("encode response: %w", err)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func (h *Ingest) logOperation(reqID, itemID string, defaulted bool, err error) {
	e := h.Log.Info()
	status := "success"
	if err != nil {
		e = h.Log.Error().Err(err)
		status = "failure"
	}

	e = e.
		Str("event_type", "data_operation").
		Str("operation", "put_item").
		Str("table", h.Store.Table).
		Str("item_id", itemID).
		Str("request_id", reqID).
		Str("status", status)
	if defaulted {
		e = e.Str("note", "default_payload_used")
	}
	e.Msg("put item")
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return ""
}
