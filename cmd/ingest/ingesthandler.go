package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dannyrandall/movie-ingest/internal/handlers"
	"github.com/dannyrandall/movie-ingest/internal/movies"
	"github.com/dannyrandall/movie-ingest/internal/moviestore"
	"github.com/dannyrandall/movie-ingest/internal/otel"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type IngestHandler struct {
	Store *moviestore.Store
	Log   zerolog.Logger
}

// ServeHTTP applies the same semantics as the Lambda handler: an empty POST
// body writes the default record, anything else must parse as a movie
// payload. Failures surface as 500s, the HTTP analog of a failed
// invocation; the only handler-produced success status is 200.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	span := trace.SpanFromContext(r.Context())
	log := h.Log.With().Str("trace_id", otel.XRayTraceID(span)).Logger()

	log.Info().
		Str("event_type", "api_request").
		Str("source_ip", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("handling api request")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpError(w, http.StatusInternalServerError, log, "read body: %s", err)
		return
	}

	var (
		movie     movies.Movie
		defaulted bool
	)
	if len(body) > 0 {
		movie, err = movies.FromJSON(body)
		if err != nil {
			httpError(w, http.StatusInternalServerError, log, "process request body: %s", err)
			return
		}
	} else {
		log.Info().Msg("received request without a payload")
		movie = movies.Default()
		defaulted = true
	}

	err = h.Store.Put(ctx, movie)
	logOperation(log, h.Store.Table, movie.ID, defaulted, err)
	if err != nil {
		httpError(w, http.StatusInternalServerError, log, "put movie %q: %s", movie.ID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"message": handlers.SuccessMessage}); err != nil {
		log.Error().Err(err).Str("item_id", movie.ID).Msg("encoding response")
	}
}

func logOperation(log zerolog.Logger, table, itemID string, defaulted bool, err error) {
	e := log.Info()
	status := "success"
	if err != nil {
		e = log.Error().Err(err)
		status = "failure"
	}

	e = e.
		Str("event_type", "data_operation").
		Str("operation", "put_item").
		Str("table", table).
		Str("item_id", itemID).
		Str("status", status)
	if defaulted {
		e = e.Str("note", "default_payload_used")
	}
	e.Msg("put item")
}

func httpError(w http.ResponseWriter, code int, log zerolog.Logger, format string, a ...any) {
	str := fmt.Sprintf(format, a...)
	http.Error(w, str, code)
	log.Error().Msgf("returning error: %s", str)
}
