// Package movies defines the record written by the ingest pipeline and the
// rules for deriving one from an inbound JSON payload.
package movies

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/ksuid"
)

// Movie is the item persisted per request. Year is stored as a DynamoDB
// number; ID and Title as strings.
type Movie struct {
	ID    string `json:"id" dynamodbav:"id"`
	Title string `json:"title" dynamodbav:"title"`
	Year  int    `json:"year" dynamodbav:"year"`
}

func NewID() string {
	return ksuid.New().String()
}

// Default is the record written when a request carries no payload.
func Default() Movie {
	return Movie{
		ID:    NewID(),
		Title: "The Amazing Spider-Man 2",
		Year:  2012,
	}
}

// ValidationError reports a payload that decoded as JSON but could not be
// turned into a Movie.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid movie payload: %s: %s", e.Field, e.Reason)
}

// FromJSON builds a Movie from a JSON object containing the keys "year",
// "title" and "id". Clients send year and id as either strings or numbers;
// both are accepted and normalized. A missing or uncoercible field is a
// *ValidationError; anything that doesn't decode as a JSON object is a
// decode error.
func FromJSON(data []byte) (Movie, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return Movie{}, fmt.Errorf("decode payload: %w", err)
	}

	id, err := stringField(payload, "id")
	if err != nil {
		return Movie{}, err
	}

	title, err := titleField(payload)
	if err != nil {
		return Movie{}, err
	}

	year, err := yearField(payload)
	if err != nil {
		return Movie{}, err
	}

	return Movie{ID: id, Title: title, Year: year}, nil
}

func stringField(payload map[string]any, field string) (string, error) {
	v, ok := payload[field]
	if !ok || v == nil {
		return "", &ValidationError{Field: field, Reason: "missing"}
	}

	switch v := v.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

func titleField(payload map[string]any) (string, error) {
	v, ok := payload["title"]
	if !ok || v == nil {
		return "", &ValidationError{Field: "title", Reason: "missing"}
	}

	title, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: "title", Reason: fmt.Sprintf("expected a string, got %T", v)}
	}

	return title, nil
}

func yearField(payload map[string]any) (int, error) {
	s, err := stringField(payload, "year")
	if err != nil {
		return 0, err
	}

	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Field: "year", Reason: fmt.Sprintf("%q is not an integer", s)}
	}

	return year, nil
}
