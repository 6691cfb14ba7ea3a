// Package moviestore persists movies to a DynamoDB table keyed by id.
package moviestore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dannyrandall/movie-ingest/internal/movies"
)

// DynamoPutter is the slice of *dynamodb.Client the store needs. The
// pipeline is write-only, so PutItem is the whole surface.
type DynamoPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type Store struct {
	Dynamo DynamoPutter
	Table  string
}

func New(dynamo DynamoPutter, table string) *Store {
	return &Store{Dynamo: dynamo, Table: table}
}

// Put writes the movie unconditionally: a second write with the same id
// overwrites the first.
func (s *Store) Put(ctx context.Context, movie movies.Movie) error {
	av, err := attributevalue.MarshalMap(movie)
	if err != nil {
		return fmt.Errorf("marshal movie: %w", err)
	}

	_, err = s.Dynamo.PutItem(ctx, &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(s.Table),
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}

	return nil
}
