package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/dannyrandall/movie-ingest/internal/movies"
	"github.com/dannyrandall/movie-ingest/internal/moviestore"
	"github.com/rs/zerolog"
)

// fakeDynamo records puts keyed by id, mirroring the table's upsert
// semantics.
type fakeDynamo struct {
	mu    sync.Mutex
	err   error
	puts  int
	items map[string]map[string]types.AttributeValue
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	id, ok := params.Item["id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("item has no string id")
	}

	if f.items == nil {
		f.items = make(map[string]map[string]types.AttributeValue)
	}
	f.items[id.Value] = params.Item
	f.puts++
	return &dynamodb.PutItemOutput{}, nil
}

func newIngest(fake *fakeDynamo) *Ingest {
	return &Ingest{
		Store: moviestore.New(fake, "demo_table"),
		Log:   zerolog.Nop(),
	}
}

// testContext carries an x-ray segment and a request id, like a real
// invocation does.
func testContext(t *testing.T, reqID string) context.Context {
	t.Helper()

	ctx, seg := xray.BeginSegment(context.Background(), "test")
	t.Cleanup(func() { seg.Close(nil) })

	return lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{AwsRequestID: reqID})
}

func TestHandle(t *testing.T) {
	fake := &fakeDynamo{}
	h := newIngest(fake)

	resp, err := h.Handle(testContext(t, "req-1"), events.APIGatewayProxyRequest{
		HTTPMethod: "POST",
		Path:       "/",
		Body:       `{"year":1999,"title":"The Matrix","id":"matrix"}`,
	})
	if err != nil {
		t.Fatalf("Handle: %s", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("got status=%d, want=200", resp.StatusCode)
	}
	if got := resp.Headers["Content-Type"]; got != "application/json" {
		t.Errorf("got content type=%q, want=%q", got, "application/json")
	}
	if want := `{"message":"Successfully inserted data!"}`; resp.Body != want {
		t.Errorf("got body=%q, want=%q", resp.Body, want)
	}

	if fake.puts != 1 {
		t.Fatalf("got %d puts, want 1", fake.puts)
	}

	item := fake.items["matrix"]
	if item == nil {
		t.Fatal("no item stored under id \"matrix\"")
	}
	year, ok := item["year"].(*types.AttributeValueMemberN)
	if !ok || year.Value != "1999" {
		t.Errorf("got year=%#v, want N %q", item["year"], "1999")
	}
}

func TestHandleEmptyBody(t *testing.T) {
	fake := &fakeDynamo{}
	h := newIngest(fake)

	resp, err := h.Handle(testContext(t, "req-2"), events.APIGatewayProxyRequest{
		HTTPMethod: "POST",
		Path:       "/",
	})
	if err != nil {
		t.Fatalf("Handle: %s", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("got status=%d, want=200", resp.StatusCode)
	}
	if want := `{"message":"Successfully inserted data!"}`; resp.Body != want {
		t.Errorf("got body=%q, want=%q", resp.Body, want)
	}

	if fake.puts != 1 {
		t.Fatalf("got %d puts, want 1", fake.puts)
	}

	for id, item := range fake.items {
		if id == "" {
			t.Error("got empty generated id")
		}
		title, ok := item["title"].(*types.AttributeValueMemberS)
		if !ok || title.Value != "The Amazing Spider-Man 2" {
			t.Errorf("got title=%#v, want S %q", item["title"], "The Amazing Spider-Man 2")
		}
		year, ok := item["year"].(*types.AttributeValueMemberN)
		if !ok || year.Value != "2012" {
			t.Errorf("got year=%#v, want N %q", item["year"], "2012")
		}
	}
}

func TestHandleInvalidBody(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantValidation bool
	}{
		{name: "not json", body: "not json", wantValidation: false},
		{name: "missing title", body: `{"year":1999,"id":"x"}`, wantValidation: true},
		{name: "missing year", body: `{"title":"The Matrix","id":"x"}`, wantValidation: true},
		{name: "missing id", body: `{"year":1999,"title":"The Matrix"}`, wantValidation: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDynamo{}
			h := newIngest(fake)

			_, err := h.Handle(testContext(t, "req-3"), events.APIGatewayProxyRequest{Body: tt.body})
			if err == nil {
				t.Fatal("got nil error, want invocation failure")
			}

			var verr *movies.ValidationError
			if got := errors.As(err, &verr); got != tt.wantValidation {
				t.Errorf("errors.As ValidationError: got=%v, want=%v (err=%v)", got, tt.wantValidation, err)
			}

			if fake.puts != 0 {
				t.Errorf("got %d puts, want 0", fake.puts)
			}
		})
	}
}

func TestHandlePutFailure(t *testing.T) {
	errBoom := errors.New("boom")
	h := newIngest(&fakeDynamo{err: errBoom})

	_, err := h.Handle(testContext(t, "req-4"), events.APIGatewayProxyRequest{
		Body: `{"year":1999,"title":"The Matrix","id":"matrix"}`,
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("got err=%v, want wrapped %v", err, errBoom)
	}
}

func TestHandleUpsert(t *testing.T) {
	fake := &fakeDynamo{}
	h := newIngest(fake)

	for _, title := range []string{"first", "second"} {
		body := fmt.Sprintf(`{"year":2000,"title":%q,"id":"same"}`, title)
		if _, err := h.Handle(testContext(t, "req-5"), events.APIGatewayProxyRequest{Body: body}); err != nil {
			t.Fatalf("Handle(%s): %s", body, err)
		}
	}

	if fake.puts != 2 {
		t.Fatalf("got %d puts, want 2", fake.puts)
	}
	if len(fake.items) != 1 {
		t.Fatalf("got %d distinct items, want 1", len(fake.items))
	}

	title, ok := fake.items["same"]["title"].(*types.AttributeValueMemberS)
	if !ok || title.Value != "second" {
		t.Errorf("got title=%#v, want the second write to win", fake.items["same"]["title"])
	}
}

func TestHandleConcurrent(t *testing.T) {
	fake := &fakeDynamo{}
	h := newIngest(fake)

	const n = 16

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			ctx, seg := xray.BeginSegment(context.Background(), "test")
			defer seg.Close(nil)

			body := fmt.Sprintf(`{"year":%d,"title":"movie-%d","id":"id-%d"}`, 2000+i, i, i)
			_, err := h.Handle(ctx, events.APIGatewayProxyRequest{Body: body})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Handle: %s", err)
		}
	}

	if fake.puts != n {
		t.Fatalf("got %d puts, want %d", fake.puts, n)
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("id-%d", i)
		item := fake.items[id]
		if item == nil {
			t.Fatalf("no item stored under id %q", id)
		}
		title, ok := item["title"].(*types.AttributeValueMemberS)
		if !ok || !strings.HasSuffix(title.Value, fmt.Sprintf("-%d", i)) {
			t.Errorf("item %q has title %#v", id, item["title"])
		}
	}
}
