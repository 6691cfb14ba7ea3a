package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

type MovieQueue struct {
	SQS    *sqs.Client
	HTTP   *http.Client
	Tracer trace.Tracer
	Log    zerolog.Logger

	IngestURL string
	QueueName string
	QueueURL  string
}

func (q *MovieQueue) ResolveQueueURL(ctx context.Context) error {
	res, err := q.SQS.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(q.QueueName),
	})
	if err != nil {
		return fmt.Errorf("get queue url: %w", err)
	}

	q.QueueURL = aws.ToString(res.QueueUrl)
	return nil
}

// ReceiveAndProcess long-polls the queue forever. Messages are forwarded
// verbatim to the ingest endpoint, which owns payload validation; a message
// that fails to forward stays on the queue for redelivery.
func (q *MovieQueue) ReceiveAndProcess(ctx context.Context) error {
	recvAndProcess := func(ctx context.Context) error {
		ctx, span := q.Tracer.Start(ctx, "recvAndProcess",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(semconv.MessagingSystemKey.String("AmazonSQS")),
			trace.WithAttributes(semconv.MessagingDestinationKey.String(q.QueueName)),
			trace.WithAttributes(semconv.MessagingDestinationKindQueue))
		defer span.End()

		msgs, err := q.receiveMessages(ctx)
		if err != nil {
			return spanErrorf(span, "receive message: %w", err)
		}

		for _, msg := range msgs {
			if err := q.processMessage(ctx, msg); err != nil {
				return spanErrorf(span, "process message %q: %w", aws.ToString(msg.MessageId), err)
			}
		}

		return nil
	}

	for {
		if err := recvAndProcess(ctx); err != nil {
			q.Log.Error().Err(err).Msg("processing queue")
		}
	}
}

func spanErrorf(span trace.Span, format string, a ...any) error {
	err := fmt.Errorf(format, a...)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (q *MovieQueue) receiveMessages(ctx context.Context) ([]types.Message, error) {
	res, err := q.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.QueueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return nil, err
	}

	return res.Messages, nil
}

func (q *MovieQueue) processMessage(ctx context.Context, msg types.Message) error {
	ctx, span := q.Tracer.Start(ctx, "processMessage", trace.WithAttributes(semconv.MessagingMessageIDKey.String(aws.ToString(msg.MessageId))))
	defer span.End()

	if err := q.forwardPayload(ctx, aws.ToString(msg.Body)); err != nil {
		return spanErrorf(span, "forward payload: %w", err)
	}

	if err := q.deleteMessage(ctx, msg.ReceiptHandle); err != nil {
		return spanErrorf(span, "delete message: %w", err)
	}

	return nil
}

func (q *MovieQueue) forwardPayload(ctx context.Context, payload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.IngestURL, strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("bad response: status code %v", resp.StatusCode)
	}

	return nil
}

func (q *MovieQueue) deleteMessage(ctx context.Context, receiptHandle *string) error {
	_, err := q.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.QueueURL),
		ReceiptHandle: receiptHandle,
	})

	return err
}
