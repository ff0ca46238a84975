package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Sergey0107/verification-products/internal/bootstrap"
	"github.com/Sergey0107/verification-products/internal/queue"
	"github.com/Sergey0107/verification-products/internal/shared/config"
	"github.com/Sergey0107/verification-products/internal/shared/metrics"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
	"github.com/Sergey0107/verification-products/internal/workerproc"
)

type visibilityAPI interface {
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

type runtime struct {
	dispatcher *workerproc.Dispatcher
	sqs        visibilityAPI
	queueURL   string
}

var (
	initOnce sync.Once
	initErr  error
	rt       *runtime
)

func initRuntime(ctx context.Context) {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	telemetry.SetLevel(cfg.LogLevel)
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		initErr = err
		return
	}
	r := &runtime{dispatcher: app.Dispatcher, queueURL: cfg.SQSQueueURL}
	if cfg.SQSQueueURL != "" {
		client, err := queue.NewSQSAPI(ctx, cfg.SQSRegion, cfg.SQSEndpointURL)
		if err != nil {
			initErr = err
			return
		}
		r.sqs = client
	}
	rt = r
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(func() { initRuntime(context.WithoutCancel(ctx)) })
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return rt.handle(ctx, event), nil
}

// handle reports every message that should be redelivered as a batch item failure.
func (r *runtime) handle(ctx context.Context, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		decoded, err := workerproc.HandleMessage(ctx, r.dispatcher, record.Body)
		decision := workerproc.Decide(err)
		fields := map[string]any{
			"sqs_message_id": record.MessageId,
			"kind":           decoded.Kind,
			"job_id":         decoded.JobID,
			"analysis_id":    decoded.AnalysisID,
		}
		if err != nil {
			fields["error"] = err.Error()
		}

		switch decision.Action {
		case workerproc.ActionDelete:
			if decision.Unrecoverable {
				metrics.IncJobDeletedUnrecoverable()
				telemetry.Error("lambda.message.unrecoverable", fields)
			}
		case workerproc.ActionRetry:
			fields["backoff_ms"] = decision.Backoff.Milliseconds()
			telemetry.Warn("lambda.message.retry", fields)
			r.delay(ctx, record, decision.Backoff)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		default:
			telemetry.Error("lambda.message.failed", fields)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func (r *runtime) delay(ctx context.Context, record events.SQSMessage, backoff time.Duration) {
	if r.sqs == nil || r.queueURL == "" || record.ReceiptHandle == "" {
		return
	}
	if _, err := r.sqs.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(r.queueURL),
		ReceiptHandle:     aws.String(record.ReceiptHandle),
		VisibilityTimeout: int32(backoff / time.Second),
	}); err != nil {
		telemetry.Error("lambda.visibility_failed", map[string]any{
			"sqs_message_id": record.MessageId,
			"error":          err.Error(),
		})
	}
}

func main() {
	lambda.Start(handler)
}
