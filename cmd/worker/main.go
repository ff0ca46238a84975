package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/Sergey0107/verification-products/internal/bootstrap"
	"github.com/Sergey0107/verification-products/internal/queue"
	"github.com/Sergey0107/verification-products/internal/shared/config"
	"github.com/Sergey0107/verification-products/internal/shared/metrics"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
	"github.com/Sergey0107/verification-products/internal/workerproc"
)

// maxVisibilitySeconds is the SQS ceiling for ChangeMessageVisibility.
const maxVisibilitySeconds = 43200

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("worker.config", err)
	}
	telemetry.SetLevel(cfg.LogLevel)
	defer telemetry.Sync()

	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		fatal("worker.config", errors.New("SQS_QUEUE_URL is required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := queue.NewSQSAPI(ctx, cfg.SQSRegion, cfg.SQSEndpointURL)
	if err != nil {
		fatal("worker.sqs", err)
	}
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		fatal("worker.bootstrap", err)
	}
	defer app.Close()

	w := &worker{
		client:     client,
		queueURL:   cfg.SQSQueueURL,
		dispatcher: app.Dispatcher,
		visibility: cfg.SQSVisibilityTimeout,
	}
	w.run(ctx, cfg.WorkerConcurrency, cfg.ShutdownTimeout)
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

type worker struct {
	client     sqsAPI
	queueURL   string
	dispatcher *workerproc.Dispatcher
	visibility time.Duration
}

func (w *worker) run(ctx context.Context, concurrency int, shutdownTimeout time.Duration) {
	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue_url":     w.queueURL,
		"concurrency":   concurrency,
		"visibility_ms": w.visibility.Milliseconds(),
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(w.visibility / time.Second),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// In-flight jobs finish even after a shutdown signal.
				w.handleMessage(context.WithoutCancel(ctx), m)
			}(msg)
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout_ms": shutdownTimeout.Milliseconds()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

func (w *worker) handleMessage(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, err := workerproc.HandleMessage(ctx, w.dispatcher, body)
	fields := baseFields(msg, decoded)
	decision := workerproc.Decide(err)

	switch decision.Action {
	case workerproc.ActionDelete:
		if decision.Unrecoverable {
			meta := workerproc.ComputeMeta(body)
			fields["body_len"] = meta.BodyLen
			fields["body_sha256"] = meta.BodySHA
			fields["error"] = err.Error()
			telemetry.Error("worker.message.unrecoverable", fields)
			if w.deleteMessage(ctx, msg, fields) {
				metrics.IncJobDeletedUnrecoverable()
			}
			return
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		if w.deleteMessage(ctx, msg, fields) {
			telemetry.Info("worker.message.completed", fields)
		}
	case workerproc.ActionRetry:
		fields["error"] = err.Error()
		fields["backoff_ms"] = decision.Backoff.Milliseconds()
		telemetry.Warn("worker.message.retry", fields)
		w.changeVisibility(ctx, msg, decision.Backoff, fields)
	default:
		fields["error"] = err.Error()
		telemetry.Error("worker.message.failed", fields)
	}
}

func (w *worker) deleteMessage(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.delete_failed", fields)
		return false
	}
	if _, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.delete_failed", fields)
		return false
	}
	return true
}

func (w *worker) changeVisibility(ctx context.Context, msg sqstypes.Message, backoff time.Duration, fields map[string]any) {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		return
	}
	seconds := int32(backoff / time.Second)
	if seconds > maxVisibilitySeconds {
		seconds = maxVisibilitySeconds
	}
	if _, err := w.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(w.queueURL),
		ReceiptHandle:     aws.String(receipt),
		VisibilityTimeout: seconds,
	}); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.visibility_failed", fields)
	}
}

func baseFields(msg sqstypes.Message, decoded queue.Message) map[string]any {
	fields := map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if decoded.Kind != "" {
		fields["kind"] = decoded.Kind
	}
	if decoded.JobID != "" {
		fields["job_id"] = decoded.JobID
	}
	if decoded.AnalysisID != "" {
		fields["analysis_id"] = decoded.AnalysisID
	}
	if strings.TrimSpace(decoded.RequestID) != "" {
		fields["request_id"] = decoded.RequestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func fatal(event string, err error) {
	telemetry.Error(event, map[string]any{"error": err.Error()})
	telemetry.Sync()
	os.Exit(1)
}
