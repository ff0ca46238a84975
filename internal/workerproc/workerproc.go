package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/Sergey0107/verification-products/internal/jobs"
	"github.com/Sergey0107/verification-products/internal/queue"
	"github.com/Sergey0107/verification-products/internal/shared/metrics"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a payload that is not a valid job message.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ParseMessage decodes and validates the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if err := msg.Validate(); err != nil {
		return msg, meta, ErrDecode{Meta: meta, Err: err}
	}
	return msg, meta, nil
}

// ExtractionProcessor runs one attempt of an extraction job.
type ExtractionProcessor interface {
	Process(ctx context.Context, msg queue.Message) error
}

// ComparisonProcessor runs one attempt of a comparison job.
type ComparisonProcessor interface {
	Process(ctx context.Context, jobID, analysisID string) error
}

// Dispatcher routes decoded messages to the processor of their kind.
type Dispatcher struct {
	Extraction ExtractionProcessor
	Comparison ComparisonProcessor
}

// Dispatch runs the job named by msg. The error contract is the one of jobs.Manager.Execute.
func (d *Dispatcher) Dispatch(ctx context.Context, msg queue.Message) error {
	if d == nil {
		return errors.New("dispatcher not configured")
	}
	metrics.IncJobReceived(msg.Kind)
	switch msg.Kind {
	case queue.KindExtraction:
		if d.Extraction == nil {
			return errors.New("extraction processor not configured")
		}
		return d.Extraction.Process(ctx, msg)
	case queue.KindComparison:
		if d.Comparison == nil {
			return errors.New("comparison processor not configured")
		}
		return d.Comparison.Process(ctx, msg.JobID, msg.AnalysisID)
	default:
		return ErrDecode{Err: queue.ErrUnknownKind}
	}
}

// HandleMessage parses and dispatches one raw payload.
func HandleMessage(ctx context.Context, d *Dispatcher, body string) (queue.Message, error) {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return msg, err
	}
	return msg, d.Dispatch(ctx, msg)
}

// Action is what the transport should do with a message after handling.
type Action int

const (
	// ActionDelete acknowledges the message.
	ActionDelete Action = iota
	// ActionRetry makes the message visible again after Decision.Backoff.
	ActionRetry
	// ActionKeep leaves the message for redelivery after its visibility timeout.
	ActionKeep
)

// Decision is the acknowledgment outcome of a handled message.
type Decision struct {
	Action        Action
	Backoff       time.Duration
	Unrecoverable bool
}

// InProgressBackoff delays a message whose job is held by another attempt.
const InProgressBackoff = time.Minute

// Decide maps a HandleMessage error to an acknowledgment decision.
func Decide(err error) Decision {
	var (
		retryable *jobs.RetryableError
		terminal  *jobs.TerminalError
		empty     ErrEmptyBody
		decode    ErrDecode
	)
	switch {
	case err == nil:
		return Decision{Action: ActionDelete}
	case errors.As(err, &retryable):
		return Decision{Action: ActionRetry, Backoff: retryable.Backoff}
	case errors.Is(err, jobs.ErrInProgress):
		return Decision{Action: ActionRetry, Backoff: InProgressBackoff}
	case errors.As(err, &terminal), errors.Is(err, jobs.ErrAlreadyFinished):
		return Decision{Action: ActionDelete}
	case errors.As(err, &empty), errors.As(err, &decode), errors.Is(err, jobs.ErrNotFound):
		return Decision{Action: ActionDelete, Unrecoverable: true}
	default:
		return Decision{Action: ActionKeep}
	}
}
