package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Sergey0107/verification-products/internal/shared/metrics"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	DefaultMaxBackoff  = 10 * time.Minute
	maxErrorLen        = 500
)

// DefaultRunningLease is how long a running attempt holds its job before a redelivery
// may reclaim it.
const DefaultRunningLease = 30 * time.Minute

// Work performs one attempt of a job. The returned result is stored for comparison jobs.
type Work func(ctx context.Context) (json.RawMessage, error)

// Manager owns job status transitions.
type Manager struct {
	Repo         Repo
	MaxRetries   int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	// RunningLease bounds how long a crashed attempt blocks its job.
	RunningLease time.Duration
}

// NewManager constructs a Manager with default retry settings.
func NewManager(repo Repo, maxRetries int) *Manager {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Manager{
		Repo:         repo,
		MaxRetries:   maxRetries,
		BaseBackoff:  DefaultBaseBackoff,
		MaxBackoff:   DefaultMaxBackoff,
		RunningLease: DefaultRunningLease,
	}
}

// Execute runs one attempt of the job and records its outcome.
//
// It returns nil once the job is durably succeeded, ErrAlreadyFinished for a job that
// reached a terminal status earlier, *RetryableError when another attempt should follow and
// *TerminalError when the job failed permanently. ErrInProgress means another attempt
// holds the job. Other errors come from the repository.
func (m *Manager) Execute(ctx context.Context, kind Kind, id string, work Work) error {
	job, err := m.Repo.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if job.Finished() {
		return ErrAlreadyFinished
	}

	lease := m.RunningLease
	if lease <= 0 {
		lease = DefaultRunningLease
	}
	attempts, err := m.Repo.MarkRunning(ctx, kind, id, now().Add(-lease))
	if err != nil {
		if errors.Is(err, ErrInProgress) {
			telemetry.Info("job.in_progress", map[string]any{
				"job_id":      id,
				"job_kind":    string(kind),
				"analysis_id": job.AnalysisID,
			})
		}
		return err
	}
	fields := map[string]any{
		"job_id":      id,
		"job_kind":    string(kind),
		"analysis_id": job.AnalysisID,
		"attempt":     attempts,
	}
	telemetry.Info("job.running", fields)

	start := time.Now()
	result, workErr := work(ctx)
	metrics.ObserveJobDuration(string(kind), time.Since(start))

	if workErr == nil {
		if err := m.Repo.MarkSucceeded(ctx, kind, id, result); err != nil {
			return err
		}
		metrics.IncJobSucceeded(string(kind))
		telemetry.Info("job.succeeded", fields)
		return nil
	}

	msg := SanitizeError(workErr)
	fields["error"] = msg

	if !IsFatal(workErr) && attempts <= m.MaxRetries {
		if err := m.Repo.MarkFailed(ctx, kind, id, StatusRetrying, msg); err != nil {
			return errors.Join(workErr, err)
		}
		backoff := Backoff(attempts, m.BaseBackoff, m.MaxBackoff)
		fields["backoff_ms"] = backoff.Milliseconds()
		metrics.IncJobRetried(string(kind))
		telemetry.Warn("job.retrying", fields)
		return &RetryableError{Kind: kind, JobID: id, Attempt: attempts, Backoff: backoff, Err: workErr}
	}

	if err := m.Repo.MarkFailed(ctx, kind, id, StatusFailed, msg); err != nil {
		return errors.Join(workErr, err)
	}
	fields["fatal"] = IsFatal(workErr)
	metrics.IncJobFailed(string(kind))
	telemetry.Error("job.failed", fields)
	return &TerminalError{Kind: kind, JobID: id, Attempt: attempts, Err: workErr}
}

// Backoff returns base * 2^(attempt-1), capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = DefaultBaseBackoff
	}
	if max <= 0 {
		max = DefaultMaxBackoff
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// SanitizeError flattens an error message for storage in last_error.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
