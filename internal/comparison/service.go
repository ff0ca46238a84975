package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sergey0107/verification-products/internal/jobs"
	"github.com/Sergey0107/verification-products/internal/products"
	"github.com/Sergey0107/verification-products/internal/prompts"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

// Notification statuses.
const (
	NotifySucceeded = "succeeded"
	NotifyFailed    = "failed"
)

// PayloadSource reads stored extraction payloads keyed by file type.
type PayloadSource interface {
	ListResults(ctx context.Context, analysisID string) (map[string]json.RawMessage, error)
}

// Notification is delivered once a comparison job reaches a terminal status.
type Notification struct {
	JobID      string  `json:"job_id"`
	AnalysisID string  `json:"analysis_id"`
	Status     string  `json:"status"`
	Result     *Result `json:"result"`
	Error      string  `json:"error,omitempty"`
}

// Notifier delivers a Notification to the consumer of verdicts.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifyError means the job outcome is stored but its notification was not delivered.
type NotifyError struct {
	JobID string
	Err   error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify comparison job %s: %v", e.JobID, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// Service runs comparison jobs.
type Service struct {
	Jobs     *jobs.Manager
	Results  PayloadSource
	Comparer *Comparer
	Notifier Notifier
}

// Process runs one attempt of the comparison job and notifies on a terminal outcome.
// The error contract is the one of jobs.Manager.Execute, plus *NotifyError when the outcome
// was stored but not delivered. A redelivered message of a finished job that was never
// delivered notifies again.
func (s *Service) Process(ctx context.Context, jobID, analysisID string) error {
	var verdict Result
	err := s.Jobs.Execute(ctx, jobs.KindComparison, jobID, func(ctx context.Context) (json.RawMessage, error) {
		res, err := s.compare(ctx, analysisID)
		if err != nil {
			return nil, err
		}
		verdict = res
		return json.Marshal(res)
	})

	var terminal *jobs.TerminalError
	switch {
	case err == nil:
		return s.notify(ctx, Notification{
			JobID:      jobID,
			AnalysisID: analysisID,
			Status:     NotifySucceeded,
			Result:     &verdict,
		})
	case errors.As(err, &terminal):
		if nerr := s.notify(ctx, Notification{
			JobID:      jobID,
			AnalysisID: analysisID,
			Status:     NotifyFailed,
			Error:      jobs.SanitizeError(terminal.Err),
		}); nerr != nil {
			return nerr
		}
	case errors.Is(err, jobs.ErrAlreadyFinished):
		if nerr := s.renotify(ctx, jobID); nerr != nil {
			return nerr
		}
	}
	return err
}

func (s *Service) compare(ctx context.Context, analysisID string) (Result, error) {
	if s.Results == nil || s.Comparer == nil {
		return Result{}, jobs.Fatal(errors.New("comparison service not configured"))
	}
	payloads, err := s.Results.ListResults(ctx, analysisID)
	if err != nil {
		return Result{}, fmt.Errorf("load extraction results: %w", err)
	}
	tz, ok := payloads[prompts.TypeTZ]
	if !ok {
		return Result{}, jobs.Fatal(fmt.Errorf("missing %s extraction result for analysis %s", prompts.TypeTZ, analysisID))
	}
	passport, ok := payloads[prompts.TypePassport]
	if !ok {
		return Result{}, jobs.Fatal(fmt.Errorf("missing %s extraction result for analysis %s", prompts.TypePassport, analysisID))
	}
	return s.Comparer.CompareProducts(ctx, products.CanonicalizeJSON(tz), products.CanonicalizeJSON(passport))
}

func (s *Service) renotify(ctx context.Context, jobID string) error {
	if s.Notifier == nil {
		return nil
	}
	job, err := s.Jobs.Repo.Get(ctx, jobs.KindComparison, jobID)
	if err != nil {
		return fmt.Errorf("load comparison job: %w", err)
	}
	if job.NotifiedAt != nil {
		return nil
	}
	n := Notification{JobID: job.ID, AnalysisID: job.AnalysisID}
	switch job.Status {
	case jobs.StatusSucceeded:
		var verdict Result
		if err := json.Unmarshal(job.Result, &verdict); err != nil {
			return fmt.Errorf("decode stored verdict: %w", err)
		}
		n.Status = NotifySucceeded
		n.Result = &verdict
	case jobs.StatusFailed:
		n.Status = NotifyFailed
		if job.LastError != nil {
			n.Error = *job.LastError
		}
	default:
		return nil
	}
	telemetry.Info("comparison.renotify", map[string]any{
		"job_id":      job.ID,
		"analysis_id": job.AnalysisID,
		"status":      n.Status,
	})
	return s.notify(ctx, n)
}

// notify delivers n and records the delivery on the job.
func (s *Service) notify(ctx context.Context, n Notification) error {
	if s.Notifier == nil {
		return nil
	}
	fields := map[string]any{
		"job_id":      n.JobID,
		"analysis_id": n.AnalysisID,
		"status":      n.Status,
	}
	if err := s.Notifier.Notify(ctx, n); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("comparison.notify_failed", fields)
		return &NotifyError{JobID: n.JobID, Err: err}
	}
	if err := s.Jobs.Repo.MarkNotified(ctx, n.JobID); err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("comparison.mark_notified_failed", fields)
	}
	return nil
}
