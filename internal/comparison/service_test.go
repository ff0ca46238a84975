package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Sergey0107/verification-products/internal/jobs"
)

type mapSource map[string]json.RawMessage

func (m mapSource) ListResults(ctx context.Context, analysisID string) (map[string]json.RawMessage, error) {
	_ = ctx
	_ = analysisID
	return m, nil
}

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	_ = ctx
	r.sent = append(r.sent, n)
	return r.err
}

const (
	tzPayload       = `{"products":[{"product_name":"Pump X","characteristics":[{"name":"Power","value":"5 kW"}]}]}`
	passportPayload = `{"extraction":{"products":[{"name":"Pump X","characteristics":[{"name":"Power","value":{"value":"5 kW"}}]}]}}`
)

func newService(t *testing.T, source PayloadSource, exec ChunkExecutor, notifier Notifier) (*Service, *jobs.MemoryRepo, string) {
	t.Helper()
	repo := jobs.NewMemoryRepo()
	id, _, err := repo.CreateComparison(context.Background(), "analysis-1")
	if err != nil {
		t.Fatalf("CreateComparison: %v", err)
	}
	mgr := jobs.NewManager(repo, 1)
	svc := &Service{
		Jobs:     mgr,
		Results:  source,
		Comparer: NewComparer(exec, DefaultChunkSize, 0),
		Notifier: notifier,
	}
	return svc, repo, id
}

func TestServiceProcessSucceeds(t *testing.T) {
	notifier := &recordingNotifier{}
	source := mapSource{"tz": json.RawMessage(tzPayload), "passport": json.RawMessage(passportPayload)}
	svc, repo, id := newService(t, source, &fakeChunkExecutor{}, notifier)

	if err := svc.Process(context.Background(), id, "analysis-1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	job, _ := repo.Get(context.Background(), jobs.KindComparison, id)
	if job.Status != jobs.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", job.Status)
	}
	var stored Result
	if err := json.Unmarshal(job.Result, &stored); err != nil {
		t.Fatalf("stored result: %v", err)
	}
	if !stored.Match || len(stored.Comparisons) != 1 {
		t.Fatalf("unexpected stored result: %+v", stored)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	n := notifier.sent[0]
	if n.Status != NotifySucceeded || n.Result == nil || n.AnalysisID != "analysis-1" || n.JobID != id {
		t.Fatalf("unexpected notification: %+v", n)
	}
	job, _ = repo.Get(context.Background(), jobs.KindComparison, id)
	if job.NotifiedAt == nil {
		t.Fatalf("expected delivery to be recorded")
	}
}

func TestServiceMissingResultFailsWithoutRetry(t *testing.T) {
	notifier := &recordingNotifier{}
	exec := &fakeChunkExecutor{}
	svc, repo, id := newService(t, mapSource{"tz": json.RawMessage(tzPayload)}, exec, notifier)

	err := svc.Process(context.Background(), id, "analysis-1")
	var terminal *jobs.TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected TerminalError, got %v", err)
	}
	if len(exec.chunks) != 0 {
		t.Fatalf("expected no chunk calls, got %d", len(exec.chunks))
	}
	job, _ := repo.Get(context.Background(), jobs.KindComparison, id)
	if job.Status != jobs.StatusFailed || job.Attempts != 1 {
		t.Fatalf("expected failed after 1 attempt, got %s/%d", job.Status, job.Attempts)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Status != NotifyFailed || notifier.sent[0].Error == "" {
		t.Fatalf("unexpected notifications: %+v", notifier.sent)
	}
}

func TestServiceRetryIsNotNotified(t *testing.T) {
	notifier := &recordingNotifier{}
	exec := &fakeChunkExecutor{err: errors.New("upstream 502")}
	source := mapSource{"tz": json.RawMessage(tzPayload), "passport": json.RawMessage(passportPayload)}
	svc, repo, id := newService(t, source, exec, notifier)

	err := svc.Process(context.Background(), id, "analysis-1")
	var retryable *jobs.RetryableError
	if !errors.As(err, &retryable) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notification while retrying, got %+v", notifier.sent)
	}

	// MaxRetries is 1, so the second attempt is terminal.
	err = svc.Process(context.Background(), id, "analysis-1")
	var terminal *jobs.TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected TerminalError, got %v", err)
	}
	job, _ := repo.Get(context.Background(), jobs.KindComparison, id)
	if job.Status != jobs.StatusFailed || job.LastError == nil {
		t.Fatalf("unexpected job: %+v", job)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Status != NotifyFailed {
		t.Fatalf("unexpected notifications: %+v", notifier.sent)
	}
}

func TestServiceNotifyFailureIsRedeliveredLater(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("callback down")}
	source := mapSource{"tz": json.RawMessage(tzPayload), "passport": json.RawMessage(passportPayload)}
	svc, repo, id := newService(t, source, &fakeChunkExecutor{}, notifier)
	ctx := context.Background()

	err := svc.Process(ctx, id, "analysis-1")
	var notifyErr *NotifyError
	if !errors.As(err, &notifyErr) || notifyErr.JobID != id {
		t.Fatalf("expected NotifyError, got %v", err)
	}
	if errors.Is(err, jobs.ErrAlreadyFinished) {
		t.Fatalf("undelivered verdict must not read as finished")
	}
	job, _ := repo.Get(ctx, jobs.KindComparison, id)
	if job.Status != jobs.StatusSucceeded || job.NotifiedAt != nil {
		t.Fatalf("expected stored but undelivered verdict, got %+v", job)
	}

	notifier.err = nil
	if err := svc.Process(ctx, id, "analysis-1"); !errors.Is(err, jobs.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished on redelivery, got %v", err)
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("expected redelivery to notify again, got %d", len(notifier.sent))
	}
	resent := notifier.sent[1]
	if resent.Status != NotifySucceeded || resent.Result == nil || len(resent.Result.Comparisons) != 1 || resent.AnalysisID != "analysis-1" {
		t.Fatalf("unexpected renotification: %+v", resent)
	}

	if err := svc.Process(ctx, id, "analysis-1"); !errors.Is(err, jobs.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("delivered verdict must not be sent again, got %d", len(notifier.sent))
	}
}

func TestServiceRenotifiesFailedJob(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("callback down")}
	svc, _, id := newService(t, mapSource{"tz": json.RawMessage(tzPayload)}, &fakeChunkExecutor{}, notifier)
	ctx := context.Background()

	var notifyErr *NotifyError
	if err := svc.Process(ctx, id, "analysis-1"); !errors.As(err, &notifyErr) {
		t.Fatalf("expected NotifyError, got %v", err)
	}
	notifier.err = nil
	if err := svc.Process(ctx, id, "analysis-1"); !errors.Is(err, jobs.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if len(notifier.sent) != 2 || notifier.sent[1].Status != NotifyFailed || notifier.sent[1].Error == "" {
		t.Fatalf("unexpected notifications: %+v", notifier.sent)
	}
}
