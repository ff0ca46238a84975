package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Sergey0107/verification-products/internal/analyses"
	"github.com/Sergey0107/verification-products/internal/extractor"
	"github.com/Sergey0107/verification-products/internal/jobs"
	"github.com/Sergey0107/verification-products/internal/prompts"
	"github.com/Sergey0107/verification-products/internal/queue"
	s3store "github.com/Sergey0107/verification-products/internal/shared/storage/object/s3"
	"github.com/Sergey0107/verification-products/internal/workerproc"
)

const analysisID = "5b8e3f0a-8c7d-4b6a-9f21-0d4c3b2a1e90"

type fakeExtractor struct {
	requests []extractor.Request
	err      error
}

func (f *fakeExtractor) Extract(ctx context.Context, in extractor.Request) (json.RawMessage, error) {
	_ = ctx
	f.requests = append(f.requests, in)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"products":[{"product_name":"Pump X","characteristics":[]}]}`), nil
}

// failingQueue fails the next failures sends of kind, then delegates.
type failingQueue struct {
	*queue.MemoryClient
	kind     string
	failures int
}

func (q *failingQueue) Send(ctx context.Context, msg queue.Message) error {
	if msg.Kind == q.kind && q.failures > 0 {
		q.failures--
		return errors.New("sqs unavailable")
	}
	return q.MemoryClient.Send(ctx, msg)
}

// failingResults fails the next failures ListResults calls.
type failingResults struct {
	*MemoryResultsRepo
	failures int
}

func (r *failingResults) ListResults(ctx context.Context, analysisID string) (map[string]json.RawMessage, error) {
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("db down")
	}
	return r.MemoryResultsRepo.ListResults(ctx, analysisID)
}

type fixture struct {
	svc       *Service
	jobs      *jobs.MemoryRepo
	results   *MemoryResultsRepo
	analyses  *analyses.MemoryRepo
	queue     *queue.MemoryClient
	extractor *fakeExtractor
}

func newFixture(t *testing.T, bucket string) *fixture {
	t.Helper()
	schema := json.RawMessage(`{"type":"object"}`)
	registry, err := prompts.NewStore(
		prompts.Prompt{Type: prompts.TypeTZ, Prompt: "extract tz", Schema: schema},
		prompts.Prompt{Type: prompts.TypePassport, Prompt: "extract passport", Schema: schema},
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	f := &fixture{
		jobs:      jobs.NewMemoryRepo(),
		results:   NewMemoryResultsRepo(),
		analyses:  analyses.NewMemoryRepo(),
		queue:     queue.NewMemoryClient(),
		extractor: &fakeExtractor{},
	}
	f.svc = &Service{
		Jobs:      jobs.NewManager(f.jobs, 2),
		Results:   f.results,
		Prompts:   registry,
		Extractor: f.extractor,
		Files:     s3store.NewPublic("http://minio:9000", bucket, 0),
		Queue:     f.queue,
		Analyses:  f.analyses,
	}
	return f
}

func bothFiles() []File {
	return []File{
		{ID: "file-tz", Type: "TZ", StoragePath: "uploads/tz.pdf"},
		{ID: "file-pass", Type: "passport", StoragePath: "uploads/passport.pdf"},
	}
}

func TestEnqueueRequiresBothFiles(t *testing.T) {
	f := newFixture(t, "docs")
	_, err := f.svc.Enqueue(context.Background(), analysisID, bothFiles()[:1], "req-1")
	if !errors.Is(err, ErrMissingFiles) {
		t.Fatalf("expected ErrMissingFiles, got %v", err)
	}
	_, err = f.svc.Enqueue(context.Background(), analysisID, []File{{ID: "x", Type: "invoice"}}, "req-1")
	if !errors.Is(err, ErrUnknownFileType) {
		t.Fatalf("expected ErrUnknownFileType, got %v", err)
	}
	if msgs := f.queue.Drain(); len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}

func TestEnqueueIsIdempotent(t *testing.T) {
	f := newFixture(t, "docs")
	ctx := context.Background()

	first, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), "req-1")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(first) != 2 || !first[0].Created || !first[1].Created || first[0].FileType != prompts.TypeTZ {
		t.Fatalf("unexpected first enqueue: %+v", first)
	}
	msgs := f.queue.Drain()
	if len(msgs) != 2 || msgs[0].Kind != queue.KindExtraction || msgs[0].StoragePath != "uploads/tz.pdf" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	for _, m := range msgs {
		if _, err := f.jobs.MarkRunning(ctx, jobs.KindExtraction, m.JobID, time.Now()); err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
	}
	second, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), "req-2")
	if err != nil {
		t.Fatalf("Enqueue again: %v", err)
	}
	if second[0].Created || second[0].JobID != first[0].JobID {
		t.Fatalf("expected existing jobs, got %+v", second)
	}
	if msgs := f.queue.Drain(); len(msgs) != 0 {
		t.Fatalf("started jobs must not be sent again, got %d", len(msgs))
	}

	a, _ := f.analyses.Get(ctx, analysisID)
	if a.Status != analyses.StatusExtracting {
		t.Fatalf("expected extracting_data, got %s", a.Status)
	}
}

func TestEnqueueResendsJobsLostOnSendFailure(t *testing.T) {
	f := newFixture(t, "docs")
	q := &failingQueue{MemoryClient: f.queue, kind: queue.KindExtraction, failures: 1}
	f.svc.Queue = q
	ctx := context.Background()

	if _, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), "req-1"); err == nil {
		t.Fatalf("expected send failure")
	}
	if msgs := f.queue.Drain(); len(msgs) != 0 {
		t.Fatalf("expected nothing sent, got %d", len(msgs))
	}

	out, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), "req-1")
	if err != nil {
		t.Fatalf("retried Enqueue: %v", err)
	}
	if out[0].Created || !out[1].Created {
		t.Fatalf("expected tz job reused and passport job created, got %+v", out)
	}
	msgs := f.queue.Drain()
	if len(msgs) != 2 || msgs[0].JobID != out[0].JobID || msgs[1].JobID != out[1].JobID {
		t.Fatalf("expected both jobs sent, got %+v", msgs)
	}
}

func TestProcessTriggersComparisonOnlyWithBothResults(t *testing.T) {
	f := newFixture(t, "docs")
	ctx := context.Background()
	if _, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), "req-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msgs := f.queue.Drain()

	if err := f.svc.Process(ctx, msgs[0]); err != nil {
		t.Fatalf("Process tz: %v", err)
	}
	if sent := f.queue.Drain(); len(sent) != 0 {
		t.Fatalf("comparison must wait for both results, got %+v", sent)
	}
	req := f.extractor.requests[0]
	if req.FileURL != "http://minio:9000/docs/uploads/tz.pdf" || req.Prompt != "extract tz" || req.FileType != prompts.TypeTZ {
		t.Fatalf("unexpected extract request: %+v", req)
	}

	if err := f.svc.Process(ctx, msgs[1]); err != nil {
		t.Fatalf("Process passport: %v", err)
	}
	sent := f.queue.Drain()
	if len(sent) != 1 || sent[0].Kind != queue.KindComparison || sent[0].AnalysisID != analysisID || sent[0].JobID == "" {
		t.Fatalf("expected one comparison message, got %+v", sent)
	}
	a, _ := f.analyses.Get(ctx, analysisID)
	if a.Status != analyses.StatusAnalyzing {
		t.Fatalf("expected analyzing_data, got %s", a.Status)
	}

	// Once the comparison has started, a redelivered extraction does not dispatch it again.
	if _, err := f.jobs.MarkRunning(ctx, jobs.KindComparison, sent[0].JobID, time.Now()); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := f.svc.Process(ctx, msgs[1]); !errors.Is(err, jobs.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if sent := f.queue.Drain(); len(sent) != 0 {
		t.Fatalf("expected no duplicate comparison, got %+v", sent)
	}
}

func TestRedeliveryResendsComparisonLostOnSendFailure(t *testing.T) {
	f := newFixture(t, "docs")
	q := &failingQueue{MemoryClient: f.queue, kind: queue.KindComparison, failures: 1}
	f.svc.Queue = q
	ctx := context.Background()
	if _, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), "req-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msgs := f.queue.Drain()
	if err := f.svc.Process(ctx, msgs[0]); err != nil {
		t.Fatalf("Process tz: %v", err)
	}

	err := f.svc.Process(ctx, msgs[1])
	if err == nil || errors.Is(err, jobs.ErrAlreadyFinished) {
		t.Fatalf("expected the send failure alone, got %v", err)
	}
	if d := workerproc.Decide(err); d.Action == workerproc.ActionDelete {
		t.Fatalf("failed dispatch must keep the message, got %+v", d)
	}
	if sent := f.queue.Drain(); len(sent) != 0 {
		t.Fatalf("expected nothing sent, got %+v", sent)
	}

	if err := f.svc.Process(ctx, msgs[1]); !errors.Is(err, jobs.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished on redelivery, got %v", err)
	}
	sent := f.queue.Drain()
	if len(sent) != 1 || sent[0].Kind != queue.KindComparison {
		t.Fatalf("expected comparison sent on redelivery, got %+v", sent)
	}
	job, err := f.jobs.Get(ctx, jobs.KindComparison, sent[0].JobID)
	if err != nil || job.Status != jobs.StatusQueued {
		t.Fatalf("expected the original queued comparison job, got %+v err=%v", job, err)
	}
}

func TestRedeliveryKeepsMessageWhenTriggerFails(t *testing.T) {
	f := newFixture(t, "docs")
	results := &failingResults{MemoryResultsRepo: f.results}
	f.svc.Results = results
	ctx := context.Background()
	if _, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), "req-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msgs := f.queue.Drain()
	if err := f.svc.Process(ctx, msgs[0]); err != nil {
		t.Fatalf("Process tz: %v", err)
	}

	results.failures = 2
	for attempt := 1; attempt <= 2; attempt++ {
		err := f.svc.Process(ctx, msgs[1])
		if errors.Is(err, jobs.ErrAlreadyFinished) {
			t.Fatalf("attempt %d: trigger failure must not read as finished: %v", attempt, err)
		}
		if d := workerproc.Decide(err); d.Action != workerproc.ActionKeep {
			t.Fatalf("attempt %d: expected keep, got %+v", attempt, d)
		}
	}

	if err := f.svc.Process(ctx, msgs[1]); !errors.Is(err, jobs.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if sent := f.queue.Drain(); len(sent) != 1 || sent[0].Kind != queue.KindComparison {
		t.Fatalf("expected comparison dispatched after recovery, got %+v", sent)
	}
}

func TestProcessMissingBucketIsFatal(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	if _, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), ""); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msgs := f.queue.Drain()

	err := f.svc.Process(ctx, msgs[0])
	var terminal *jobs.TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected TerminalError, got %v", err)
	}
	if len(f.extractor.requests) != 0 {
		t.Fatalf("extractor must not be called")
	}
	a, _ := f.analyses.Get(ctx, analysisID)
	if a.Status != analyses.StatusFailed {
		t.Fatalf("expected failed analysis, got %s", a.Status)
	}
}

func TestProcessTransportErrorRetries(t *testing.T) {
	f := newFixture(t, "docs")
	f.extractor.err = errors.New("extraction http status 503")
	ctx := context.Background()
	if _, err := f.svc.Enqueue(ctx, analysisID, bothFiles(), ""); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	msgs := f.queue.Drain()

	err := f.svc.Process(ctx, msgs[0])
	var retryable *jobs.RetryableError
	if !errors.As(err, &retryable) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	job, _ := f.jobs.Get(ctx, jobs.KindExtraction, msgs[0].JobID)
	if job.Status != jobs.StatusRetrying || job.Attempts != 1 {
		t.Fatalf("unexpected job %+v", job)
	}
	results, _ := f.results.ListResults(ctx, analysisID)
	if len(results) != 0 {
		t.Fatalf("expected no stored results, got %d", len(results))
	}
}
