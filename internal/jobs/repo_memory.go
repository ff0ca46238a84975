package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repo with the same unique-key rules as PGRepo.
type MemoryRepo struct {
	mu    sync.Mutex
	jobs  map[Kind]map[string]Job
	byKey map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		jobs: map[Kind]map[string]Job{
			KindExtraction: {},
			KindComparison: {},
		},
		byKey: map[string]string{},
	}
}

func naturalKey(kind Kind, parts ...string) string {
	key := string(kind)
	for _, p := range parts {
		key += "\x00" + p
	}
	return key
}

func (r *MemoryRepo) create(ctx context.Context, job Job, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byKey[key]; ok {
		return id, false, nil
	}
	ts := now()
	job.ID = uuid.NewString()
	job.Status = StatusQueued
	job.CreatedAt = ts
	job.UpdatedAt = ts
	r.jobs[job.Kind][job.ID] = job
	r.byKey[key] = job.ID
	return job.ID, true, nil
}

// CreateExtraction inserts an extraction job unless one exists for the key.
func (r *MemoryRepo) CreateExtraction(ctx context.Context, analysisID, fileID, fileType string) (string, bool, error) {
	job := Job{Kind: KindExtraction, AnalysisID: analysisID, FileID: fileID, FileType: fileType}
	return r.create(ctx, job, naturalKey(KindExtraction, analysisID, fileID, fileType))
}

// CreateComparison inserts a comparison job unless one exists for the analysis.
func (r *MemoryRepo) CreateComparison(ctx context.Context, analysisID string) (string, bool, error) {
	job := Job{Kind: KindComparison, AnalysisID: analysisID}
	return r.create(ctx, job, naturalKey(KindComparison, analysisID))
}

// Get returns a copy of the job.
func (r *MemoryRepo) Get(ctx context.Context, kind Kind, id string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	if !validKind(kind) {
		return Job{}, ErrUnknownKind
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[kind][id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// MarkRunning claims a queued, retrying or stale running job and increments attempts.
func (r *MemoryRepo) MarkRunning(ctx context.Context, kind Kind, id string, staleBefore time.Time) (int, error) {
	var attempts int
	var claimErr error
	err := r.update(ctx, kind, id, func(j *Job) bool {
		switch {
		case j.Finished():
			claimErr = ErrAlreadyFinished
			return false
		case !j.Claimable(staleBefore):
			claimErr = ErrInProgress
			return false
		}
		j.Status = StatusRunning
		j.Attempts++
		attempts = j.Attempts
		return true
	})
	if err != nil {
		return 0, err
	}
	return attempts, claimErr
}

// MarkSucceeded records a clean completion.
func (r *MemoryRepo) MarkSucceeded(ctx context.Context, kind Kind, id string, result json.RawMessage) error {
	return r.update(ctx, kind, id, func(j *Job) bool {
		ts := now()
		j.Status = StatusSucceeded
		j.LastError = nil
		j.CompletedAt = &ts
		if kind == KindComparison && len(result) > 0 {
			j.Result = append(json.RawMessage(nil), result...)
		}
		return true
	})
}

// MarkFailed records a failed attempt.
func (r *MemoryRepo) MarkFailed(ctx context.Context, kind Kind, id, status, lastError string) error {
	return r.update(ctx, kind, id, func(j *Job) bool {
		msg := lastError
		j.Status = status
		j.LastError = &msg
		return true
	})
}

// MarkNotified stamps the delivery time of a comparison outcome.
func (r *MemoryRepo) MarkNotified(ctx context.Context, id string) error {
	return r.update(ctx, KindComparison, id, func(j *Job) bool {
		ts := now()
		j.NotifiedAt = &ts
		return true
	})
}

// update applies fn to a copy of the job and stores it when fn returns true.
func (r *MemoryRepo) update(ctx context.Context, kind Kind, id string, fn func(j *Job) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validKind(kind) {
		return ErrUnknownKind
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[kind][id]
	if !ok {
		return ErrNotFound
	}
	if !fn(&job) {
		return nil
	}
	job.UpdatedAt = now()
	r.jobs[kind][id] = job
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
