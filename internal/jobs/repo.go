package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// Repo defines persistence operations for jobs.
//
// Create methods are insert-if-absent on the natural key: created is false, and the
// existing job id is returned, when a job for the key already exists.
type Repo interface {
	CreateExtraction(ctx context.Context, analysisID, fileID, fileType string) (id string, created bool, err error)
	CreateComparison(ctx context.Context, analysisID string) (id string, created bool, err error)
	Get(ctx context.Context, kind Kind, id string) (Job, error)
	// MarkRunning claims the job for one attempt. It returns ErrInProgress when another
	// attempt holds a running job touched at or after staleBefore, and ErrAlreadyFinished
	// when the job reached a terminal status.
	MarkRunning(ctx context.Context, kind Kind, id string, staleBefore time.Time) (attempts int, err error)
	MarkSucceeded(ctx context.Context, kind Kind, id string, result json.RawMessage) error
	MarkFailed(ctx context.Context, kind Kind, id, status, lastError string) error
	// MarkNotified records that the outcome of a finished comparison job was delivered.
	MarkNotified(ctx context.Context, id string) error
}
