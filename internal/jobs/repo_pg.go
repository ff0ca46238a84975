package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var now = func() time.Time { return time.Now().UTC() }

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func tableFor(kind Kind) (string, error) {
	switch kind {
	case KindExtraction:
		return "analysis.extraction_job", nil
	case KindComparison:
		return "analysis.comparison_job", nil
	default:
		return "", ErrUnknownKind
	}
}

// CreateExtraction inserts an extraction job unless one exists for the key.
func (r *PGRepo) CreateExtraction(ctx context.Context, analysisID, fileID, fileType string) (string, bool, error) {
	const insert = `
INSERT INTO analysis.extraction_job (id, analysis_id, file_id, file_type, status, attempts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 0, $6, $6)
ON CONFLICT (analysis_id, file_id, file_type) DO NOTHING
RETURNING id`
	const existing = `
SELECT id FROM analysis.extraction_job
WHERE analysis_id = $1 AND file_id = $2 AND file_type = $3`

	var id string
	err := r.DB.QueryRowContext(ctx, insert, uuid.NewString(), analysisID, fileID, fileType, StatusQueued, now()).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, err
	}
	if err := r.DB.QueryRowContext(ctx, existing, analysisID, fileID, fileType).Scan(&id); err != nil {
		return "", false, err
	}
	return id, false, nil
}

// CreateComparison inserts a comparison job unless one exists for the analysis.
func (r *PGRepo) CreateComparison(ctx context.Context, analysisID string) (string, bool, error) {
	const insert = `
INSERT INTO analysis.comparison_job (id, analysis_id, status, attempts, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $4)
ON CONFLICT (analysis_id) DO NOTHING
RETURNING id`
	const existing = `SELECT id FROM analysis.comparison_job WHERE analysis_id = $1`

	var id string
	err := r.DB.QueryRowContext(ctx, insert, uuid.NewString(), analysisID, StatusQueued, now()).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, err
	}
	if err := r.DB.QueryRowContext(ctx, existing, analysisID).Scan(&id); err != nil {
		return "", false, err
	}
	return id, false, nil
}

// Get returns a job by kind and id.
func (r *PGRepo) Get(ctx context.Context, kind Kind, id string) (Job, error) {
	var query string
	switch kind {
	case KindExtraction:
		query = `
SELECT id, analysis_id, file_id, file_type, status, attempts, last_error, NULL::jsonb, created_at, updated_at, completed_at, NULL::timestamptz
FROM analysis.extraction_job
WHERE id = $1`
	case KindComparison:
		query = `
SELECT id, analysis_id, '', '', status, attempts, last_error, result, created_at, updated_at, completed_at, notified_at
FROM analysis.comparison_job
WHERE id = $1`
	default:
		return Job{}, ErrUnknownKind
	}

	job := Job{Kind: kind}
	var lastError sql.NullString
	var result []byte
	var completedAt, notifiedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.AnalysisID,
		&job.FileID,
		&job.FileType,
		&job.Status,
		&job.Attempts,
		&lastError,
		&result,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
		&notifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	if lastError.Valid {
		job.LastError = &lastError.String
	}
	if len(result) > 0 {
		job.Result = json.RawMessage(result)
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time
		job.NotifiedAt = &t
	}
	return job, nil
}

// MarkRunning claims the job and increments attempts in one statement. A running job is
// only reclaimed once its updated_at is older than staleBefore.
func (r *PGRepo) MarkRunning(ctx context.Context, kind Kind, id string, staleBefore time.Time) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	query := `UPDATE ` + table + `
SET status = $2, attempts = attempts + 1, updated_at = $3
WHERE id = $1
  AND (status IN ($4, $5) OR (status = $2 AND updated_at < $6))
RETURNING attempts`

	var attempts int
	err = r.DB.QueryRowContext(ctx, query, id, StatusRunning, now(), StatusQueued, StatusRetrying, staleBefore).Scan(&attempts)
	if err == nil {
		return attempts, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var status string
	if err := r.DB.QueryRowContext(ctx, `SELECT status FROM `+table+` WHERE id = $1`, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if (Job{Status: status}).Finished() {
		return 0, ErrAlreadyFinished
	}
	return 0, ErrInProgress
}

// MarkSucceeded records a clean completion. Comparison jobs also store their result.
func (r *PGRepo) MarkSucceeded(ctx context.Context, kind Kind, id string, result json.RawMessage) error {
	ts := now()
	var res sql.Result
	var err error
	switch kind {
	case KindExtraction:
		const query = `
UPDATE analysis.extraction_job
SET status = $2, last_error = NULL, completed_at = $3, updated_at = $3
WHERE id = $1`
		res, err = r.DB.ExecContext(ctx, query, id, StatusSucceeded, ts)
	case KindComparison:
		const query = `
UPDATE analysis.comparison_job
SET status = $2, last_error = NULL, result = $3, completed_at = $4, updated_at = $4
WHERE id = $1`
		res, err = r.DB.ExecContext(ctx, query, id, StatusSucceeded, nullJSON(result), ts)
	default:
		return ErrUnknownKind
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkFailed records a failed attempt with status retrying or failed.
func (r *PGRepo) MarkFailed(ctx context.Context, kind Kind, id, status, lastError string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := `UPDATE ` + table + `
SET status = $2, last_error = $3, updated_at = $4
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, status, lastError, now())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkNotified stamps notified_at on a comparison job.
func (r *PGRepo) MarkNotified(ctx context.Context, id string) error {
	const query = `UPDATE analysis.comparison_job SET notified_at = $2 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, now())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var _ Repo = (*PGRepo)(nil)
