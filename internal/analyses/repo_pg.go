package analyses

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var now = func() time.Time { return time.Now().UTC() }

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Ensure inserts the analysis if absent and returns the stored row.
func (r *PGRepo) Ensure(ctx context.Context, analysisID string) (Analysis, error) {
	const query = `
INSERT INTO analysis.analysis (id, status, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.DB.ExecContext(ctx, query, analysisID, StatusProcessingFiles, now()); err != nil {
		return Analysis{}, err
	}
	return r.Get(ctx, analysisID)
}

// Get returns an analysis by ID.
func (r *PGRepo) Get(ctx context.Context, analysisID string) (Analysis, error) {
	const query = `
SELECT id, status, created_at, updated_at
FROM analysis.analysis
WHERE id = $1`
	var a Analysis
	err := r.DB.QueryRowContext(ctx, query, analysisID).Scan(&a.ID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// SetStatus updates the analysis status.
func (r *PGRepo) SetStatus(ctx context.Context, analysisID, status string) error {
	if !validStatus(status) {
		return ErrInvalidStatus
	}
	return setStatus(ctx, r.DB, analysisID, status)
}

// StoreComparison replaces rows and sets the analysis ready in one transaction.
func (r *PGRepo) StoreComparison(ctx context.Context, analysisID string, rows []StoredRow) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis.comparison_row WHERE analysis_id = $1`, analysisID); err != nil {
		return err
	}

	const insert = `
INSERT INTO analysis.comparison_row (
	id, analysis_id, position, characteristic, tz_value, passport_value,
	tz_quote, passport_quote, llm_result, user_result, note
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, insert,
			row.ID,
			analysisID,
			row.Position,
			row.Characteristic,
			nullString(row.TZValue),
			nullString(row.PassportValue),
			nullString(row.TZQuote),
			nullString(row.PassportQuote),
			row.LLMResult,
			row.UserResult,
			nullString(row.Note),
		); err != nil {
			return err
		}
	}

	if err := setStatus(ctx, tx, analysisID, StatusReady); err != nil {
		return err
	}
	return tx.Commit()
}

// ListRows returns the stored rows in position order.
func (r *PGRepo) ListRows(ctx context.Context, analysisID string) ([]StoredRow, error) {
	const query = `
SELECT id, analysis_id, position, characteristic, tz_value, passport_value,
       tz_quote, passport_quote, llm_result, user_result, note
FROM analysis.comparison_row
WHERE analysis_id = $1
ORDER BY position`
	rows, err := r.DB.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredRow{}
	for rows.Next() {
		var row StoredRow
		var tzValue, passportValue, tzQuote, passportQuote, note sql.NullString
		if err := rows.Scan(
			&row.ID,
			&row.AnalysisID,
			&row.Position,
			&row.Characteristic,
			&tzValue,
			&passportValue,
			&tzQuote,
			&passportQuote,
			&row.LLMResult,
			&row.UserResult,
			&note,
		); err != nil {
			return nil, err
		}
		row.TZValue = stringPtr(tzValue)
		row.PassportValue = stringPtr(passportValue)
		row.TZQuote = stringPtr(tzQuote)
		row.PassportQuote = stringPtr(passportQuote)
		row.Note = stringPtr(note)
		out = append(out, row)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setStatus(ctx context.Context, db execer, analysisID, status string) error {
	const query = `
UPDATE analysis.analysis
SET status = $2, updated_at = $3
WHERE id = $1`
	res, err := db.ExecContext(ctx, query, analysisID, status, now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

var _ Repo = (*PGRepo)(nil)
