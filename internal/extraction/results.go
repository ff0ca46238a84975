package extraction

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

var now = func() time.Time { return time.Now().UTC() }

// ResultsRepo stores one extraction payload per (analysis, file type).
type ResultsRepo interface {
	Upsert(ctx context.Context, analysisID, fileType string, payload json.RawMessage) error
	ListResults(ctx context.Context, analysisID string) (map[string]json.RawMessage, error)
}

// PGResultsRepo implements ResultsRepo using Postgres.
type PGResultsRepo struct {
	DB *sql.DB
}

// Upsert inserts or replaces the payload for the key.
func (r *PGResultsRepo) Upsert(ctx context.Context, analysisID, fileType string, payload json.RawMessage) error {
	const query = `
INSERT INTO analysis.extraction_result (analysis_id, file_type, payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (analysis_id, file_type)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query, analysisID, fileType, string(payload), now())
	return err
}

// ListResults returns every stored payload of the analysis keyed by file type.
func (r *PGResultsRepo) ListResults(ctx context.Context, analysisID string) (map[string]json.RawMessage, error) {
	const query = `
SELECT file_type, payload
FROM analysis.extraction_result
WHERE analysis_id = $1`
	rows, err := r.DB.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]json.RawMessage{}
	for rows.Next() {
		var fileType string
		var payload []byte
		if err := rows.Scan(&fileType, &payload); err != nil {
			return nil, err
		}
		out[fileType] = json.RawMessage(payload)
	}
	return out, rows.Err()
}

// MemoryResultsRepo is an in-memory ResultsRepo.
type MemoryResultsRepo struct {
	mu      sync.RWMutex
	results map[string]map[string]json.RawMessage
}

// NewMemoryResultsRepo constructs a MemoryResultsRepo.
func NewMemoryResultsRepo() *MemoryResultsRepo {
	return &MemoryResultsRepo{results: map[string]map[string]json.RawMessage{}}
}

// Upsert stores a copy of payload.
func (r *MemoryResultsRepo) Upsert(ctx context.Context, analysisID, fileType string, payload json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results[analysisID] == nil {
		r.results[analysisID] = map[string]json.RawMessage{}
	}
	r.results[analysisID][fileType] = append(json.RawMessage(nil), payload...)
	return nil
}

// ListResults returns a copy of the stored payloads.
func (r *MemoryResultsRepo) ListResults(ctx context.Context, analysisID string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(r.results[analysisID]))
	for k, v := range r.results[analysisID] {
		out[k] = v
	}
	return out, nil
}

var (
	_ ResultsRepo = (*PGResultsRepo)(nil)
	_ ResultsRepo = (*MemoryResultsRepo)(nil)
)
