package analyses

import (
	"context"
	"sync"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
	rows map[string][]StoredRow
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Analysis),
		rows: make(map[string][]StoredRow),
	}
}

// Ensure creates the analysis unless it exists.
func (r *MemoryRepo) Ensure(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[analysisID]; ok {
		return a, nil
	}
	ts := now()
	a := Analysis{ID: analysisID, Status: StatusProcessingFiles, CreatedAt: ts, UpdatedAt: ts}
	r.byID[analysisID] = a
	return a, nil
}

// Get returns an analysis by its ID.
func (r *MemoryRepo) Get(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

// SetStatus updates the analysis status.
func (r *MemoryRepo) SetStatus(ctx context.Context, analysisID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validStatus(status) {
		return ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setStatusLocked(analysisID, status)
}

// StoreComparison replaces rows and sets the analysis ready.
func (r *MemoryRepo) StoreComparison(ctx context.Context, analysisID string, rows []StoredRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[analysisID]; !ok {
		return ErrNotFound
	}
	stored := make([]StoredRow, len(rows))
	for i, row := range rows {
		row.AnalysisID = analysisID
		stored[i] = row
	}
	r.rows[analysisID] = stored
	return r.setStatusLocked(analysisID, StatusReady)
}

// ListRows returns a copy of the stored rows in position order.
func (r *MemoryRepo) ListRows(ctx context.Context, analysisID string) ([]StoredRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StoredRow, len(r.rows[analysisID]))
	copy(out, r.rows[analysisID])
	return out, nil
}

func (r *MemoryRepo) setStatusLocked(analysisID, status string) error {
	a, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = now()
	r.byID[analysisID] = a
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
