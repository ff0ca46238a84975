package analyses

import "context"

// Repo defines persistence operations for analyses and their comparison rows.
type Repo interface {
	// Ensure creates the analysis in StatusProcessingFiles unless it exists.
	Ensure(ctx context.Context, analysisID string) (Analysis, error)
	Get(ctx context.Context, analysisID string) (Analysis, error)
	SetStatus(ctx context.Context, analysisID, status string) error
	// StoreComparison replaces all rows of the analysis and marks it ready.
	StoreComparison(ctx context.Context, analysisID string, rows []StoredRow) error
	ListRows(ctx context.Context, analysisID string) ([]StoredRow, error)
}
