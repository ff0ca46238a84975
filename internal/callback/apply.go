package callback

import (
	"context"
	"fmt"

	"github.com/Sergey0107/verification-products/internal/analyses"
	"github.com/Sergey0107/verification-products/internal/comparison"
)

// Apply records a comparison notification on its analysis.
// A succeeded notification replaces the stored rows and marks the analysis ready.
func Apply(ctx context.Context, repo analyses.Repo, n comparison.Notification) error {
	switch n.Status {
	case comparison.NotifySucceeded:
		rows := []comparison.Row{}
		if n.Result != nil {
			rows = n.Result.Comparisons
		}
		return repo.StoreComparison(ctx, n.AnalysisID, analyses.RowsFromResult(n.AnalysisID, rows))
	case comparison.NotifyFailed:
		return repo.SetStatus(ctx, n.AnalysisID, analyses.StatusFailed)
	default:
		return fmt.Errorf("%w: %q", analyses.ErrInvalidStatus, n.Status)
	}
}

// LocalNotifier applies notifications to the analyses store in-process.
// It stands in for Sender when no callback URL is configured.
type LocalNotifier struct {
	Analyses analyses.Repo
}

// Notify implements comparison.Notifier.
func (l LocalNotifier) Notify(ctx context.Context, n comparison.Notification) error {
	return Apply(ctx, l.Analyses, n)
}
