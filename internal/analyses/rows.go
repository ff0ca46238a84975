package analyses

import (
	"github.com/google/uuid"

	"github.com/Sergey0107/verification-products/internal/comparison"
)

// RowsFromResult converts verdict rows to stored rows, keeping their order as position.
func RowsFromResult(analysisID string, rows []comparison.Row) []StoredRow {
	out := make([]StoredRow, 0, len(rows))
	for i, row := range rows {
		out = append(out, StoredRow{
			ID:             uuid.NewString(),
			AnalysisID:     analysisID,
			Position:       i,
			Characteristic: row.Characteristic,
			TZValue:        row.TZValue,
			PassportValue:  row.PassportValue,
			TZQuote:        row.TZQuote,
			PassportQuote:  row.PassportQuote,
			LLMResult:      row.IsMatch,
			UserResult:     true,
			Note:           row.Note,
		})
	}
	return out
}

// ResultFromRows rebuilds a verdict from stored rows. The overall match follows the model verdicts.
func ResultFromRows(rows []StoredRow) comparison.Result {
	res := comparison.Result{Comparisons: make([]comparison.Row, 0, len(rows))}
	res.Match = len(rows) > 0
	for _, row := range rows {
		res.Comparisons = append(res.Comparisons, comparison.Row{
			Characteristic: row.Characteristic,
			TZValue:        row.TZValue,
			PassportValue:  row.PassportValue,
			TZQuote:        row.TZQuote,
			PassportQuote:  row.PassportQuote,
			IsMatch:        row.LLMResult,
			Note:           row.Note,
		})
		if !row.LLMResult {
			res.Match = false
		}
	}
	return res
}
