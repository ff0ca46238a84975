package comparison

import "strings"

// Aggregate merges chunk results in order into one verdict.
// The verdict matches only when there is at least one row and every row matches.
func Aggregate(chunks []ChunkResult) Result {
	rows := []Row{}
	summaries := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		rows = append(rows, chunk.Rows...)
		if s := strings.TrimSpace(chunk.Summary); s != "" {
			summaries = append(summaries, s)
		}
	}

	match := len(rows) > 0
	for _, row := range rows {
		if !row.IsMatch {
			match = false
			break
		}
	}

	return Result{
		Match:       match,
		Summary:     strings.Join(summaries, " "),
		Comparisons: rows,
	}
}

// emptyResult is the verdict for documents with nothing to compare.
func emptyResult() Result {
	return Result{
		Match:       false,
		Summary:     NothingToCompareSummary,
		Comparisons: []Row{},
	}
}
