package report

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/Sergey0107/verification-products/internal/comparison"
)

// Sheet names.
const (
	ComparisonSheet = "Comparison"
	SummarySheet    = "Summary"
)

var headers = []string{
	"#",
	"Characteristic",
	"TZ value",
	"Passport value",
	"TZ quote",
	"Passport quote",
	"Match",
	"Note",
}

// XLSX renders a verdict as a workbook with one row per comparison row.
func XLSX(result comparison.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(ComparisonSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	index, err := f.GetSheetIndex(ComparisonSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(ComparisonSheet, cell, h)
	}

	for i, row := range result.Comparisons {
		line := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, line)
			_ = f.SetCellValue(ComparisonSheet, cell, v)
		}
		write(1, i+1)
		write(2, row.Characteristic)
		write(3, text(row.TZValue))
		write(4, text(row.PassportValue))
		write(5, text(row.TZQuote))
		write(6, text(row.PassportQuote))
		write(7, yesNo(row.IsMatch))
		write(8, text(row.Note))
	}

	_ = f.SetColWidth(ComparisonSheet, "A", "A", 6)
	_ = f.SetColWidth(ComparisonSheet, "B", "B", 40)
	_ = f.SetColWidth(ComparisonSheet, "C", "F", 32)
	_ = f.SetColWidth(ComparisonSheet, "G", "G", 8)
	_ = f.SetColWidth(ComparisonSheet, "H", "H", 48)

	matched := 0
	for _, row := range result.Comparisons {
		if row.IsMatch {
			matched++
		}
	}
	summary := [][2]any{
		{"Match", yesNo(result.Match)},
		{"Rows", len(result.Comparisons)},
		{"Matched rows", matched},
		{"Summary", result.Summary},
	}
	for i, kv := range summary {
		_ = f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 16)
	_ = f.SetColWidth(SummarySheet, "B", "B", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders result to path.
func WriteFile(path string, result comparison.Result) error {
	data, err := XLSX(result)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
