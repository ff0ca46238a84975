package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sergey0107/verification-products/internal/comparison"
	"github.com/Sergey0107/verification-products/internal/report"
)

func exportCmd() *cobra.Command {
	var verdictPath, xlsxPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a verdict JSON file as an XLSX report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(verdictPath, xlsxPath)
		},
	}
	cmd.Flags().StringVar(&verdictPath, "verdict", "", "verdict JSON produced by compare")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "output XLSX path")
	_ = cmd.MarkFlagRequired("verdict")
	_ = cmd.MarkFlagRequired("xlsx")
	return cmd
}

func runExport(verdictPath, xlsxPath string) error {
	data, err := os.ReadFile(verdictPath)
	if err != nil {
		return fmt.Errorf("read verdict: %w", err)
	}
	var result comparison.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decode verdict: %w", err)
	}
	return report.WriteFile(xlsxPath, result)
}
