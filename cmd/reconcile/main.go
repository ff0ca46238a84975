package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Offline document reconciliation",
	Long: `Reconcile compares a technical specification extraction (tz) with a product
passport extraction without the queue or the database.

  align    canonicalize both payloads and print the aligned items
  compare  run the full comparison against the reasoning service
  export   render a stored verdict as an XLSX report`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(alignCmd(), compareCmd(), exportCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
