package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sergey0107/verification-products/internal/comparison"
	"github.com/Sergey0107/verification-products/internal/products"
)

func alignCmd() *cobra.Command {
	var tzPath, passportPath string
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Print the aligned comparison items of two extraction payloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			left, right, err := loadProducts(tzPath, passportPath)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), comparison.Align(left, right))
		},
	}
	cmd.Flags().StringVar(&tzPath, "tz", "", "tz extraction payload (JSON)")
	cmd.Flags().StringVar(&passportPath, "passport", "", "passport extraction payload (JSON)")
	_ = cmd.MarkFlagRequired("tz")
	_ = cmd.MarkFlagRequired("passport")
	return cmd
}

func loadProducts(tzPath, passportPath string) ([]products.Product, []products.Product, error) {
	tz, err := os.ReadFile(tzPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read tz payload: %w", err)
	}
	passport, err := os.ReadFile(passportPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read passport payload: %w", err)
	}
	return products.CanonicalizeJSON(tz), products.CanonicalizeJSON(passport), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
