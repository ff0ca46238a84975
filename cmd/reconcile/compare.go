package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sergey0107/verification-products/internal/comparison"
	openai "github.com/Sergey0107/verification-products/internal/llm/openai"
	"github.com/Sergey0107/verification-products/internal/prompts"
	"github.com/Sergey0107/verification-products/internal/report"
	"github.com/Sergey0107/verification-products/internal/shared/config"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

type compareOptions struct {
	tzPath       string
	passportPath string
	promptsDir   string
	outPath      string
	xlsxPath     string
}

func compareCmd() *cobra.Command {
	var opts compareOptions
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two extraction payloads with the reasoning service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			telemetry.SetLevel(cfg.LogLevel)
			comparer, err := newComparer(cfg, opts.promptsDir)
			if err != nil {
				return err
			}
			return runCompare(cmd.Context(), comparer, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.tzPath, "tz", "", "tz extraction payload (JSON)")
	cmd.Flags().StringVar(&opts.passportPath, "passport", "", "passport extraction payload (JSON)")
	cmd.Flags().StringVar(&opts.promptsDir, "prompts", "", "read prompts from this directory instead of the registry")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "write the verdict JSON to this file instead of stdout")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "also write an XLSX report")
	_ = cmd.MarkFlagRequired("tz")
	_ = cmd.MarkFlagRequired("passport")
	return cmd
}

func newComparer(cfg config.Config, promptsDir string) (*comparison.Comparer, error) {
	var registry prompts.Registry = prompts.NewHTTPRegistry(cfg.PromptRegistryURL, cfg.RequestTimeout)
	if promptsDir != "" {
		store, err := prompts.LoadDir(promptsDir)
		if err != nil {
			return nil, err
		}
		registry = store
	}
	client, err := openai.NewClient(openai.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		Model:   cfg.OpenRouterModel,
		BaseURL: cfg.OpenRouterBaseURL,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	exec := &comparison.Executor{Prompts: registry, LLM: client}
	return comparison.NewComparer(exec, cfg.CompareChunkSize, cfg.CompareDelay), nil
}

func runCompare(ctx context.Context, comparer *comparison.Comparer, opts compareOptions, stdout io.Writer) error {
	left, right, err := loadProducts(opts.tzPath, opts.passportPath)
	if err != nil {
		return err
	}
	result, err := comparer.CompareProducts(ctx, left, right)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	if opts.outPath == "" {
		if err := writeJSON(stdout, result); err != nil {
			return err
		}
	} else {
		var buf bytes.Buffer
		if err := writeJSON(&buf, result); err != nil {
			return err
		}
		if err := os.WriteFile(opts.outPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write verdict: %w", err)
		}
	}
	if opts.xlsxPath != "" {
		if err := report.WriteFile(opts.xlsxPath, result); err != nil {
			return err
		}
	}
	return nil
}
