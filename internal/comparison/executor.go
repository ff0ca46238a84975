package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sergey0107/verification-products/internal/llm"
	"github.com/Sergey0107/verification-products/internal/prompts"
	"github.com/Sergey0107/verification-products/internal/shared/metrics"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

const (
	schemaInstruction = "\n\nReturn JSON that matches this schema:\n"
	repairInstruction = "You are a JSON repair tool. Return only valid JSON that matches the schema exactly."
	repairRequest     = "Convert the following text into JSON that matches the schema. Do not add explanations.\n\n"
)

// Executor sends one chunk of items to the reasoning service and reconciles the answer.
type Executor struct {
	Prompts prompts.Registry
	LLM     llm.Client
}

// Execute runs one chunk. Transport errors are returned unchanged;
// malformed answers are repaired or replaced by placeholder rows.
func (e *Executor) Execute(ctx context.Context, chunk []Item) (ChunkResult, error) {
	if len(chunk) == 0 {
		return ChunkResult{Rows: []Row{}}, nil
	}
	if e.Prompts == nil || e.LLM == nil {
		return ChunkResult{}, errors.New("comparison executor not configured")
	}

	prompt, err := e.Prompts.Get(ctx, prompts.TypeComparison)
	if err != nil {
		return ChunkResult{}, fmt.Errorf("fetch comparison prompt: %w", err)
	}

	messages, err := buildMessages(prompt, chunk)
	if err != nil {
		return ChunkResult{}, err
	}

	start := time.Now()
	raw, err := e.LLM.Complete(ctx, messages)
	metrics.ObserveComparisonChunkDuration(time.Since(start))
	if err != nil {
		return ChunkResult{}, err
	}

	result := ChunkResult{}
	doc, err := extractJSON(raw)
	if err != nil {
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			return ChunkResult{}, err
		}
		result.Repaired = true
		doc = e.repair(ctx, prompt, parseErr)
	}

	if err := prompt.Validate(doc); err != nil {
		telemetry.Warn("comparison.chunk.schema_mismatch", map[string]any{
			"items": len(chunk),
			"error": err.Error(),
		})
	}

	resp := decodeResponse(doc)
	rows, placeholders := reconcileRows(chunk, resp.Comparisons)
	result.Rows = rows
	result.Summary = resp.Summary
	result.Placeholders = placeholders

	metrics.IncComparisonChunks()
	metrics.AddComparisonPlaceholderRows(placeholders)
	if placeholders > 0 {
		telemetry.Warn("comparison.chunk.placeholders", map[string]any{
			"items":        len(chunk),
			"returned":     len(resp.Comparisons),
			"placeholders": placeholders,
		})
	}
	return result, nil
}

// repair asks the reasoning service once to turn raw text into schema-shaped JSON.
// Any failure yields an empty document.
func (e *Executor) repair(ctx context.Context, prompt prompts.Prompt, parseErr *ParseError) map[string]any {
	metrics.IncComparisonRepairs()
	fields := map[string]any{"raw_len": len(parseErr.Raw), "error": parseErr.Error()}

	messages := []llm.Message{
		llm.System(repairInstruction + schemaInstruction + string(prompt.Schema)),
		llm.User(repairRequest + parseErr.Raw),
	}
	fixed, err := e.LLM.Complete(ctx, messages)
	if err != nil {
		fields["repair_error"] = err.Error()
		telemetry.Warn("comparison.chunk.repair_failed", fields)
		return emptyDocument()
	}
	doc, err := extractJSON(fixed)
	if err != nil {
		fields["repair_error"] = err.Error()
		telemetry.Warn("comparison.chunk.repair_failed", fields)
		return emptyDocument()
	}
	telemetry.Info("comparison.chunk.repaired", fields)
	return doc
}

func buildMessages(prompt prompts.Prompt, chunk []Item) ([]llm.Message, error) {
	payload, err := json.Marshal(map[string]any{"items": chunk})
	if err != nil {
		return nil, fmt.Errorf("encode comparison items: %w", err)
	}
	system := prompt.Prompt + schemaInstruction + string(prompt.Schema)
	return []llm.Message{llm.System(system), llm.User(string(payload))}, nil
}

func emptyDocument() map[string]any {
	return map[string]any{"comparisons": []any{}, "summary": ""}
}
