package comparison

import (
	"context"
	"fmt"
	"time"

	"github.com/Sergey0107/verification-products/internal/products"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

// DefaultChunkSize bounds the number of items sent in one reasoning call.
const DefaultChunkSize = 120

// ChunkExecutor runs one chunk against the reasoning service.
type ChunkExecutor interface {
	Execute(ctx context.Context, chunk []Item) (ChunkResult, error)
}

// Comparer runs the full comparison of two extraction payloads.
type Comparer struct {
	Executor   ChunkExecutor
	ChunkSize  int
	ChunkDelay time.Duration

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewComparer constructs a Comparer.
func NewComparer(exec ChunkExecutor, chunkSize int, chunkDelay time.Duration) *Comparer {
	return &Comparer{Executor: exec, ChunkSize: chunkSize, ChunkDelay: chunkDelay}
}

// Compare canonicalizes both payloads, aligns them and runs every chunk in order.
func (c *Comparer) Compare(ctx context.Context, tzPayload, passportPayload any) (Result, error) {
	left := products.Canonicalize(tzPayload)
	right := products.Canonicalize(passportPayload)
	return c.CompareProducts(ctx, left, right)
}

// CompareProducts compares already canonical product lists.
func (c *Comparer) CompareProducts(ctx context.Context, left, right []products.Product) (Result, error) {
	items := Align(left, right)
	if len(items) == 0 {
		telemetry.Info("comparison.nothing_to_compare", map[string]any{
			"tz_products":       len(left),
			"passport_products": len(right),
		})
		return emptyResult(), nil
	}

	chunks := Batch(items, c.ChunkSize)
	results := make([]ChunkResult, 0, len(chunks))
	for i, chunk := range chunks {
		if i > 0 && c.ChunkDelay > 0 {
			if err := c.wait(ctx, c.ChunkDelay); err != nil {
				return Result{}, err
			}
		}
		res, err := c.Executor.Execute(ctx, chunk)
		if err != nil {
			return Result{}, fmt.Errorf("compare chunk %d/%d: %w", i+1, len(chunks), err)
		}
		results = append(results, res)
	}

	verdict := Aggregate(results)
	telemetry.Info("comparison.completed", map[string]any{
		"items":  len(items),
		"chunks": len(chunks),
		"match":  verdict.Match,
	})
	return verdict, nil
}

func (c *Comparer) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
