package analyses

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	if _, err := repo.Get(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	a, err := repo.Ensure(ctx, "a1")
	if err != nil || a.Status != StatusProcessingFiles {
		t.Fatalf("Ensure: %+v %v", a, err)
	}
	if err := repo.SetStatus(ctx, "a1", StatusAnalyzing); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	again, _ := repo.Ensure(ctx, "a1")
	if again.Status != StatusAnalyzing {
		t.Fatalf("Ensure must not reset status, got %s", again.Status)
	}

	rows := []StoredRow{{ID: "r1", Characteristic: "Power"}, {ID: "r2", Position: 1, Characteristic: "Weight"}}
	if err := repo.StoreComparison(ctx, "a1", rows); err != nil {
		t.Fatalf("StoreComparison: %v", err)
	}
	if err := repo.StoreComparison(ctx, "a1", rows[:1]); err != nil {
		t.Fatalf("StoreComparison replace: %v", err)
	}
	got, _ := repo.ListRows(ctx, "a1")
	if len(got) != 1 || got[0].AnalysisID != "a1" {
		t.Fatalf("expected replaced rows, got %+v", got)
	}
	final, _ := repo.Get(ctx, "a1")
	if final.Status != StatusReady {
		t.Fatalf("expected ready, got %s", final.Status)
	}

	if err := repo.StoreComparison(ctx, "missing", rows); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
