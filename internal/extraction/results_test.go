package extraction

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGResultsRepoUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGResultsRepo{DB: db}

	mock.ExpectExec("INSERT INTO analysis.extraction_result").
		WithArgs("a1", "tz", `{"products":[]}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), "a1", "tz", json.RawMessage(`{"products":[]}`)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGResultsRepoListResults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGResultsRepo{DB: db}

	mock.ExpectQuery("FROM analysis.extraction_result").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"file_type", "payload"}).
			AddRow("tz", []byte(`{"a":1}`)).
			AddRow("passport", []byte(`{"b":2}`)))

	got, err := repo.ListResults(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(got) != 2 || string(got["tz"]) != `{"a":1}` || string(got["passport"]) != `{"b":2}` {
		t.Fatalf("unexpected results %v", got)
	}
}

func TestMemoryResultsRepoUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryResultsRepo()
	_ = repo.Upsert(ctx, "a1", "tz", json.RawMessage(`{"v":1}`))
	_ = repo.Upsert(ctx, "a1", "tz", json.RawMessage(`{"v":2}`))

	got, _ := repo.ListResults(ctx, "a1")
	if len(got) != 1 || string(got["tz"]) != `{"v":2}` {
		t.Fatalf("expected replaced payload, got %v", got)
	}
	if other, _ := repo.ListResults(ctx, "a2"); len(other) != 0 {
		t.Fatalf("expected empty results for unknown analysis")
	}
}
