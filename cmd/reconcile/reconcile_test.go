package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sergey0107/verification-products/internal/comparison"
)

const (
	tzPayload       = `{"products":[{"product_name":"Pump X","characteristics":[{"name":"Power","value":"5 kW"},{"name":"Mass","value":"120 kg"}]}]}`
	passportPayload = `{"extraction":{"products":[{"name":"Pump X","characteristics":[{"name":"Power","value":{"value":"5 kW"}}]}]}}`
)

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	tz := filepath.Join(dir, "tz.json")
	passport := filepath.Join(dir, "passport.json")
	if err := os.WriteFile(tz, []byte(tzPayload), 0o644); err != nil {
		t.Fatalf("write tz: %v", err)
	}
	if err := os.WriteFile(passport, []byte(passportPayload), 0o644); err != nil {
		t.Fatalf("write passport: %v", err)
	}
	return tz, passport
}

func TestAlignCommandPrintsItems(t *testing.T) {
	tz, passport := writeFixtures(t)
	cmd := alignCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--tz", tz, "--passport", passport})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var items []comparison.Item
	if err := json.Unmarshal(out.Bytes(), &items); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Characteristic != "Power" || items[1].PassportValue != nil {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestAlignCommandRequiresFlags(t *testing.T) {
	cmd := alignCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--tz", "a.json"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected missing flag error")
	}
}

type matchAll struct{}

func (matchAll) Execute(ctx context.Context, chunk []comparison.Item) (comparison.ChunkResult, error) {
	_ = ctx
	rows := make([]comparison.Row, len(chunk))
	for i, item := range chunk {
		rows[i] = comparison.Row{Characteristic: item.Characteristic, IsMatch: true}
	}
	return comparison.ChunkResult{Rows: rows, Summary: "ok"}, nil
}

func TestCompareThenExport(t *testing.T) {
	tz, passport := writeFixtures(t)
	dir := t.TempDir()
	opts := compareOptions{
		tzPath:       tz,
		passportPath: passport,
		outPath:      filepath.Join(dir, "verdict.json"),
		xlsxPath:     filepath.Join(dir, "report.xlsx"),
	}
	comparer := comparison.NewComparer(matchAll{}, comparison.DefaultChunkSize, 0)
	if err := runCompare(context.Background(), comparer, opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("runCompare: %v", err)
	}
	if _, err := os.Stat(opts.xlsxPath); err != nil {
		t.Fatalf("expected xlsx: %v", err)
	}

	exported := filepath.Join(dir, "exported.xlsx")
	if err := runExport(opts.outPath, exported); err != nil {
		t.Fatalf("runExport: %v", err)
	}
	if info, err := os.Stat(exported); err != nil || info.Size() == 0 {
		t.Fatalf("expected exported xlsx, got %v", err)
	}
}

func TestExportRejectsBadVerdict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := runExport(path, filepath.Join(t.TempDir(), "r.xlsx")); err == nil {
		t.Fatalf("expected decode error")
	}
}
