package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "db", "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	repo.SetClock(func() time.Time { return time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC) })
	return repo
}

func TestRepositoryAppendAndReadAll(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.EnsureInitialized(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// Idempotent
	if err := repo.EnsureInitialized(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	empty, err := repo.ReadAll(ctx)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty ledger, got %v err=%v", empty, err)
	}

	inputs := []core.Record{
		{Date: core.NewDate(2024, 2, 1), Kind: core.Income, Category: "Salary", Amount: core.MustAmount("1500"), Note: "feb"},
		{Kind: core.Expense, Amount: core.MustAmount("9.99")},
	}
	var refs []string
	for _, in := range inputs {
		ref, err := repo.Append(ctx, in)
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		refs = append(refs, ref)
	}
	if refs[0] != "1" || refs[1] != "2" {
		t.Fatalf("unexpected refs: %v", refs)
	}

	got, err := repo.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || !got[0].Equal(inputs[0]) {
		t.Fatalf("unexpected records: %+v", got)
	}
	if got[1].Date.String() != "2024-02-29" || got[1].Category != core.DefaultCategory {
		t.Fatalf("defaults not applied: %+v", got[1])
	}
}

func TestRepositoryRejectsInvalid(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.Append(ctx, core.Record{Kind: core.Expense, Amount: core.AmountFromText("ten")})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := repo.ReadAll(ctx)
	if len(got) != 0 {
		t.Fatalf("rejected record stored: %+v", got)
	}
}

func TestRepositoryImportKeepsMalformedRows(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	records := []core.Record{
		{Date: core.DateFromText("31/01/2024"), Kind: core.Expense, Category: "Food", Amount: core.MustAmount("3"), Note: ""},
		{Date: core.NewDate(2024, 1, 31), Kind: core.Expense, Category: "Food", Amount: core.AmountFromText("3,5x"), Note: "typo"},
	}
	n, err := repo.Import(ctx, records)
	if err != nil || n != 2 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}

	got, err := repo.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	for i := range records {
		if !got[i].Equal(records[i]) {
			t.Errorf("record %d: got %+v want %+v", i, got[i], records[i])
		}
	}
}
