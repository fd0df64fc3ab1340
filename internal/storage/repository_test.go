package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRoundTripKeepsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	written := []core.Row{
		{"2025-03-14", "Income", "Cleaning revenue", 4200.0, "Villa Rosa"},
		{"2025-03-14", "Income", "Handyman revenue", 150.0, "Villa Rosa"},
		{"2025-03-02", "Expense", "Payroll: Cleaning workers", 270.5, "Bob (4.5h)"},
	}
	for _, r := range written {
		if err := repo.Append(ctx, core.TableCashflow, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	rows, err := repo.ReadAll(ctx, core.TableCashflow)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != len(written) {
		t.Fatalf("expected %d rows, got %d", len(written), len(rows))
	}
	for i := range rows {
		if ledger.Canonical(core.TableCashflow, rows[i]) != ledger.Canonical(core.TableCashflow, written[i]) {
			t.Fatalf("row %d: got %v, want %v", i, rows[i], written[i])
		}
	}
}

func TestSQLiteJobsBooleanAndRating(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Append(ctx, core.TableJobs, core.Row{"2025-03-14", "Villa", 150.0, "Deep", true, 4350.0, 5}); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows, err := repo.ReadAll(ctx, core.TableJobs)
	if err != nil || len(rows) != 1 {
		t.Fatalf("read: %v %v", rows, err)
	}
	j, err := ledger.DecodeJob(rows[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !j.HandymanUpsell || j.Rating != 5 || j.TotalRevenue.String() != "4350" {
		t.Fatalf("unexpected job: %+v", j)
	}
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path, nil)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}

func TestSQLiteSchemaErrors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if _, err := repo.db.ExecContext(ctx, "DROP TABLE salaries"); err != nil {
		t.Fatal(err)
	}
	_, err := repo.ReadAll(ctx, core.TableSalaries)
	var se *core.SchemaError
	if !errors.As(err, &se) || se.Table != core.TableSalaries {
		t.Fatalf("expected schema error, got %v", err)
	}
	if err := repo.Append(ctx, core.Table("Invoices"), core.Row{}); !errors.Is(err, core.ErrSchema) {
		t.Fatalf("expected schema error for unknown table, got %v", err)
	}
}

func TestClassifyColumnName(t *testing.T) {
	err := classify(core.TableJobs, errors.New("table jobs has no column named rating"))
	var se *core.SchemaError
	if !errors.As(err, &se) || se.Column != "rating" {
		t.Fatalf("expected column rating, got %v", err)
	}
	if !errors.Is(classify(core.TableJobs, errors.New("database is locked")), core.ErrStorageUnavailable) {
		t.Fatal("expected storage unavailable")
	}
}
