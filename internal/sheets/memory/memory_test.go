package memory

import (
	"context"
	"errors"
	"testing"

	"cleaningos/internal/core"
)

func TestMemoryStoreAppendAndReadAll(t *testing.T) {
	s := New()
	ctx := context.Background()
	rows := []core.Row{
		{"2025-01-01", "Income", "Cleaning revenue", 850.0, ""},
		{"2025-01-02", "Expense", "Equipment", 120.0, "vacuum"},
	}
	for _, r := range rows {
		if err := s.Append(ctx, core.TableCashflow, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := s.ReadAll(ctx, core.TableCashflow)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[1][4] != "vacuum" {
		t.Fatalf("unexpected rows: %v", got)
	}

	got[0][0] = "mutated"
	again, _ := s.ReadAll(ctx, core.TableCashflow)
	if again[0][0] != "2025-01-01" {
		t.Fatal("ReadAll must return copies")
	}
}

func TestMemoryStoreRejectsBadInput(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Append(ctx, core.Table("Invoices"), core.Row{1}); !errors.Is(err, core.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if err := s.Append(ctx, core.TableJobs, core.Row{"2025-01-01"}); err == nil {
		t.Fatal("expected width error")
	}
	if s.Len(core.TableJobs) != 0 {
		t.Fatal("rejected row was stored")
	}
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().ReadAll(ctx, core.TableJobs); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
