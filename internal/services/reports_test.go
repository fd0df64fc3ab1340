package services

import (
	"context"
	"errors"
	"testing"

	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
	"cleaningos/internal/sheets/memory"
)

func TestReportServiceSeesOwnWrites(t *testing.T) {
	store := memory.New()
	reader := ledger.NewReader(store, nil, nil)
	rec := NewRecorder(store, reader, nil, nil)
	reports := NewReportService(reader, nil)
	ctx := context.Background()

	// Warm the cache before writing.
	if months, err := reports.Months(ctx); err != nil || len(months) != 0 {
		t.Fatalf("months = %v, %v", months, err)
	}

	in := villaJob()
	if _, err := rec.CloseJob(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.RecordExpense(ctx, ExpenseInput{Date: core.NewDate(2025, 4, 2), Category: core.ExpenseFuelParking, Amount: dec("60")}); err != nil {
		t.Fatal(err)
	}

	months, err := reports.Months(ctx)
	if err != nil || len(months) != 2 || months[0].String() != "2025-04" {
		t.Fatalf("months = %v, %v", months, err)
	}
	rep, err := reports.MonthlyReport(ctx, core.MonthKey{Year: 2025, Month: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Income.Equal(dec("4350")) || rep.OrderCount != 1 || !rep.UpsellRatePct.Equal(dec("100")) {
		t.Fatalf("unexpected report: %+v", rep)
	}

	jobs, err := reports.RecentJobs(ctx, 10)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("jobs = %v, %v", jobs, err)
	}
}

func TestReportServiceStorageError(t *testing.T) {
	reader := ledger.NewReader(newFailingReads(), nil, nil)
	_, err := NewReportService(reader, nil).MonthlyReport(context.Background(), core.MonthKey{Year: 2025, Month: 1})
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

type failingReads struct{ *memory.Store }

func newFailingReads() failingReads { return failingReads{memory.New()} }

func (failingReads) ReadAll(context.Context, core.Table) ([]core.Row, error) {
	return nil, &core.StorageUnavailableError{Backend: "test", Detail: "401 Unauthorized"}
}
