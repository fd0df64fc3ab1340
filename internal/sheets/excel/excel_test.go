package excel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
)

func TestOpenCreatesWorkbookWithHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	if _, err := Open(path, nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	for _, table := range core.Tables() {
		v, err := f.GetCellValue(string(table), "A1")
		if err != nil || v != "Date" {
			t.Fatalf("%s!A1 = %q, %v", table, v, err)
		}
	}
}

func TestAppendReadAllRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	written := []core.Row{
		{"2025-03-14", "Villa", 150.0, "Deep", true, 4350.0, 5},
		{"2025-03-15", "Apartment", 42.5, "Light", false, 850.0, 4},
	}
	for _, r := range written {
		if err := s.Append(ctx, core.TableJobs, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// A second handle sees the rows: everything is on disk.
	again, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rows, err := again.ReadAll(ctx, core.TableJobs)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for i, r := range rows {
		j, err := ledger.DecodeJob(r)
		if err != nil {
			t.Fatalf("decode row %d %v: %v", i, r, err)
		}
		if ledger.Canonical(core.TableJobs, r) != ledger.Canonical(core.TableJobs, written[i]) {
			t.Fatalf("row %d changed on round trip: %v", i, r)
		}
		if i == 0 && !j.HandymanUpsell {
			t.Fatal("upsell flag lost")
		}
	}
}

func TestSchemaErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Cashflow"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Cashflow", "A1", &[]any{"Date", "Type", "Kind"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	var se *core.SchemaError
	_, err = s.ReadAll(ctx, core.TableJobs)
	if !errors.As(err, &se) || se.Table != core.TableJobs || se.Column != "" {
		t.Fatalf("expected missing sheet, got %v", err)
	}
	err = s.Append(ctx, core.TableCashflow, core.Row{"2025-01-01", "Expense", "Other", 1.0, ""})
	if !errors.As(err, &se) || se.Column != "Category" {
		t.Fatalf("expected missing Category column, got %v", err)
	}
}
