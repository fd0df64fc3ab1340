package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"cleaningos/internal/config"
	"cleaningos/internal/core"
)

func TestCreateBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tests := []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "ledger.db")},
		{Type: ExcelBackend, ExcelPath: filepath.Join(dir, "ledger.xlsx")},
	}

	for _, cfg := range tests {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := NewFactory(nil).CreateBackend(context.Background(), cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Close()

			row := core.Row{"2025-03-14", "Expense", "Equipment", 120.5, "vacuum"}
			if err := res.Store.Append(context.Background(), core.TableCashflow, row); err != nil {
				t.Fatalf("Append: %v", err)
			}
			rows, err := res.Store.ReadAll(context.Background(), core.TableCashflow)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(rows) != 1 {
				t.Fatalf("got %d rows, want 1", len(rows))
			}
			if res.Type != cfg.Type {
				t.Fatalf("result type = %s", res.Type)
			}
		})
	}
}

func TestCreateBackendRejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Type: "postgres"}, "invalid backend type"},
		{Config{Type: SQLiteBackend}, "SQLITE_DB_PATH is required"},
		{Config{Type: ExcelBackend}, "EXCEL_PATH is required"},
		{Config{Type: SheetsBackend}, "GOOGLE_SPREADSHEET_ID is required"},
	}
	for _, tt := range tests {
		_, err := NewFactory(nil).CreateBackend(context.Background(), tt.cfg)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: got %v, want error containing %q", tt.cfg.Type, err, tt.want)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:         "sqlite",
		MirrorBackend:       "excel",
		SQLiteDBPath:        "/data/ledger.db",
		ExcelPath:           "/data/ledger.xlsx",
		GoogleSpreadsheetID: "abc",
	}

	cfg, err := FromAppConfig(app, app.MirrorBackend)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != ExcelBackend || cfg.ExcelPath != "/data/ledger.xlsx" || cfg.SQLiteDBPath != "/data/ledger.db" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if _, err := FromAppConfig(app, "cloud"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil, "memory"); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestBackendTypesAreAllOpenable(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s is listed but has no opener", bt)
		}
	}
	if BackendType("cloud").IsValid() {
		t.Error("unknown backend reported valid")
	}
}
