package google

import (
	"errors"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"cleaningos/internal/core"
)

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{1: "A", 5: "E", 7: "G", 26: "Z", 27: "AA", 52: "AZ"}
	for n, want := range tests {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTableRange(t *testing.T) {
	if got := tableRange(core.TableJobs); got != "Jobs!A:G" {
		t.Fatalf("tableRange(Jobs) = %q", got)
	}
	if got := tableRange(core.TableCashflow); got != "Cashflow!A:E" {
		t.Fatalf("tableRange(Cashflow) = %q", got)
	}
}

func TestCheckHeader(t *testing.T) {
	ok := []any{"Date", "worker", " Hours ", "CleanType", "Salary"}
	if err := checkHeader(core.TableSalaries, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := checkHeader(core.TableSalaries, []any{"Date", "Worker", "Hours"})
	var se *core.SchemaError
	if !errors.As(err, &se) || se.Column != "CleanType" {
		t.Fatalf("expected missing CleanType, got %v", err)
	}

	err = checkHeader(core.TableJobs, []any{"Date", "Property", "Size"})
	if !errors.As(err, &se) || se.Column != "Area" {
		t.Fatalf("expected misplaced Area, got %v", err)
	}
}

func TestDataRowsSkipsBlankLines(t *testing.T) {
	rows := dataRows([][]any{
		{"2025-01-01", "Income", "Cleaning revenue", 850.0, ""},
		{},
		{"", " "},
		{"2025-01-02", "Expense", "Other", 10.0},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden, Message: "The caller does not have permission", Body: `{"error":{"code":403}}`}, core.ErrStorageUnavailable},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized, Message: "invalid credentials"}, core.ErrStorageUnavailable},
		{"missing worksheet", &googleapi.Error{Code: http.StatusBadRequest, Message: "Unable to parse range: Jobs!A:G"}, core.ErrSchema},
		{"server error", &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "backend error"}, core.ErrStorageUnavailable},
		{"network", errors.New("dial tcp: connection refused"), core.ErrStorageUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(core.TableJobs, tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("classifyError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyErrorKeepsUpstreamBody(t *testing.T) {
	body := `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`
	err := classifyError(core.TableCashflow, &googleapi.Error{Code: 403, Body: body})
	var su *core.StorageUnavailableError
	if !errors.As(err, &su) || su.Detail != body {
		t.Fatalf("expected verbatim body, got %#v", err)
	}
}
