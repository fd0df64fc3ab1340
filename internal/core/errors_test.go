package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorTaxonomyMatching(t *testing.T) {
	upstream := errors.New("googleapi: Error 403: The caller does not have permission")
	cases := []struct {
		name   string
		err    error
		target error
	}{
		{"validation", &ValidationError{Field: "hours", Reason: "negative"}, ErrValidation},
		{"unavailable", &StorageUnavailableError{Backend: "sheets", Err: upstream}, ErrStorageUnavailable},
		{"schema", &SchemaError{Table: TableJobs, Column: "Rating"}, ErrSchema},
		{"partial", &PartialWriteError{Event: "close_job", Err: upstream}, ErrPartialWrite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("record: %w", tc.err)
			if !errors.Is(wrapped, tc.target) {
				t.Fatalf("expected %v to match %v", wrapped, tc.target)
			}
		})
	}
}

func TestStorageUnavailableKeepsUpstreamDetail(t *testing.T) {
	err := &StorageUnavailableError{
		Backend: "sheets",
		Detail:  `{"error":{"code":403,"status":"PERMISSION_DENIED"}}`,
		Err:     errors.New("googleapi: Error 403"),
	}
	msg := err.Error()
	if !strings.Contains(msg, "PERMISSION_DENIED") || !strings.Contains(msg, "Error 403") {
		t.Fatalf("upstream detail lost: %s", msg)
	}
}

func TestSchemaErrorNamesMissingPiece(t *testing.T) {
	if msg := (&SchemaError{Table: TableSalaries}).Error(); !strings.Contains(msg, "Salaries") {
		t.Fatalf("table not named: %s", msg)
	}
	if msg := (&SchemaError{Table: TableJobs, Column: "Rating"}).Error(); !strings.Contains(msg, "Rating") {
		t.Fatalf("column not named: %s", msg)
	}
}

func TestPartialWriteUnwrapsCause(t *testing.T) {
	cause := &StorageUnavailableError{Backend: "memory"}
	err := &PartialWriteError{
		Event:   "record_salary",
		Written: []PendingRow{{Table: TableSalaries}},
		Pending: []PendingRow{{Table: TableCashflow}},
		Err:     cause,
	}
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatal("expected cause to be reachable")
	}
	if !strings.Contains(err.Error(), "Cashflow") {
		t.Fatalf("pending table not named: %s", err)
	}
}

func TestNormalizeWorkerName(t *testing.T) {
	cases := map[string]string{
		"bob ":       "Bob",
		"Bob":        "Bob",
		" BOB":       "Bob",
		"mary   ann": "Mary Ann",
		"   ":        "",
	}
	for in, want := range cases {
		if got := NormalizeWorkerName(in); got != want {
			t.Fatalf("NormalizeWorkerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseMonthKey(t *testing.T) {
	k, err := ParseMonthKey("2024-11")
	if err != nil || k != (MonthKey{Year: 2024, Month: 11}) {
		t.Fatalf("unexpected %v %v", k, err)
	}
	for _, bad := range []string{"2024", "2024-13", "24-1x", ""} {
		if _, err := ParseMonthKey(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", bad, err)
		}
	}
	if !(MonthKey{2024, 12}).Before(MonthKey{2025, 1}) {
		t.Fatal("expected 2024-12 before 2025-01")
	}
}
