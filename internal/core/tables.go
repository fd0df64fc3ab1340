package core

import "fmt"

const (
	TableCashflow Table = "Cashflow"
	TableJobs     Table = "Jobs"
	TableSalaries Table = "Salaries"
)

type (
	// Table names one of the three append-only ledger logs.
	Table string

	// Row is one stored record in the column order of its table layout.
	Row []any
)

var tableColumns = map[Table][]string{
	TableCashflow: {"Date", "Type", "Category", "Amount", "Note"},
	TableJobs:     {"Date", "Property", "Area", "Tier", "Handyman", "Revenue", "Rating"},
	TableSalaries: {"Date", "Worker", "Hours", "CleanType", "Salary"},
}

// Tables returns the ledger tables in a stable order.
func Tables() []Table {
	return []Table{TableCashflow, TableJobs, TableSalaries}
}

func (t Table) Valid() bool {
	_, ok := tableColumns[t]
	return ok
}

// Columns returns the header of the table layout. Column order is part of
// the storage contract.
func (t Table) Columns() []string {
	return append([]string(nil), tableColumns[t]...)
}

func ParseTable(s string) (Table, error) {
	t := Table(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown ledger table %q", s)
	}
	return t, nil
}
