package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MonthKey is the (year, month) grouping key used by every aggregation.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Before reports whether k is an earlier month than other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return MonthKey{}, &ValidationError{Field: "month", Reason: fmt.Sprintf("expected YYYY-MM, got %q", s)}
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil || y < 1900 || y > 3000 {
		return MonthKey{}, &ValidationError{Field: "month", Reason: fmt.Sprintf("invalid year in %q", s)}
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return MonthKey{}, &ValidationError{Field: "month", Reason: fmt.Sprintf("invalid month in %q", s)}
	}
	return MonthKey{Year: y, Month: m}, nil
}

func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// PayrollLine is one worker's totals for a month.
type PayrollLine struct {
	Worker string          `json:"worker"`
	Hours  decimal.Decimal `json:"hours"`
	Salary decimal.Decimal `json:"salary"`
}

// AvgRating is the mean client rating. It is not available for a month
// without jobs, which is different from a rating of zero.
type AvgRating struct {
	Value decimal.Decimal
	Valid bool
}

func (r AvgRating) String() string {
	if !r.Valid {
		return "N/A"
	}
	return r.Value.StringFixed(2)
}

// MarshalJSON quotes the value like every other decimal in the API.
func (r AvgRating) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// MonthlyReport holds the P&L and KPIs of one month.
type MonthlyReport struct {
	Month             MonthKey         `json:"month"`
	Income            decimal.Decimal  `json:"income"`
	IncomeByCategory  []CategoryAmount `json:"income_by_category"`
	Expense           decimal.Decimal  `json:"expense"`
	ExpenseByCategory []CategoryAmount `json:"expense_by_category"`
	Profit            decimal.Decimal  `json:"profit"`
	MarginPct         decimal.Decimal  `json:"margin_pct"`
	OrderCount        int              `json:"order_count"`
	AvgTicket         decimal.Decimal  `json:"avg_ticket"`
	UpsellRatePct     decimal.Decimal  `json:"upsell_rate_pct"`
	AvgRating         AvgRating        `json:"avg_rating"`
	Payroll           []PayrollLine    `json:"payroll"`
}
