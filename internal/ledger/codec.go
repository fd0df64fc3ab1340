package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cleaningos/internal/core"
)

// Spreadsheet serial dates count days from this epoch.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// EncodeCashEntry lays out [date, type, category, amount, note].
func EncodeCashEntry(e core.CashEntry) core.Row {
	return core.Row{e.Date.String(), string(e.Type), e.Category, e.Amount.InexactFloat64(), e.Note}
}

// EncodeJob lays out [date, property_category, area_sqm, service_tier, handyman_upsell, revenue, rating].
func EncodeJob(j core.JobRecord) core.Row {
	return core.Row{
		j.Date.String(),
		string(j.Property),
		j.AreaSqm.InexactFloat64(),
		string(j.Tier),
		j.HandymanUpsell,
		j.TotalRevenue.InexactFloat64(),
		j.Rating,
	}
}

// EncodeSalary lays out [date, worker_name, hours, clean_type, salary].
func EncodeSalary(s core.SalaryEntry) core.Row {
	return core.Row{s.Date.String(), s.WorkerName, s.Hours.InexactFloat64(), string(s.CleanType), s.Salary.InexactFloat64()}
}

func DecodeCashEntry(row core.Row) (core.CashEntry, error) {
	var e core.CashEntry
	if err := needColumns(core.TableCashflow, row, 4); err != nil {
		return e, err
	}
	var err error
	if e.Date, err = cellDate(row[0]); err != nil {
		return e, columnErr(core.TableCashflow, 0, err)
	}
	if e.Type, err = core.ParseEntryType(cellString(row[1])); err != nil {
		return e, columnErr(core.TableCashflow, 1, err)
	}
	e.Category = cellString(row[2])
	if e.Amount, err = cellDecimal(row[3]); err != nil {
		return e, columnErr(core.TableCashflow, 3, err)
	}
	if len(row) > 4 {
		e.Note = cellString(row[4])
	}
	return e, e.Validate()
}

func DecodeJob(row core.Row) (core.JobRecord, error) {
	var j core.JobRecord
	if err := needColumns(core.TableJobs, row, 7); err != nil {
		return j, err
	}
	var err error
	if j.Date, err = cellDate(row[0]); err != nil {
		return j, columnErr(core.TableJobs, 0, err)
	}
	if j.Property, err = core.ParsePropertyCategory(cellString(row[1])); err != nil {
		return j, columnErr(core.TableJobs, 1, err)
	}
	if j.AreaSqm, err = cellDecimal(row[2]); err != nil {
		return j, columnErr(core.TableJobs, 2, err)
	}
	if j.Tier, err = core.ParseServiceTier(cellString(row[3])); err != nil {
		return j, columnErr(core.TableJobs, 3, err)
	}
	if j.HandymanUpsell, err = cellBool(row[4]); err != nil {
		return j, columnErr(core.TableJobs, 4, err)
	}
	if j.TotalRevenue, err = cellDecimal(row[5]); err != nil {
		return j, columnErr(core.TableJobs, 5, err)
	}
	if j.Rating, err = cellInt(row[6]); err != nil {
		return j, columnErr(core.TableJobs, 6, err)
	}
	return j, j.Validate()
}

// DecodeSalary normalises the worker name as it reads it.
func DecodeSalary(row core.Row) (core.SalaryEntry, error) {
	var s core.SalaryEntry
	if err := needColumns(core.TableSalaries, row, 5); err != nil {
		return s, err
	}
	var err error
	if s.Date, err = cellDate(row[0]); err != nil {
		return s, columnErr(core.TableSalaries, 0, err)
	}
	s.WorkerName = core.NormalizeWorkerName(cellString(row[1]))
	if s.Hours, err = cellDecimal(row[2]); err != nil {
		return s, columnErr(core.TableSalaries, 2, err)
	}
	if s.CleanType, err = core.ParseCleanType(cellString(row[3])); err != nil {
		return s, columnErr(core.TableSalaries, 3, err)
	}
	if s.Salary, err = cellDecimal(row[4]); err != nil {
		return s, columnErr(core.TableSalaries, 4, err)
	}
	return s, s.Validate()
}

// Canonical renders a row in a backend-independent form so rows read back
// from different stores (strings, floats, serial dates) compare equal to the
// rows that were written.
func Canonical(table core.Table, row core.Row) string {
	var normalized core.Row
	switch table {
	case core.TableCashflow:
		if e, err := DecodeCashEntry(row); err == nil {
			normalized = EncodeCashEntry(e)
		}
	case core.TableJobs:
		if j, err := DecodeJob(row); err == nil {
			normalized = EncodeJob(j)
		}
	case core.TableSalaries:
		if s, err := DecodeSalary(row); err == nil {
			normalized = EncodeSalary(s)
		}
	}
	if normalized == nil {
		normalized = row
	}
	parts := make([]string, len(normalized))
	for i, v := range normalized {
		parts[i] = cellString(v)
	}
	return strings.Join(parts, "\x1f")
}

// CountIdentical returns how many rows of the table equal row.
func CountIdentical(table core.Table, rows []core.Row, row core.Row) int {
	want := Canonical(table, row)
	n := 0
	for _, r := range rows {
		if Canonical(table, r) == want {
			n++
		}
	}
	return n
}

func needColumns(table core.Table, row core.Row, n int) error {
	if len(row) < n {
		return fmt.Errorf("%s row has %d columns, want at least %d", table, len(row), n)
	}
	return nil
}

func columnErr(table core.Table, idx int, err error) error {
	return fmt.Errorf("%s column %s: %w", table, table.Columns()[idx], err)
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func cellDecimal(v any) (decimal.Decimal, error) {
	s := strings.ReplaceAll(cellString(v), ",", ".")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	return d, nil
}

func cellInt(v any) (int, error) {
	d, err := cellDecimal(v)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("not an integer: %s", d)
	}
	return int(d.IntPart()), nil
}

func cellBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	switch strings.ToLower(cellString(v)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %v", v)
}

func cellDate(v any) (core.Date, error) {
	switch t := v.(type) {
	case time.Time:
		return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
	case float64:
		days := int(math.Floor(t))
		d := serialEpoch.AddDate(0, 0, days)
		return core.NewDate(d.Year(), int(d.Month()), d.Day()), nil
	}
	s := cellString(v)
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	return core.ParseDate(s)
}
