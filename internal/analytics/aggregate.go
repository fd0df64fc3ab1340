// Package analytics derives monthly P&L figures and KPIs from a ledger
// snapshot. Everything here is a pure function of its input.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

// Monthly computes the report for one month. Months without data yield a
// zero report with an unavailable rating.
func Monthly(l *ledger.Ledger, month core.MonthKey) core.MonthlyReport {
	rep := core.MonthlyReport{
		Month:             month,
		IncomeByCategory:  []core.CategoryAmount{},
		ExpenseByCategory: []core.CategoryAmount{},
		Payroll:           []core.PayrollLine{},
	}
	if l == nil {
		return rep
	}

	var income, expense categoryTotals
	for _, e := range l.Cashflow {
		if e.Date.MonthKey() != month {
			continue
		}
		switch e.Type {
		case core.Income:
			income.add(e.Category, e.Amount)
		case core.Expense:
			expense.add(e.Category, e.Amount)
		}
	}
	rep.Income, rep.IncomeByCategory = income.total, income.list()
	rep.Expense, rep.ExpenseByCategory = expense.total, expense.list()
	rep.Profit = rep.Income.Sub(rep.Expense)
	rep.MarginPct = percent(rep.Profit, rep.Income)

	var upsells, ratingSum int64
	for _, j := range l.Jobs {
		if j.Date.MonthKey() != month {
			continue
		}
		rep.OrderCount++
		ratingSum += int64(j.Rating)
		if j.HandymanUpsell {
			upsells++
		}
	}
	if rep.OrderCount > 0 {
		orders := decimal.NewFromInt(int64(rep.OrderCount))
		rep.AvgTicket = rep.Income.Div(orders).Round(2)
		rep.UpsellRatePct = percent(decimal.NewFromInt(upsells), orders)
		rep.AvgRating = core.AvgRating{Value: decimal.NewFromInt(ratingSum).Div(orders).Round(2), Valid: true}
	}

	rep.Payroll = payroll(l.Salaries, month)
	return rep
}

// Months lists every month present in Cashflow or Jobs, most recent first.
func Months(l *ledger.Ledger) []core.MonthKey {
	if l == nil {
		return nil
	}
	seen := make(map[core.MonthKey]struct{})
	for _, e := range l.Cashflow {
		seen[e.Date.MonthKey()] = struct{}{}
	}
	for _, j := range l.Jobs {
		seen[j.Date.MonthKey()] = struct{}{}
	}
	out := make([]core.MonthKey, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Before(out[i]) })
	return out
}

// payroll groups the month's salaries by normalized worker name.
func payroll(salaries []core.SalaryEntry, month core.MonthKey) []core.PayrollLine {
	byWorker := make(map[string]*core.PayrollLine)
	for _, s := range salaries {
		if s.Date.MonthKey() != month {
			continue
		}
		name := core.NormalizeWorkerName(s.WorkerName)
		line, ok := byWorker[name]
		if !ok {
			line = &core.PayrollLine{Worker: name}
			byWorker[name] = line
		}
		line.Hours = line.Hours.Add(s.Hours)
		line.Salary = line.Salary.Add(s.Salary)
	}
	out := make([]core.PayrollLine, 0, len(byWorker))
	for _, line := range byWorker {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Worker < out[j].Worker })
	return out
}

// percent returns part/whole×100 rounded to 2 places, or 0 when whole is 0.
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// categoryTotals sums amounts per category, remembering first-seen order.
type categoryTotals struct {
	total  decimal.Decimal
	order  []string
	totals map[string]decimal.Decimal
}

func (c *categoryTotals) add(category string, amount decimal.Decimal) {
	if c.totals == nil {
		c.totals = make(map[string]decimal.Decimal)
	}
	if _, ok := c.totals[category]; !ok {
		c.order = append(c.order, category)
	}
	c.totals[category] = c.totals[category].Add(amount)
	c.total = c.total.Add(amount)
}

func (c *categoryTotals) list() []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, core.CategoryAmount{Name: name, Amount: c.totals[name]})
	}
	return out
}
