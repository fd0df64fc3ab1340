package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"cleaningos/internal/amqp"
	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
	applog "cleaningos/internal/log"
)

// EventPublisher announces completed ledger events. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Recorder turns business events into ledger rows. Rows of one event are
// appended in order; a failure after the first row surfaces as a
// *core.PartialWriteError that Resume can complete.
type Recorder struct {
	// mu serializes writes; baselines are only valid with a single writer.
	mu sync.Mutex

	store     ledger.Store
	reader    *ledger.Reader
	publisher EventPublisher
	logger    *slog.Logger
}

// CloseJobInput describes a finished job and what the client paid for it.
type CloseJobInput struct {
	Date           core.Date
	Property       core.PropertyCategory
	AreaSqm        decimal.Decimal
	Tier           core.ServiceTier
	HandymanUpsell bool
	CleaningPrice  decimal.Decimal
	HandymanPrice  decimal.Decimal
	Rating         int
	Note           string
}

type ExpenseInput struct {
	Date     core.Date
	Category core.ExpenseCategory
	Amount   decimal.Decimal
	Note     string
}

type SalaryInput struct {
	Date       core.Date
	WorkerName string
	Hours      decimal.Decimal
	CleanType  core.CleanType
}

// Receipt lists what an operation stored.
type Receipt struct {
	Job      *core.JobRecord   `json:"job,omitempty"`
	Salary   *core.SalaryEntry `json:"salary,omitempty"`
	Entries  []core.CashEntry  `json:"entries"`
	Rows     []core.PendingRow `json:"-"`
	Warnings []string          `json:"warnings,omitempty"`
}

func NewRecorder(store ledger.Store, reader *ledger.Reader, publisher EventPublisher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if reader == nil {
		reader = ledger.NewReader(store, nil, logger)
	}
	return &Recorder{store: store, reader: reader, publisher: publisher, logger: logger}
}

// CloseJob stores the job and one income entry per non-zero revenue line.
func (r *Recorder) CloseJob(ctx context.Context, in CloseJobInput) (Receipt, error) {
	if in.CleaningPrice.IsNegative() {
		return Receipt{}, &core.ValidationError{Field: "cleaning_price", Reason: "price cannot be negative"}
	}
	if in.HandymanPrice.IsNegative() {
		return Receipt{}, &core.ValidationError{Field: "handyman_price", Reason: "price cannot be negative"}
	}
	if in.HandymanPrice.IsPositive() && !in.HandymanUpsell {
		return Receipt{}, &core.ValidationError{Field: "handyman_price", Reason: "handyman price requires the handyman upsell flag"}
	}

	job := core.JobRecord{
		Date:           in.Date,
		Property:       in.Property,
		AreaSqm:        in.AreaSqm,
		Tier:           in.Tier,
		HandymanUpsell: in.HandymanUpsell,
		TotalRevenue:   in.CleaningPrice.Add(in.HandymanPrice),
		Rating:         in.Rating,
		Note:           strings.TrimSpace(in.Note),
	}
	if err := job.Validate(); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{Job: &job}
	if in.CleaningPrice.IsPositive() {
		receipt.Entries = append(receipt.Entries, core.CashEntry{
			Date: job.Date, Type: core.Income, Category: core.CategoryCleaningRevenue, Amount: in.CleaningPrice, Note: job.Note,
		})
	}
	if in.HandymanUpsell && in.HandymanPrice.IsPositive() {
		receipt.Entries = append(receipt.Entries, core.CashEntry{
			Date: job.Date, Type: core.Income, Category: core.CategoryHandymanRevenue, Amount: in.HandymanPrice, Note: job.Note,
		})
	}
	if len(receipt.Entries) == 0 {
		receipt.Warnings = append(receipt.Warnings, "job recorded with zero revenue")
		r.logger.WarnContext(ctx, "Job closed without revenue", applog.FieldOperation, applog.OpCloseJob, "date", job.Date.String())
	}

	rows := []core.PendingRow{{Table: core.TableJobs, Row: ledger.EncodeJob(job)}}
	for _, e := range receipt.Entries {
		rows = append(rows, core.PendingRow{Table: core.TableCashflow, Row: ledger.EncodeCashEntry(e)})
	}
	if err := r.write(ctx, applog.OpCloseJob, amqp.KindJobClosed, rows); err != nil {
		return Receipt{}, err
	}
	receipt.Rows = rows

	r.logger.InfoContext(ctx, "Job closed",
		applog.FieldOperation, applog.OpCloseJob,
		"revenue", job.TotalRevenue.StringFixed(2),
		"income_entries", len(receipt.Entries))
	return receipt, nil
}

// RecordExpense stores one expense entry.
func (r *Recorder) RecordExpense(ctx context.Context, in ExpenseInput) (Receipt, error) {
	if !in.Category.Valid() {
		return Receipt{}, &core.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown expense category %q", in.Category)}
	}
	entry := core.CashEntry{
		Date:     in.Date,
		Type:     core.Expense,
		Category: string(in.Category),
		Amount:   in.Amount,
		Note:     strings.TrimSpace(in.Note),
	}
	if err := entry.Validate(); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{Entries: []core.CashEntry{entry}}
	if entry.Amount.IsZero() {
		receipt.Warnings = append(receipt.Warnings, "expense recorded with zero amount")
		r.logger.WarnContext(ctx, "Zero expense recorded", applog.FieldOperation, applog.OpRecordExpense, applog.FieldCategory, entry.Category)
	}

	rows := []core.PendingRow{{Table: core.TableCashflow, Row: ledger.EncodeCashEntry(entry)}}
	if err := r.write(ctx, applog.OpRecordExpense, amqp.KindExpenseRecorded, rows); err != nil {
		return Receipt{}, err
	}
	receipt.Rows = rows

	r.logger.InfoContext(ctx, "Expense recorded",
		applog.NewFields().WithOperation(applog.OpRecordExpense).WithEntry(string(core.TableCashflow), entry.Category, entry.Amount).ToSlice()...)
	return receipt, nil
}

// RecordSalary stores the salary row and its payroll expense.
func (r *Recorder) RecordSalary(ctx context.Context, in SalaryInput) (Receipt, error) {
	name := strings.Join(strings.Fields(in.WorkerName), " ")
	if name == "" {
		return Receipt{}, &core.ValidationError{Field: "worker_name", Reason: "worker name is required"}
	}
	if !in.CleanType.Valid() {
		return Receipt{}, &core.ValidationError{Field: "clean_type", Reason: fmt.Sprintf("unknown clean type %q", in.CleanType)}
	}
	salary := core.SalaryEntry{
		Date:       in.Date,
		WorkerName: name,
		Hours:      in.Hours,
		CleanType:  in.CleanType,
		Salary:     core.ComputeSalary(in.Hours, in.CleanType).Round(2),
	}
	if err := salary.Validate(); err != nil {
		return Receipt{}, err
	}
	entry := core.CashEntry{
		Date:     salary.Date,
		Type:     core.Expense,
		Category: string(core.ExpensePayroll),
		Amount:   salary.Salary,
		Note:     fmt.Sprintf("%s (%sh)", salary.WorkerName, salary.Hours.String()),
	}

	rows := []core.PendingRow{
		{Table: core.TableSalaries, Row: ledger.EncodeSalary(salary)},
		{Table: core.TableCashflow, Row: ledger.EncodeCashEntry(entry)},
	}
	if err := r.write(ctx, applog.OpRecordSalary, amqp.KindSalaryRecorded, rows); err != nil {
		return Receipt{}, err
	}

	r.logger.InfoContext(ctx, "Salary recorded",
		applog.FieldOperation, applog.OpRecordSalary,
		applog.FieldWorker, salary.WorkerName,
		applog.FieldAmount, salary.Salary.StringFixed(2))
	return Receipt{Salary: &salary, Entries: []core.CashEntry{entry}, Rows: rows}, nil
}

// Resume appends the pending rows of a partial write that are still missing.
// A row counts as written once its table holds more identical rows than it
// did before the event, so repeated calls never duplicate rows.
func (r *Recorder) Resume(ctx context.Context, pw *core.PartialWriteError) (Receipt, error) {
	if pw == nil || len(pw.Pending) == 0 {
		return Receipt{}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reader.Invalidate()

	var appended []core.PendingRow
	written := append([]core.PendingRow(nil), pw.Written...)
	for i, p := range pw.Pending {
		current, err := r.reader.FreshRows(ctx, p.Table)
		if err != nil {
			return Receipt{Rows: appended}, &core.PartialWriteError{Event: pw.Event, Written: written, Pending: pw.Pending[i:], Err: err}
		}
		if ledger.CountIdentical(p.Table, current, p.Row) > p.Baseline {
			r.logger.InfoContext(ctx, "Pending row already stored", applog.FieldOperation, applog.OpResume, applog.FieldTable, p.Table)
			written = append(written, p)
			continue
		}
		if err := r.store.Append(ctx, p.Table, p.Row); err != nil {
			return Receipt{Rows: appended}, &core.PartialWriteError{Event: pw.Event, Written: written, Pending: pw.Pending[i:], Err: err}
		}
		r.reader.Invalidate()
		appended = append(appended, p)
		written = append(written, p)
	}

	if len(appended) > 0 {
		r.publish(ctx, amqp.KindWriteResumed, appended)
	}
	r.logger.InfoContext(ctx, "Partial write resumed",
		applog.FieldOperation, applog.OpResume,
		applog.FieldEvent, pw.Event,
		"appended", len(appended),
		"already_stored", len(pw.Pending)-len(appended))
	return Receipt{Rows: appended}, nil
}

// write appends rows in order, invalidating caches after each success.
func (r *Recorder) write(ctx context.Context, event, kind string, rows []core.PendingRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.captureBaselines(ctx, rows); err != nil {
		return fmt.Errorf("%s: %w", event, err)
	}
	for i, p := range rows {
		if err := r.store.Append(ctx, p.Table, p.Row); err != nil {
			if i == 0 {
				return fmt.Errorf("%s: %w", event, err)
			}
			pw := &core.PartialWriteError{Event: event, Written: rows[:i], Pending: rows[i:], Err: err}
			r.logger.ErrorContext(ctx, "Ledger event partially written",
				applog.FieldOperation, event,
				"written", i,
				"pending", len(rows)-i,
				applog.FieldError, err)
			return pw
		}
		r.reader.Invalidate()
	}
	r.publish(ctx, kind, rows)
	return nil
}

// captureBaselines records, per row, how many identical rows its table holds
// before the event, counting identical rows planned earlier in the same event.
func (r *Recorder) captureBaselines(ctx context.Context, rows []core.PendingRow) error {
	stored := make(map[core.Table][]core.Row)
	for i := range rows {
		t := rows[i].Table
		if _, ok := stored[t]; !ok {
			existing, err := r.reader.Rows(ctx, t)
			if err != nil {
				return err
			}
			stored[t] = existing
		}
		rows[i].Baseline = ledger.CountIdentical(t, stored[t], rows[i].Row)
		for _, earlier := range rows[:i] {
			if earlier.Table == t && ledger.Canonical(t, earlier.Row) == ledger.Canonical(t, rows[i].Row) {
				rows[i].Baseline++
			}
		}
	}
	return nil
}

func (r *Recorder) publish(ctx context.Context, kind string, rows []core.PendingRow) {
	if r.publisher == nil {
		return
	}
	eventRows := make([]amqp.EventRow, len(rows))
	for i, p := range rows {
		eventRows[i] = amqp.EventRow{Table: p.Table, Row: p.Row, Baseline: p.Baseline}
	}
	ev := amqp.NewLedgerEvent(kind, eventRows)
	if err := r.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish ledger event",
			applog.FieldEvent, kind,
			applog.FieldEventID, ev.ID,
			applog.FieldError, err)
	}
}
