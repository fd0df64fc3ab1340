package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"cleaningos/internal/core"
	applog "cleaningos/internal/log"
	"cleaningos/internal/pricing"
	"cleaningos/internal/services"
)

const (
	readyTimeout     = 5 * time.Second
	defaultJobsLimit = 50
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.tracer.GetMetrics()
	NewJSONResponse().Body(map[string]any{
		"status":          "ok",
		"backend":         s.backend,
		"pricing_version": s.engine.Version(),
		"requests":        m.TotalRequests,
		"server_errors":   m.ServerErrors,
	}).Write(w)
}

// handleReady reports ready only when the ledger can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if _, err := s.reports.Months(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		DomainErrorResponse(err, "").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

type cleanTypeInfo struct {
	Name       core.CleanType  `json:"name"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
}

type priceTableInfo struct {
	Version            string                               `json:"version"`
	Rates              map[core.ServiceTier]decimal.Decimal `json:"rates"`
	SurchargeThreshold decimal.Decimal                      `json:"surcharge_threshold"`
	Surcharge          decimal.Decimal                      `json:"surcharge"`
	AddOnFees          map[pricing.AddOn]decimal.Decimal    `json:"addon_fees"`
}

type catalogResponse struct {
	ActiveVersion      string                  `json:"active_version"`
	Versions           []string                `json:"versions"`
	PriceTable         priceTableInfo          `json:"price_table"`
	ServiceTiers       []core.ServiceTier      `json:"service_tiers"`
	PropertyCategories []core.PropertyCategory `json:"property_categories"`
	AddOns             []pricing.AddOn         `json:"addons"`
	ExpenseCategories  []core.ExpenseCategory  `json:"expense_categories"`
	CleanTypes         []cleanTypeInfo         `json:"clean_types"`
}

// handleCatalog lists every closed enumeration and the active price table,
// which is what a form needs to offer valid choices.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	t := s.engine.Table()
	resp := catalogResponse{
		ActiveVersion: t.Version,
		Versions:      s.catalog.Versions(),
		PriceTable: priceTableInfo{
			Version:            t.Version,
			Rates:              t.Rates,
			SurchargeThreshold: t.SurchargeThreshold,
			Surcharge:          t.Surcharge,
			AddOnFees:          t.AddOnFees,
		},
		ServiceTiers:       core.ServiceTiers(),
		PropertyCategories: core.PropertyCategories(),
		AddOns:             pricing.AddOns(),
		ExpenseCategories:  core.ExpenseCategories(),
	}
	for _, ct := range core.CleanTypes() {
		resp.CleanTypes = append(resp.CleanTypes, cleanTypeInfo{Name: ct, HourlyRate: ct.HourlyRate()})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, err := ParseQuoteRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, r, applog.OpQuote, err)
		return
	}
	engine := s.engine
	if req.Version != "" {
		if engine, err = s.catalog.Engine(req.Version); err != nil {
			s.writeError(w, r, applog.OpQuote, &core.ValidationError{Field: "version", Reason: err.Error()})
			return
		}
	}
	q, err := engine.Quote(req.Area, req.Tier, req.AddOns...)
	if err != nil {
		s.writeError(w, r, applog.OpQuote, err)
		return
	}
	NewJSONResponse().Body(q).Write(w)
}

func (s *Server) handleCloseJob(w http.ResponseWriter, r *http.Request) {
	var req CloseJobRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, applog.OpCloseJob, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, r, applog.OpCloseJob, err)
		return
	}
	receipt, err := s.writer.CloseJob(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpCloseJob, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(receipt).Write(w)
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, applog.OpRecordExpense, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, r, applog.OpRecordExpense, err)
		return
	}
	receipt, err := s.writer.RecordExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpRecordExpense, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(receipt).Write(w)
}

func (s *Server) handleRecordSalary(w http.ResponseWriter, r *http.Request) {
	var req SalaryRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, applog.OpRecordSalary, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.writeError(w, r, applog.OpRecordSalary, err)
		return
	}
	receipt, err := s.writer.RecordSalary(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpRecordSalary, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(receipt).Write(w)
}

func (s *Server) handleRecentJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r.URL.Query(), defaultJobsLimit)
	if err != nil {
		s.writeError(w, r, applog.OpReport, err)
		return
	}
	jobs, err := s.reports.RecentJobs(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, applog.OpReport, err)
		return
	}
	if jobs == nil {
		jobs = []core.JobRecord{}
	}
	NewJSONResponse().Body(map[string]any{"jobs": jobs}).Write(w)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.reports.Months(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpReport, err)
		return
	}
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = m.String()
	}
	NewJSONResponse().Body(map[string]any{"months": out}).Write(w)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonthKey(r.PathValue("month"))
	if err != nil {
		s.writeError(w, r, applog.OpReport, err)
		return
	}
	rep, err := s.reports.MonthlyReport(r.Context(), month)
	if err != nil {
		s.writeError(w, r, applog.OpReport, err)
		return
	}
	NewJSONResponse().Body(rep).Write(w)
}

type resumeResponse struct {
	ResumeID      string `json:"resume_id"`
	Event         string `json:"event"`
	Appended      int    `json:"appended"`
	AlreadyStored int    `json:"already_stored"`
}

// handleResume completes a stored partial write. A resume that fails again
// keeps the same ID pointing at what is still pending.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pw, ok := s.pending.Get(id)
	if !ok {
		NotFoundError("no pending write with that id").Write(w)
		return
	}

	receipt, err := s.writer.Resume(r.Context(), pw)
	if err != nil {
		var again *core.PartialWriteError
		if errors.As(err, &again) {
			s.pending.Replace(id, again)
		}
		applog.LogError(r.Context(), "Resume failed", err, errorType(err), applog.OpResume)
		DomainErrorResponse(err, id).Write(w)
		return
	}
	s.pending.Delete(id)
	NewJSONResponse().Body(resumeResponse{
		ResumeID:      id,
		Event:         pw.Event,
		Appended:      len(receipt.Rows),
		AlreadyStored: len(pw.Pending) - len(receipt.Rows),
	}).Write(w)
}

// writeError logs err and writes the mapped response. Partial writes are
// stored so the client can resume them.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()

	var pw *core.PartialWriteError
	if errors.As(err, &pw) {
		id := s.pending.Put(pw)
		applog.LogError(ctx, "Ledger write left incomplete", err, applog.ErrorTypePartialWrite, op)
		DomainErrorResponse(err, id).Write(w)
		return
	}

	switch {
	case errors.Is(err, core.ErrValidation):
		applog.FromContext(ctx).WarnContext(ctx, "Request rejected", applog.FieldOperation, op, applog.FieldError, err)
	case errors.Is(err, core.ErrStorageUnavailable), errors.Is(err, core.ErrSchema):
		applog.LogError(ctx, "Ledger storage failed", err, errorType(err), op)
	case errors.As(err, new(*malformedBodyError)):
		applog.FromContext(ctx).WarnContext(ctx, "Bad request", applog.FieldOperation, op, applog.FieldError, err)
		BadRequestError(err.Error()).Write(w)
		return
	default:
		applog.LogError(ctx, "Request failed", err, applog.ErrorTypeInternal, op)
	}
	DomainErrorResponse(err, "").Write(w)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrPartialWrite):
		return applog.ErrorTypePartialWrite
	case errors.Is(err, core.ErrValidation):
		return applog.ErrorTypeValidation
	case errors.Is(err, core.ErrStorageUnavailable):
		return applog.ErrorTypeStorage
	case errors.Is(err, core.ErrSchema):
		return applog.ErrorTypeSchema
	}
	return applog.ErrorTypeInternal
}

var _ LedgerWriter = (*services.Recorder)(nil)
var _ ReportReader = (*services.ReportService)(nil)
