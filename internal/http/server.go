package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cleaningos/internal/cache"
	"cleaningos/internal/core"
	applog "cleaningos/internal/log"
	"cleaningos/internal/middleware/ratelimit"
	"cleaningos/internal/middleware/security"
	"cleaningos/internal/middleware/trace"
	"cleaningos/internal/pricing"
	"cleaningos/internal/services"
)

// LedgerWriter records business events. *services.Recorder satisfies it.
type LedgerWriter interface {
	CloseJob(ctx context.Context, in services.CloseJobInput) (services.Receipt, error)
	RecordExpense(ctx context.Context, in services.ExpenseInput) (services.Receipt, error)
	RecordSalary(ctx context.Context, in services.SalaryInput) (services.Receipt, error)
	Resume(ctx context.Context, pw *core.PartialWriteError) (services.Receipt, error)
}

// ReportReader serves the read side. *services.ReportService satisfies it.
type ReportReader interface {
	Months(ctx context.Context) ([]core.MonthKey, error)
	MonthlyReport(ctx context.Context, month core.MonthKey) (core.MonthlyReport, error)
	RecentJobs(ctx context.Context, limit int) ([]core.JobRecord, error)
}

// Deps are the collaborators the server needs.
type Deps struct {
	Writer         LedgerWriter
	Reports        ReportReader
	Catalog        *pricing.Catalog
	PricingVersion string
	Backend        string
	Logger         *applog.Logger

	// RateLimit caps writes per client per minute; zero uses the default.
	RateLimit int
}

type Server struct {
	http.Server

	writer  LedgerWriter
	reports ReportReader
	catalog *pricing.Catalog
	engine  *pricing.Engine
	backend string
	logger  *applog.Logger

	pending  *pendingWrites
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Catalog == nil {
		deps.Catalog = pricing.BuiltinCatalog()
	}
	if deps.PricingVersion == "" {
		deps.PricingVersion = pricing.DefaultVersion
	}
	engine, err := deps.Catalog.Engine(deps.PricingVersion)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		writer:   deps.Writer,
		reports:  deps.Reports,
		catalog:  deps.Catalog,
		engine:   engine,
		backend:  deps.Backend,
		logger:   logger,
		pending:  newPendingWrites(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimit}),
		tracer:   trace.NewMiddleware(logger),
		detector: security.NewDetector(logger.WithComponent(applog.ComponentSecurity).Slog()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/quote", s.handleQuote)
	mux.HandleFunc("POST /api/jobs", s.handleCloseJob)
	mux.HandleFunc("GET /api/jobs", s.handleRecentJobs)
	mux.HandleFunc("POST /api/expenses", s.handleRecordExpense)
	mux.HandleFunc("POST /api/salaries", s.handleRecordSalary)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/reports/{month}", s.handleMonthlyReport)
	mux.HandleFunc("POST /api/partial-writes/{id}/resume", s.handleResume)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})

	var h http.Handler = mux
	h = applog.Middleware(logger, trace.RequestIDFromRequest)(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "too many writes, see Retry-After").Write(w)
	}, http.MethodPost)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// PendingWrites exposes the resume store for periodic eviction.
func (s *Server) PendingWrites() cache.Cleaner {
	return s.pending.Cleaner()
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
