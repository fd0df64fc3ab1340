package services

import (
	"context"
	"fmt"
	"log/slog"

	"cleaningos/internal/analytics"
	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
	applog "cleaningos/internal/log"
)

// ReportService answers dashboard queries from the cached ledger.
type ReportService struct {
	reader *ledger.Reader
	logger *slog.Logger
}

func NewReportService(reader *ledger.Reader, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{reader: reader, logger: logger}
}

// Months returns the selectable months, most recent first.
func (s *ReportService) Months(ctx context.Context) ([]core.MonthKey, error) {
	l, err := s.reader.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return analytics.Months(l), nil
}

func (s *ReportService) MonthlyReport(ctx context.Context, month core.MonthKey) (core.MonthlyReport, error) {
	l, err := s.reader.Snapshot(ctx)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load ledger: %w", err)
	}
	rep := analytics.Monthly(l, month)
	s.logger.DebugContext(ctx, "Monthly report computed",
		applog.FieldOperation, applog.OpReport,
		applog.FieldMonth, month.String(),
		"orders", rep.OrderCount,
		"skipped_rows", l.Skipped)
	return rep, nil
}

// RecentJobs lists jobs newest first; limit <= 0 means all.
func (s *ReportService) RecentJobs(ctx context.Context, limit int) ([]core.JobRecord, error) {
	l, err := s.reader.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return l.JobsNewestFirst(limit), nil
}
