package backend

import (
	"context"
	"fmt"
	"log/slog"

	"cleaningos/internal/ledger"
	"cleaningos/internal/sheets/excel"
	gsheet "cleaningos/internal/sheets/google"
	"cleaningos/internal/sheets/memory"
	"cleaningos/internal/storage"
)

// opener knows how to open one backend and which setting it cannot do without.
type opener struct {
	setting  string
	required func(Config) string
	open     func(ctx context.Context, c Config, logger *slog.Logger) (ledger.Store, error)
}

var openers = map[BackendType]opener{
	MemoryBackend: {
		open: func(_ context.Context, _ Config, logger *slog.Logger) (ledger.Store, error) {
			logger.Warn("Using memory backend, ledger will not survive a restart")
			return memory.New(), nil
		},
	},
	SQLiteBackend: {
		setting:  "SQLITE_DB_PATH",
		required: func(c Config) string { return c.SQLiteDBPath },
		open: func(_ context.Context, c Config, logger *slog.Logger) (ledger.Store, error) {
			return storage.NewSQLiteRepository(c.SQLiteDBPath, logger)
		},
	},
	ExcelBackend: {
		setting:  "EXCEL_PATH",
		required: func(c Config) string { return c.ExcelPath },
		open: func(_ context.Context, c Config, logger *slog.Logger) (ledger.Store, error) {
			return excel.Open(c.ExcelPath, logger)
		},
	},
	SheetsBackend: {
		setting:  "GOOGLE_SPREADSHEET_ID",
		required: func(c Config) string { return c.GoogleSpreadsheetID },
		open: func(ctx context.Context, c Config, logger *slog.Logger) (ledger.Store, error) {
			return gsheet.Dial(ctx, c.GoogleSpreadsheetID, logger)
		},
	},
}

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend validates config and opens the selected store.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	store, err := openers[config.Type].open(ctx, config, f.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", config.Type, err)
	}
	f.logger.Info("Ledger backend ready", "backend", config.Type.String(), "location", location(config))
	return &BackendResult{Type: config.Type, Store: store}, nil
}

func location(c Config) string {
	if o := openers[c.Type]; o.required != nil {
		return o.required(c)
	}
	return "in-process"
}
