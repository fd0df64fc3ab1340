// Package backend builds the ledger storage adapter selected by configuration.
package backend

import (
	"context"

	"cleaningos/internal/ledger"
)

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
	ExcelBackend  BackendType = "excel"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	_, ok := openers[bt]
	return ok
}

// BackendResult is an opened store. Close releases whatever the adapter holds
// and is safe on stores that hold nothing.
type BackendResult struct {
	Type  BackendType
	Store ledger.Store
}

func (r *BackendResult) Close() error {
	if r == nil {
		return nil
	}
	if c, ok := r.Store.(ledger.Closer); ok {
		return c.Close()
	}
	return nil
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config names the backend and the settings it needs. Sheets credentials come
// from the environment, not from here.
type Config struct {
	Type                BackendType
	SQLiteDBPath        string
	ExcelPath           string
	GoogleSpreadsheetID string
}
