// Package excel stores the ledger in a local .xlsx workbook laid out like the
// Google spreadsheet: one sheet per table with a header row.
package excel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
)

const backendName = "excel"

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// Open returns a store backed by the workbook at path, creating it with the
// three ledger sheets when it does not exist yet.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.create(); err != nil {
			return nil, err
		}
		logger.Info("Created ledger workbook", "path", path)
	} else if err != nil {
		return nil, &core.StorageUnavailableError{Backend: backendName, Detail: path, Err: err}
	}
	return s, nil
}

func (s *Store) create() error {
	f := excelize.NewFile()
	defer f.Close()

	for i, table := range core.Tables() {
		name := string(table)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename default sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		header := make([]any, 0, len(table.Columns()))
		for _, c := range table.Columns() {
			header = append(header, c)
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write %s header: %w", name, err)
		}
	}
	if err := f.SaveAs(s.path); err != nil {
		return &core.StorageUnavailableError{Backend: backendName, Detail: s.path, Err: err}
	}
	return nil
}

func (s *Store) Append(ctx context.Context, table core.Table, row core.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := s.rows(f, table)
	if err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	values := []any(row)
	if err := f.SetSheetRow(string(table), cell, &values); err != nil {
		return fmt.Errorf("write %s row: %w", table, err)
	}
	if err := f.Save(); err != nil {
		return &core.StorageUnavailableError{Backend: backendName, Detail: s.path, Err: err}
	}
	return nil
}

func (s *Store) ReadAll(ctx context.Context, table core.Table) ([]core.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := s.rows(f, table)
	if err != nil {
		return nil, err
	}
	out := make([]core.Row, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		row := make(core.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// InvalidateCache is a no-op: every call reads the workbook from disk.
func (s *Store) InvalidateCache() {}

func (s *Store) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, &core.StorageUnavailableError{Backend: backendName, Detail: s.path, Err: err}
	}
	return f, nil
}

// rows returns every row of the table's sheet, header included, after
// checking the header against the layout.
func (s *Store) rows(f *excelize.File, table core.Table) ([][]string, error) {
	if idx, err := f.GetSheetIndex(string(table)); err != nil || idx < 0 {
		return nil, &core.SchemaError{Table: table, Detail: "sheet not found in " + s.path}
	}
	rows, err := f.GetRows(string(table), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s rows: %w", table, err)
	}
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	for i, col := range table.Columns() {
		if i >= len(header) || !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, &core.SchemaError{Table: table, Column: col}
		}
	}
	return rows, nil
}

func blank(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
