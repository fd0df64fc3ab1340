// Package memory is an in-process ledger store used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"cleaningos/internal/core"
)

type Store struct {
	mu     sync.Mutex
	tables map[core.Table][]core.Row
}

func New() *Store {
	return &Store{tables: make(map[core.Table][]core.Row)}
}

// Seed preloads rows, bypassing validation. Handy for fixtures.
func (s *Store) Seed(table core.Table, rows ...core.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], append(core.Row(nil), r...))
	}
}

func (s *Store) Append(ctx context.Context, table core.Table, row core.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !table.Valid() {
		return &core.SchemaError{Table: table}
	}
	if want := len(table.Columns()); len(row) != want {
		return fmt.Errorf("append to %s: got %d cells, want %d", table, len(row), want)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], append(core.Row(nil), row...))
	return nil
}

func (s *Store) ReadAll(ctx context.Context, table core.Table) ([]core.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !table.Valid() {
		return nil, &core.SchemaError{Table: table}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	out := make([]core.Row, len(rows))
	for i, r := range rows {
		out[i] = append(core.Row(nil), r...)
	}
	return out, nil
}

// InvalidateCache is a no-op: the store has nothing cached.
func (s *Store) InvalidateCache() {}

// Len returns the number of rows held in table.
func (s *Store) Len(table core.Table) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table])
}
