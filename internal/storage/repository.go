// Package storage is the SQLite ledger store. Each ledger table maps to a SQL
// table whose autoincrement id preserves insertion order.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cleaningos/internal/core"
	"cleaningos/internal/ledger"

	_ "modernc.org/sqlite"
)

const backendName = "sqlite"

var _ ledger.Store = (*SQLiteRepository)(nil)

// sqlTables maps each ledger table to its SQL table and columns, in layout order.
var sqlTables = map[core.Table]struct {
	name    string
	columns []string
}{
	core.TableCashflow: {"cashflow", []string{"date", "type", "category", "amount", "note"}},
	core.TableJobs:     {"jobs", []string{"date", "property", "area_sqm", "tier", "handyman_upsell", "revenue", "rating"}},
	core.TableSalaries: {"salaries", []string{"date", "worker_name", "hours", "clean_type", "salary"}},
}

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection keeps appends ordered.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &core.StorageUnavailableError{Backend: backendName, Detail: dbPath, Err: err}
	}

	version, err := migrateLedger(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}
	logger.Debug("SQLite ledger ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Append(ctx context.Context, table core.Table, row core.Row) error {
	t, ok := sqlTables[table]
	if !ok {
		return &core.SchemaError{Table: table}
	}
	if len(row) != len(t.columns) {
		return fmt.Errorf("append to %s: got %d cells, want %d", table, len(row), len(t.columns))
	}

	args := make([]any, len(row))
	for i, v := range row {
		args[i] = toSQL(v)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(row)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(t.columns, ", "), placeholders)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(table, err)
	}
	id, _ := res.LastInsertId()
	r.logger.DebugContext(ctx, "Ledger row saved to SQLite", "table", table, "id", id)
	return nil
}

func (r *SQLiteRepository) ReadAll(ctx context.Context, table core.Table) ([]core.Row, error) {
	t, ok := sqlTables[table]
	if !ok {
		return nil, &core.SchemaError{Table: table}
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(t.columns, ", "), t.name)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(table, err)
	}
	defer rows.Close()

	var out []core.Row
	for rows.Next() {
		row := make(core.Row, len(t.columns))
		ptrs := make([]any, len(row))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(table, err)
	}
	return out, nil
}

// InvalidateCache is a no-op: SQLite reads are always current.
func (r *SQLiteRepository) InvalidateCache() {}

// toSQL stores numbers as exact decimal text and booleans as 0/1.
func toSQL(v any) any {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return v
	}
}

func classify(table core.Table, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return &core.SchemaError{Table: table, Detail: msg}
	case strings.Contains(msg, "no such column"), strings.Contains(msg, "has no column named"):
		return &core.SchemaError{Table: table, Column: columnFromError(msg), Detail: msg}
	default:
		return &core.StorageUnavailableError{Backend: backendName, Err: err}
	}
}

func columnFromError(msg string) string {
	for _, marker := range []string{"has no column named ", "no such column: "} {
		if _, after, ok := strings.Cut(msg, marker); ok {
			return strings.Fields(after + " ")[0]
		}
	}
	return ""
}
