// Package ledger is the storage-facing half of the ledger model: the storage
// adapter port, the row layouts of the three tables, and a cache-backed reader
// that turns stored rows into domain entries.
package ledger

import (
	"context"

	"cleaningos/internal/core"
)

// Store is the storage adapter contract. Tables are append-only ordered logs:
// there is no update or delete.
type Store interface {
	// Append adds one row at the end of the table.
	Append(ctx context.Context, table core.Table, row core.Row) error

	// ReadAll returns every data row of the table in insertion order,
	// without any header row.
	ReadAll(ctx context.Context, table core.Table) ([]core.Row, error)

	// InvalidateCache drops whatever the adapter memoises about the backing
	// store. Called after every successful append.
	InvalidateCache()
}

// Closer is implemented by stores holding connections or file handles.
type Closer interface {
	Close() error
}
