package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cleaningos/internal/cache"
	"cleaningos/internal/core"
)

// DefaultCacheTTL bounds how stale dashboard reads may be.
const DefaultCacheTTL = 5 * time.Minute

// Ledger is the decoded in-memory view of the three tables.
type Ledger struct {
	Cashflow []core.CashEntry
	Jobs     []core.JobRecord
	Salaries []core.SalaryEntry

	// Skipped counts stored rows that could not be decoded.
	Skipped int
}

// JobsNewestFirst returns jobs sorted by date descending, keeping insertion
// order for jobs on the same day reversed as well (latest recorded first).
func (l *Ledger) JobsNewestFirst(limit int) []core.JobRecord {
	out := make([]core.JobRecord, len(l.Jobs))
	for i, j := range l.Jobs {
		out[len(l.Jobs)-1-i] = j
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].Date.After(out[k].Date.Time) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Reader serves table reads from a time-bounded cache in front of a Store.
type Reader struct {
	store  Store
	cache  cache.Cache[[]core.Row]
	logger *slog.Logger

	// gen counts invalidations. A read that spans an invalidation must not
	// refill the cache with rows from before the write.
	mu  sync.Mutex
	gen uint64
}

func NewReader(store Store, c cache.Cache[[]core.Row], logger *slog.Logger) *Reader {
	if c == nil {
		c = cache.NewLRUCache[[]core.Row](len(core.Tables()), DefaultCacheTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{store: store, cache: c, logger: logger}
}

// Rows returns the table's rows, from cache when fresh.
func (r *Reader) Rows(ctx context.Context, table core.Table) ([]core.Row, error) {
	if rows, ok := r.cache.Get(string(table)); ok {
		return rows, nil
	}
	return r.FreshRows(ctx, table)
}

// FreshRows reads the table from storage, bypassing and then refreshing the cache.
func (r *Reader) FreshRows(ctx context.Context, table core.Table) ([]core.Row, error) {
	r.mu.Lock()
	started := r.gen
	r.mu.Unlock()

	rows, err := r.store.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == started {
		r.cache.Set(string(table), rows)
	}
	return rows, nil
}

// Invalidate drops the reader cache and the adapter's own cache so the next
// read reflects every append made so far.
func (r *Reader) Invalidate() {
	r.mu.Lock()
	r.gen++
	r.cache.Purge()
	r.mu.Unlock()
	r.store.InvalidateCache()
}

// Snapshot loads and decodes all three tables. Rows that do not decode are
// logged and skipped.
func (r *Reader) Snapshot(ctx context.Context) (*Ledger, error) {
	tables := core.Tables()
	raw := make([][]core.Row, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			rows, err := r.Rows(gctx, table)
			if err != nil {
				return err
			}
			raw[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l := &Ledger{}
	for i, table := range tables {
		for n, row := range raw[i] {
			var err error
			switch table {
			case core.TableCashflow:
				var e core.CashEntry
				if e, err = DecodeCashEntry(row); err == nil {
					l.Cashflow = append(l.Cashflow, e)
				}
			case core.TableJobs:
				var j core.JobRecord
				if j, err = DecodeJob(row); err == nil {
					l.Jobs = append(l.Jobs, j)
				}
			case core.TableSalaries:
				var s core.SalaryEntry
				if s, err = DecodeSalary(row); err == nil {
					l.Salaries = append(l.Salaries, s)
				}
			}
			if err != nil {
				l.Skipped++
				r.logger.WarnContext(ctx, "Skipping malformed ledger row", "table", table, "position", n+1, "error", err)
			}
		}
	}
	return l, nil
}
