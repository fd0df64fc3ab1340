package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cleaningos/internal/cache"
	"cleaningos/internal/core"
)

type countingStore struct {
	mu          sync.Mutex
	rows        map[core.Table][]core.Row
	reads       map[core.Table]int
	invalidated int
	failOn      core.Table
}

func newCountingStore() *countingStore {
	return &countingStore{rows: map[core.Table][]core.Row{}, reads: map[core.Table]int{}}
}

func (s *countingStore) Append(_ context.Context, table core.Table, row core.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[table] = append(s.rows[table], row)
	return nil
}

func (s *countingStore) ReadAll(_ context.Context, table core.Table) ([]core.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[table]++
	if table == s.failOn {
		return nil, &core.StorageUnavailableError{Backend: "test", Detail: "offline"}
	}
	return append([]core.Row(nil), s.rows[table]...), nil
}

func (s *countingStore) InvalidateCache() {
	s.mu.Lock()
	s.invalidated++
	s.mu.Unlock()
}

func TestReaderCachesUntilInvalidated(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	r := NewReader(store, cache.NewLRUCache[[]core.Row](0, time.Hour), nil)

	_ = store.Append(ctx, core.TableJobs, core.Row{"2025-01-01", "Apartment", 50.0, "Light", false, 850.0, 5})
	if rows, err := r.Rows(ctx, core.TableJobs); err != nil || len(rows) != 1 {
		t.Fatalf("Rows = %v, %v", rows, err)
	}

	_ = store.Append(ctx, core.TableJobs, core.Row{"2025-01-02", "Villa", 80.0, "Deep", false, 1920.0, 4})
	if rows, _ := r.Rows(ctx, core.TableJobs); len(rows) != 1 {
		t.Fatalf("expected cached read, got %d rows", len(rows))
	}
	if store.reads[core.TableJobs] != 1 {
		t.Fatalf("expected 1 backend read, got %d", store.reads[core.TableJobs])
	}

	r.Invalidate()
	if store.invalidated != 1 {
		t.Fatal("adapter cache was not invalidated")
	}
	if rows, _ := r.Rows(ctx, core.TableJobs); len(rows) != 2 {
		t.Fatalf("expected fresh read after invalidate, got %d rows", len(rows))
	}
}

func TestReaderFreshRowsBypassesCache(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	r := NewReader(store, nil, nil)

	_, _ = r.Rows(ctx, core.TableCashflow)
	_ = store.Append(ctx, core.TableCashflow, core.Row{"2025-01-01", "Expense", "Equipment", 10.0, ""})
	rows, err := r.FreshRows(ctx, core.TableCashflow)
	if err != nil || len(rows) != 1 {
		t.Fatalf("FreshRows = %v, %v", rows, err)
	}
}

// stallingStore snapshots the table, then holds the first read until released.
type stallingStore struct {
	*countingStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallingStore) ReadAll(ctx context.Context, table core.Table) ([]core.Row, error) {
	rows, err := s.countingStore.ReadAll(ctx, table)
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return rows, err
}

func TestReadSpanningInvalidateDoesNotRefillCache(t *testing.T) {
	store := &stallingStore{countingStore: newCountingStore(), entered: make(chan struct{}), release: make(chan struct{})}
	ctx := context.Background()
	r := NewReader(store, cache.NewLRUCache[[]core.Row](0, time.Hour), nil)

	done := make(chan []core.Row)
	go func() {
		rows, _ := r.Rows(ctx, core.TableCashflow)
		done <- rows
	}()

	<-store.entered
	_ = store.Append(ctx, core.TableCashflow, core.Row{"2025-03-05", "Expense", "Other", 85.0, ""})
	r.Invalidate()
	close(store.release)

	if stale := <-done; len(stale) != 0 {
		t.Fatalf("in-flight read returned %d rows, want the pre-write 0", len(stale))
	}
	rows, err := r.Rows(ctx, core.TableCashflow)
	if err != nil || len(rows) != 1 {
		t.Fatalf("Rows after write = %v, %v; want 1 row", rows, err)
	}
}

func TestSnapshotSkipsMalformedRows(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	_ = store.Append(ctx, core.TableCashflow, core.Row{"2025-01-01", "Income", "Cleaning revenue", 850.0, ""})
	_ = store.Append(ctx, core.TableCashflow, core.Row{"not a date", "Income", "Cleaning revenue", 850.0, ""})
	_ = store.Append(ctx, core.TableSalaries, core.Row{"2025-01-01", "ann", 2.0, "Tier1", 100.0})

	l, err := NewReader(store, nil, nil).Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(l.Cashflow) != 1 || l.Skipped != 1 {
		t.Fatalf("cashflow=%d skipped=%d", len(l.Cashflow), l.Skipped)
	}
	if len(l.Salaries) != 1 || l.Salaries[0].WorkerName != "Ann" {
		t.Fatalf("unexpected salaries: %+v", l.Salaries)
	}
}

func TestSnapshotPropagatesStorageErrors(t *testing.T) {
	store := newCountingStore()
	store.failOn = core.TableSalaries
	_, err := NewReader(store, nil, nil).Snapshot(context.Background())
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
}

func TestJobsNewestFirst(t *testing.T) {
	l := &Ledger{Jobs: []core.JobRecord{
		{Date: core.NewDate(2025, 1, 1), Rating: 1},
		{Date: core.NewDate(2025, 1, 3), Rating: 2},
		{Date: core.NewDate(2025, 1, 1), Rating: 3},
	}}
	got := l.JobsNewestFirst(2)
	if len(got) != 2 || got[0].Rating != 2 || got[1].Rating != 3 {
		t.Fatalf("unexpected order: %+v", got)
	}
}
