package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cleaningos/internal/amqp"
	"cleaningos/internal/cache"
	"cleaningos/internal/core"
	"cleaningos/internal/ledger"
	applog "cleaningos/internal/log"
)

const (
	progressCacheSize = 1024
	progressTTL       = 24 * time.Hour
)

// MirrorWorker copies ledger events into a second store so the ledger has an
// off-site copy.
type MirrorWorker struct {
	mirror ledger.Store
	logger *slog.Logger

	// progress counts rows already applied per event ID, so a redelivered
	// event resumes where it stopped instead of duplicating rows.
	progress *cache.LRUCache[int]
}

func NewMirrorWorker(mirror ledger.Store, logger *slog.Logger) *MirrorWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorWorker{
		mirror:   mirror,
		logger:   logger,
		progress: cache.NewLRUCache[int](progressCacheSize, progressTTL),
	}
}

// Progress exposes the dedupe cache so it can be registered for cleanup.
func (w *MirrorWorker) Progress() *cache.LRUCache[int] {
	return w.progress
}

// HandleLedgerEvent appends the event's rows to the mirror in order. A row is
// skipped when the mirror already holds more identical rows than the row's
// baseline, which happens when Reconcile copied it before the event arrived.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	done, _ := w.progress.Get(ev.ID)
	if done >= len(ev.Rows) {
		w.logger.InfoContext(ctx, "Ledger event already mirrored", applog.FieldEventID, ev.ID)
		return nil
	}

	stored := make(map[core.Table][]core.Row)
	appended, skipped := 0, 0
	defer func() {
		if appended > 0 {
			w.mirror.InvalidateCache()
		}
	}()

	for i := done; i < len(ev.Rows); i++ {
		r := ev.Rows[i]
		current, ok := stored[r.Table]
		if !ok {
			rows, err := w.mirror.ReadAll(ctx, r.Table)
			if err != nil {
				w.progress.Set(ev.ID, i)
				return fmt.Errorf("read mirror %s for event %s: %w", r.Table, ev.ID, err)
			}
			current = rows
		}
		if ledger.CountIdentical(r.Table, current, r.Row) > r.Baseline {
			skipped++
			stored[r.Table] = current
			continue
		}
		if err := w.mirror.Append(ctx, r.Table, r.Row); err != nil {
			w.progress.Set(ev.ID, i)
			return fmt.Errorf("mirror %s row %d of event %s: %w", r.Table, i+1, ev.ID, err)
		}
		appended++
		stored[r.Table] = append(current, r.Row)
	}
	w.progress.Set(ev.ID, len(ev.Rows))

	w.logger.InfoContext(ctx, "Ledger event mirrored",
		applog.FieldOperation, applog.OpMirror,
		applog.FieldEvent, ev.Kind,
		applog.FieldEventID, ev.ID,
		"rows", appended,
		"already_present", skipped)
	return nil
}

// Reconcile appends to the mirror every source row past the mirror's length,
// table by table. Both stores are append-only logs, so the mirror is expected
// to be a prefix of the source. Used at startup to catch up on lost events.
func (w *MirrorWorker) Reconcile(ctx context.Context, source ledger.Store) (int, error) {
	copied := 0
	for _, table := range core.Tables() {
		src, err := source.ReadAll(ctx, table)
		if err != nil {
			return copied, fmt.Errorf("read source %s: %w", table, err)
		}
		dst, err := w.mirror.ReadAll(ctx, table)
		if err != nil {
			return copied, fmt.Errorf("read mirror %s: %w", table, err)
		}
		if len(dst) > len(src) {
			w.logger.WarnContext(ctx, "Mirror holds more rows than the source", applog.FieldTable, table, "mirror", len(dst), "source", len(src))
			continue
		}
		for _, row := range src[len(dst):] {
			if err := w.mirror.Append(ctx, table, row); err != nil {
				return copied, fmt.Errorf("append mirror %s: %w", table, err)
			}
			copied++
		}
	}
	if copied > 0 {
		w.mirror.InvalidateCache()
	}
	w.logger.InfoContext(ctx, "Mirror reconciled", "rows_copied", copied)
	return copied, nil
}
