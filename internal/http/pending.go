package http

import (
	"time"

	"github.com/google/uuid"

	"cleaningos/internal/cache"
	"cleaningos/internal/core"
)

const (
	pendingWritesMax = 256
	pendingWritesTTL = 24 * time.Hour
)

// pendingWrites keeps partial writes reachable by a resume ID until they are
// completed or expire.
type pendingWrites struct {
	items *cache.LRUCache[*core.PartialWriteError]
}

func newPendingWrites() *pendingWrites {
	return &pendingWrites{items: cache.NewLRUCache[*core.PartialWriteError](pendingWritesMax, pendingWritesTTL)}
}

// Put stores pw and returns its new resume ID.
func (p *pendingWrites) Put(pw *core.PartialWriteError) string {
	id := uuid.NewString()
	p.items.Set(id, pw)
	return id
}

// Replace keeps id pointing at the latest state of a partially resumed write.
func (p *pendingWrites) Replace(id string, pw *core.PartialWriteError) {
	p.items.Set(id, pw)
}

func (p *pendingWrites) Get(id string) (*core.PartialWriteError, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	return p.items.Get(id)
}

func (p *pendingWrites) Delete(id string) {
	p.items.Delete(id)
}

// Cleaner exposes the store for periodic eviction of expired entries.
func (p *pendingWrites) Cleaner() cache.Cleaner {
	return p.items
}
