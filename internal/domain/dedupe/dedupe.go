// Package dedupe tracks webhook delivery identifiers so a redelivered
// payload is credited at most once.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// Deduper caches delivery IDs whose credit has committed. The store's unique
// delivery index is authoritative; a Deduper only short-circuits redeliveries.
type Deduper interface {
	// Seen reports whether id was recorded and has not expired.
	Seen(ctx context.Context, id string) (bool, error)

	// Record remembers id. Call it only after the credit committed.
	Record(ctx context.Context, id string) error

	// Size reports the number of tracked IDs, or -1 when unknown.
	Size() int64
}

type entry struct {
	id   string
	seen time.Time
}

// memoryDeduper keeps IDs in a map backed by a FIFO ring. When the ring is
// full the oldest ID is evicted. Entries older than ttl are treated as unseen.
type memoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ring    []entry
	head    int
	count   int
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory returns an in-process Deduper. It is lost on restart.
func NewMemory(opts ...MemoryOption) Deduper {
	d := &memoryDeduper{
		maxSize: DefaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]time.Time)
	if d.maxSize > 0 {
		d.ring = make([]entry, d.maxSize)
	}
	return d
}

func (d *memoryDeduper) Seen(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fresh(id, d.now()), nil
}

func (d *memoryDeduper) Record(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.fresh(id, now) {
		return nil
	}
	if d.maxSize > 0 {
		if d.count == d.maxSize {
			d.evictOldest()
		}
		idx := (d.head + d.count) % d.maxSize
		d.ring[idx] = entry{id: id, seen: now}
		d.count++
	}
	d.seen[id] = now
	return nil
}

// fresh reports whether id is tracked and within ttl. Caller holds d.mu.
func (d *memoryDeduper) fresh(id string, now time.Time) bool {
	at, ok := d.seen[id]
	return ok && (d.ttl <= 0 || now.Sub(at) < d.ttl)
}

// evictOldest drops the ring head. A slot whose id was re-recorded after
// expiry no longer matches the map and leaves the newer entry alone. Caller
// holds d.mu.
func (d *memoryDeduper) evictOldest() {
	old := d.ring[d.head]
	if at, ok := d.seen[old.id]; ok && at.Equal(old.seen) {
		delete(d.seen, old.id)
	}
	d.ring[d.head] = entry{}
	d.head = (d.head + 1) % d.maxSize
	d.count--
}

func (d *memoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
