package sheet

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache stores the latest snapshot of each sheet.
type Cache interface {
	Get(ctx context.Context, sheet string) (Snapshot, bool, error)
	Set(ctx context.Context, snap Snapshot) error
	Invalidate(ctx context.Context, sheet string) error
}

// Cached serves reads from a Cache and invalidates the sheet after every
// write attempt, successful or not. Invalidation is the only consistency
// mechanism: changes made by other clients are picked up when the entry
// expires or when a conflicting write forces a reload.
type Cached struct {
	next  Backend
	cache Cache
}

// NewCached wraps next with cache.
func NewCached(next Backend, cache Cache) *Cached {
	return &Cached{next: next, cache: cache}
}

// Read returns the cached snapshot or loads and caches it.
func (c *Cached) Read(ctx context.Context, sheet string) (Snapshot, error) {
	if snap, ok, err := c.cache.Get(ctx, sheet); err != nil {
		slog.Warn("sheet cache get failed", "sheet", sheet, "error", err)
	} else if ok {
		return snap, nil
	}

	snap, err := c.next.Read(ctx, sheet)
	if err != nil {
		return Snapshot{}, err
	}
	if err := c.cache.Set(ctx, snap); err != nil {
		slog.Warn("sheet cache set failed", "sheet", sheet, "error", err)
	}
	return snap, nil
}

// Write writes through and drops the cached entry.
func (c *Cached) Write(ctx context.Context, sheet string, t Table, expected int64) (int64, error) {
	version, err := c.next.Write(ctx, sheet, t, expected)
	if ierr := c.cache.Invalidate(ctx, sheet); ierr != nil {
		slog.Warn("sheet cache invalidate failed", "sheet", sheet, "error", ierr)
	}
	return version, err
}

// Close closes the wrapped backend.
func (c *Cached) Close() error {
	return Close(c.next)
}

// LocalCache is a process-wide TTL cache.
type LocalCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]localEntry
}

type localEntry struct {
	snap    Snapshot
	expires time.Time
}

// NewLocalCache returns a cache whose entries live for ttl.
// A ttl of zero disables caching.
func NewLocalCache(ttl time.Duration) *LocalCache {
	return &LocalCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]localEntry),
	}
}

func (l *LocalCache) Get(_ context.Context, sheet string) (Snapshot, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[sheet]
	if !ok {
		return Snapshot{}, false, nil
	}
	if !l.now().Before(e.expires) {
		delete(l.entries, sheet)
		return Snapshot{}, false, nil
	}
	snap := e.snap
	snap.Table = Clone(e.snap.Table)
	return snap, true, nil
}

func (l *LocalCache) Set(_ context.Context, snap Snapshot) error {
	if l.ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	snap.Table = Clone(snap.Table)
	l.entries[snap.Sheet] = localEntry{snap: snap, expires: l.now().Add(l.ttl)}
	return nil
}

func (l *LocalCache) Invalidate(_ context.Context, sheet string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, sheet)
	return nil
}
