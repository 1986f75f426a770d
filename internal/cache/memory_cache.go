package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryCache JoinCache в памяти процесса для одиночного сервера.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	stats   stats
}

// NewMemoryCache создаёт кеш; ttl == 0: без истечения.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryCache) Put(ctx context.Context, mapName string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := joinKey(mapName)
	if err != nil {
		return err
	}
	e := memoryEntry{data: append([]byte(nil), data...)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	atomic.StoreInt64(&m.stats.stored, int64(len(data)))
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, mapName string) ([]byte, error) {
	start := time.Now()
	defer m.stats.recordLatency(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := joinKey(mapName)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && !m.now().Before(e.expires)) {
		m.stats.miss()
		return nil, eris.Wrapf(ErrCacheMiss, "%s", mapName)
	}
	m.stats.hit()
	return e.data, nil
}

func (m *MemoryCache) Invalidate(_ context.Context, mapName string) error {
	key, err := joinKey(mapName)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	atomic.StoreInt64(&m.stats.stored, 0)
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) GetMetrics() *CacheMetrics {
	return m.stats.snapshot()
}
