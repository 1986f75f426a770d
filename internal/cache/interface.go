package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// JoinCache хранит последний снимок подключения для каждой карты, чтобы
// одновременно подключающиеся клиенты получали один и тот же снимок без
// повторной архивации.
//
// Использование:
//
//	c := cache.NewMemoryCache(30 * time.Second)
//	err := c.Put(ctx, "MAP01", data)
//	data, err = c.Get(ctx, "MAP01")
//	err = c.Invalidate(ctx, "MAP01")
type JoinCache interface {
	// Put сохраняет снимок карты с TTL кеша
	Put(ctx context.Context, mapName string, data []byte) error

	// Get возвращает снимок карты или ErrCacheMiss
	Get(ctx context.Context, mapName string) ([]byte, error)

	// Invalidate удаляет снимок карты (смена уровня, загрузка сохранения)
	Invalidate(ctx context.Context, mapName string) error

	// Close освобождает соединения
	Close() error

	// GetMetrics возвращает копию метрик кеша
	GetMetrics() *CacheMetrics
}

// CacheMetrics содержит метрики производительности кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	StoredBytes int64 `json:"stored_bytes"`

	LastUpdate time.Time `json:"last_update"`
}

// Ошибки кеша
var (
	ErrCacheMiss  = eris.New("cache miss")
	ErrInvalidKey = eris.New("invalid key")
)

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return eris.Is(err, ErrCacheMiss)
}

const keyPrefix = "snapshot:join:"

func joinKey(mapName string) (string, error) {
	if mapName == "" {
		return "", ErrInvalidKey
	}
	return keyPrefix + mapName, nil
}
