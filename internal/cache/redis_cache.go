package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/logging"
)

// RedisConfig содержит параметры подключения к Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL снимка; 0: 30 секунд
	TTL time.Duration
	// MaxConnections размер пула; 0: 10
	MaxConnections int
}

// RedisCache реализует JoinCache поверх Redis. Несколько серверов одной
// карты делят общий снимок подключения.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	stats  stats
	log    *logging.Logger
}

// NewRedisCache подключается к Redis и проверяет соединение.
func NewRedisCache(ctx context.Context, config RedisConfig) (*RedisCache, error) {
	if config.TTL == 0 {
		config.TTL = 30 * time.Second
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.MaxConnections,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, eris.Wrapf(err, "failed to connect to Redis %s", config.Addr)
	}

	c := &RedisCache{client: rdb, ttl: config.TTL, log: logging.GetNetworkLogger()}
	c.log.Info("Redis cache initialized: %s (TTL %s)", config.Addr, config.TTL)
	return c, nil
}

// Put сохраняет снимок карты.
func (r *RedisCache) Put(ctx context.Context, mapName string, data []byte) error {
	start := time.Now()
	defer r.stats.recordLatency(start)

	key, err := joinKey(mapName)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Error("❌ Redis Set error for key %s: %v", key, err)
		return eris.Wrap(err, "redis set error")
	}
	atomic.StoreInt64(&r.stats.stored, int64(len(data)))
	return nil
}

// Get получает снимок карты из Redis.
func (r *RedisCache) Get(ctx context.Context, mapName string) ([]byte, error) {
	start := time.Now()
	defer r.stats.recordLatency(start)

	key, err := joinKey(mapName)
	if err != nil {
		return nil, err
	}
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		r.stats.miss()
		return nil, eris.Wrapf(ErrCacheMiss, "%s", mapName)
	}
	if err != nil {
		r.stats.miss()
		r.log.Error("❌ Redis Get error for key %s: %v", key, err)
		return nil, eris.Wrap(err, "redis get error")
	}
	r.stats.hit()
	return val, nil
}

// Invalidate удаляет снимок карты.
func (r *RedisCache) Invalidate(ctx context.Context, mapName string) error {
	key, err := joinKey(mapName)
	if err != nil {
		return err
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return eris.Wrap(err, "redis del error")
	}
	atomic.StoreInt64(&r.stats.stored, 0)
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		return eris.Wrap(err, "redis close")
	}
	r.log.Info("Redis cache closed")
	return nil
}

// GetMetrics возвращает текущие метрики кеша.
func (r *RedisCache) GetMetrics() *CacheMetrics {
	return r.stats.snapshot()
}
