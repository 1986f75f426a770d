// Package metrics экспортирует метрики архиватора, сервера подключений и кеша
// снимков в Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/savestate/internal/cache"
	"github.com/annel0/savestate/internal/logging"
	"github.com/annel0/savestate/internal/network"
	"github.com/annel0/savestate/internal/snapshot"
)

const namespace = "savestate"

// JoinStatsProvider источник счётчиков сервера подключений
type JoinStatsProvider interface {
	Stats() network.JoinStats
}

// CacheStatsProvider источник метрик кеша снимков
type CacheStatsProvider interface {
	GetMetrics() *cache.CacheMetrics
}

// Collector принимает отчёты архиватора (snapshot.Observer) и периодически
// переносит счётчики сервера подключений и кеша в Prometheus.
// Метрики регистрируются в собственном реестре.
type Collector struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bytes      *prometheus.HistogramVec
	thinkers   prometheus.Gauge
	tables     prometheus.Gauge
	unresolved prometheus.Counter
	skipped    prometheus.Counter

	joinRequests prometheus.Counter
	joinServed   prometheus.Counter
	joinFailed   prometheus.Counter
	joinBytes    prometheus.Counter
	cacheHits    prometheus.Gauge
	cacheRatio   prometheus.Gauge

	mu        sync.Mutex
	join      JoinStatsProvider
	cacheSrc  CacheStatsProvider
	prevJoin  network.JoinStats
	server    *http.Server
	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
}

var _ snapshot.Observer = (*Collector)(nil)

// NewCollector создаёт метрики и регистрирует их в новом реестре
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_operations_total",
			Help:      "Число операций архивации по виду (save/load) и режиму.",
		}, []string{"op", "mode"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_failures_total",
			Help:      "Неудачные операции архивации.",
		}, []string{"op"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Длительность операций архивации.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"op"}),
		bytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes",
			Help:      "Размер снимков в байтах.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}, []string{"op"}),
		thinkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_thinkers",
			Help:      "Мыслителей в последнем снимке.",
		}),
		tables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_tables",
			Help:      "Таблиц в пуле последнего снимка.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_unresolved_refs_total",
			Help:      "Ссылки на mobj, не разрешённые при загрузке.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_skipped_values_total",
			Help:      "Значения, пропущенные мягким декодером.",
		}),
		joinRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_requests_total",
			Help:      "Запросы снимка подключения.",
		}),
		joinServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_served_total",
			Help:      "Отправленные снимки подключения.",
		}),
		joinFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_failed_total",
			Help:      "Неудачные запросы подключения.",
		}),
		joinBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_bytes_sent_total",
			Help:      "Байт снимков, отправленных клиентам.",
		}),
		cacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "join_cache_hits",
			Help:      "Попадания в кеш снимков подключения.",
		}),
		cacheRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "join_cache_hit_ratio",
			Help:      "Доля попаданий в кеш снимков подключения.",
		}),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	c.registry.MustRegister(
		c.operations, c.failures, c.duration, c.bytes, c.thinkers, c.tables,
		c.unresolved, c.skipped,
		c.joinRequests, c.joinServed, c.joinFailed, c.joinBytes, c.cacheHits, c.cacheRatio,
	)
	return c
}

// Registry возвращает реестр метрик
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler возвращает HTTP-обработчик /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveSave учитывает операцию записи снимка
func (c *Collector) ObserveSave(r *snapshot.Report, err error) {
	c.observe("save", r, err)
	if err == nil {
		c.thinkers.Set(float64(r.Thinkers))
		c.tables.Set(float64(r.Tables))
	}
}

// ObserveLoad учитывает операцию загрузки снимка
func (c *Collector) ObserveLoad(r *snapshot.Report, err error) {
	c.observe("load", r, err)
	if r != nil {
		c.unresolved.Add(float64(r.Unresolved))
		c.skipped.Add(float64(r.Skipped))
	}
}

func (c *Collector) observe(op string, r *snapshot.Report, err error) {
	mode := "none"
	if r != nil {
		mode = r.Mode.String()
	}
	c.operations.WithLabelValues(op, mode).Inc()
	if err != nil {
		c.failures.WithLabelValues(op).Inc()
		return
	}
	c.duration.WithLabelValues(op).Observe(r.Duration.Seconds())
	c.bytes.WithLabelValues(op).Observe(float64(r.Bytes))
}

// Track подключает источники периодически опрашиваемых счётчиков; nil: не опрашивать
func (c *Collector) Track(join JoinStatsProvider, cacheSrc CacheStatsProvider) {
	c.mu.Lock()
	c.join = join
	c.cacheSrc = cacheSrc
	c.mu.Unlock()
}

// Poll переносит текущие значения источников в метрики.
// Счётчики получают приращение с прошлого опроса.
func (c *Collector) Poll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.join != nil {
		stats := c.join.Stats()
		addDelta(c.joinRequests, stats.Requests, c.prevJoin.Requests)
		addDelta(c.joinServed, stats.Served, c.prevJoin.Served)
		addDelta(c.joinFailed, stats.Failed, c.prevJoin.Failed)
		addDelta(c.joinBytes, stats.BytesSent, c.prevJoin.BytesSent)
		c.prevJoin = stats
	}
	if c.cacheSrc != nil {
		m := c.cacheSrc.GetMetrics()
		c.cacheHits.Set(float64(m.CacheHits))
		c.cacheRatio.Set(m.HitRatio)
	}
}

func addDelta(counter prometheus.Counter, cur, prev int64) {
	if d := cur - prev; d > 0 {
		counter.Add(float64(d))
	}
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112")
// и цикл опроса источников. Метод неблокирующий.
func (c *Collector) StartHTTP(addr string, interval time.Duration) {
	c.startOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", c.Handler())
		c.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
			if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
			}
		}()
		go c.loop(interval)
	})
}

// Stop останавливает опрос и HTTP-сервер
func (c *Collector) Stop(ctx context.Context) error {
	select {
	case <-c.quit:
		return nil
	default:
	}
	close(c.quit)
	if c.server == nil {
		return nil
	}
	<-c.done
	return c.server.Shutdown(ctx)
}

func (c *Collector) loop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.Poll()
		case <-c.quit:
			c.Poll()
			return
		}
	}
}
