package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// stats общие счётчики кешей
type stats struct {
	requests int64
	hits     int64
	misses   int64
	stored   int64

	mu           sync.Mutex
	latencySum   int64 // в наносекундах
	latencyCount int64
	maxLatency   int64
}

func (s *stats) recordLatency(start time.Time) {
	d := time.Since(start).Nanoseconds()
	s.mu.Lock()
	s.latencySum += d
	s.latencyCount++
	if d > s.maxLatency {
		s.maxLatency = d
	}
	s.mu.Unlock()
}

func (s *stats) hit() {
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.hits, 1)
}

func (s *stats) miss() {
	atomic.AddInt64(&s.requests, 1)
	atomic.AddInt64(&s.misses, 1)
}

func (s *stats) snapshot() *CacheMetrics {
	m := &CacheMetrics{
		TotalRequests: atomic.LoadInt64(&s.requests),
		CacheHits:     atomic.LoadInt64(&s.hits),
		CacheMisses:   atomic.LoadInt64(&s.misses),
		StoredBytes:   atomic.LoadInt64(&s.stored),
		LastUpdate:    time.Now(),
	}
	if m.TotalRequests > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(m.TotalRequests)
	}
	s.mu.Lock()
	if s.latencyCount > 0 {
		m.AvgLatencyMs = float64(s.latencySum) / float64(s.latencyCount) / 1e6
	}
	m.MaxLatencyMs = float64(s.maxLatency) / 1e6
	s.mu.Unlock()
	return m
}
