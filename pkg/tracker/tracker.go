// Package tracker counts upstream usage per provider for the stats endpoint
// and metrics.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event names passed to hooks.
const (
	EventCacheHit   = "cache_hit"
	EventCacheMiss  = "cache_miss"
	EventAPISuccess = "api_success"
	EventAPIFailure = "api_failure"
	EventAPIZero    = "api_zero"
)

// Hook observes every tracked event.
type Hook func(provider, event string)

// Tracker tracks usage statistics per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
	hook  atomic.Pointer[Hook]
}

// ProviderStats holds metrics for a specific provider.
// Counters are accessed atomically.
type ProviderStats struct {
	CacheHits     int64     `json:"cache_hits"`
	CacheMisses   int64     `json:"cache_misses"`
	APISuccess    int64     `json:"api_success"`
	APIFailures   int64     `json:"api_failures"`
	APIZeroResult int64     `json:"api_zero_result"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
	LastFailure   time.Time `json:"last_failure,omitempty"`

	lastSuccess int64
	lastFailure int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// SetHook installs an event observer, e.g. for Prometheus counters.
func (t *Tracker) SetHook(h Hook) {
	t.hook.Store(&h)
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

func (t *Tracker) notify(provider, event string) {
	if h := t.hook.Load(); h != nil && *h != nil {
		(*h)(provider, event)
	}
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
	t.notify(provider, EventCacheHit)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
	t.notify(provider, EventCacheMiss)
}

func (t *Tracker) TrackAPISuccess(provider string) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.APISuccess, 1)
	atomic.StoreInt64(&s.lastSuccess, time.Now().UnixNano())
	t.notify(provider, EventAPISuccess)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.APIFailures, 1)
	atomic.StoreInt64(&s.lastFailure, time.Now().UnixNano())
	t.notify(provider, EventAPIFailure)
}

// TrackAPIZero counts a successful response that carried no records.
func (t *Tracker) TrackAPIZero(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIZeroResult, 1)
	t.notify(provider, EventAPIZero)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats)
	for k, v := range t.stats {
		result[k] = ProviderStats{
			CacheHits:     atomic.LoadInt64(&v.CacheHits),
			CacheMisses:   atomic.LoadInt64(&v.CacheMisses),
			APISuccess:    atomic.LoadInt64(&v.APISuccess),
			APIFailures:   atomic.LoadInt64(&v.APIFailures),
			APIZeroResult: atomic.LoadInt64(&v.APIZeroResult),
			LastSuccess:   unixTime(atomic.LoadInt64(&v.lastSuccess)),
			LastFailure:   unixTime(atomic.LoadInt64(&v.lastFailure)),
		}
	}
	return result
}

func unixTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
