package core

import (
	"context"
	"log/slog"
	"time"
)

// CachePruner deletes cached responses older than a given age.
type CachePruner interface {
	PruneCache(olderThan time.Duration) (int64, error)
}

// CachePruneJob periodically evicts expired rows from the SQLite response
// cache, so a changed upstream table is refetched after the TTL.
type CachePruneJob struct {
	BaseJob
	pruner   CachePruner
	ttl      time.Duration
	interval time.Duration

	lastRunTime time.Time
}

func NewCachePruneJob(p CachePruner, ttl, interval time.Duration) *CachePruneJob {
	return &CachePruneJob{
		BaseJob:  NewBaseJob("CachePrune"),
		pruner:   p,
		ttl:      ttl,
		interval: interval,
	}
}

func (j *CachePruneJob) ShouldFire(now time.Time) bool {
	if j.pruner == nil || j.ttl <= 0 || j.interval <= 0 {
		return false
	}
	if !j.TryLock() {
		return false
	}
	defer j.Unlock()

	return now.Sub(j.lastRunTime) >= j.interval
}

func (j *CachePruneJob) Run(ctx context.Context, now time.Time) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.lastRunTime = now
	start := time.Now()
	n, err := j.pruner.PruneCache(j.ttl)
	if err != nil {
		slog.Warn("CachePrune: failed", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("CachePrune: completed", "evicted", n, "ttl", j.ttl, "duration", time.Since(start))
	}
}
