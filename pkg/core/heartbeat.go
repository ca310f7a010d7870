package core

import (
	"context"
	"log/slog"
	"time"
)

// Heartbeat evaluates background jobs on a fixed interval.
type Heartbeat struct {
	interval time.Duration
	jobs     []Job
}

// NewHeartbeat creates a heartbeat. Non-positive intervals default to one second.
func NewHeartbeat(interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = time.Second
	}
	return &Heartbeat{interval: interval}
}

// AddJob registers a job.
func (h *Heartbeat) AddJob(j Job) {
	h.jobs = append(h.jobs, j)
}

// Start runs the loop, ticking once immediately. It blocks until ctx is cancelled.
func (h *Heartbeat) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	slog.Info("Heartbeat started", "interval", h.interval, "jobs", len(h.jobs))
	h.tick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			slog.Info("Heartbeat stopped")
			return
		case now := <-ticker.C:
			h.tick(ctx, now)
		}
	}
}

func (h *Heartbeat) tick(ctx context.Context, now time.Time) {
	for _, job := range h.jobs {
		if job.ShouldFire(now) {
			// Fire and forget
			go job.Run(ctx, now)
		}
	}
}
