// Package animation schedules cancellable deferred visual updates. Every task
// belongs to a state generation; cancelling a generation is total and
// immediate, so no stale effect can overwrite fresher visual state.
package animation

import (
	"log/slog"
	"sort"
	"time"

	"passages/pkg/logging"
)

// Task is one deferred visual update.
type Task struct {
	Name   string
	Delay  time.Duration
	Effect func()
}

// Handle is a cancellable reference to a scheduled task.
type Handle struct {
	task      Task
	seq       int
	fired     bool
	cancelled bool
}

// Cancel prevents the task from firing if it has not fired yet.
func (h *Handle) Cancel() {
	if !h.fired {
		h.cancelled = true
	}
}

// Fired reports whether the task's effect ran.
func (h *Handle) Fired() bool { return h.fired }

// Cancelled reports whether the task was cancelled before firing.
func (h *Handle) Cancelled() bool { return h.cancelled }

// Name returns the task name.
func (h *Handle) Name() string { return h.task.Name }

// Batch owns the handles of one ScheduleAll call. Handles are ordered stably
// by delay, so tasks with non-decreasing delays fire in scheduling order.
// A single timer is armed for the next due handle.
type Batch struct {
	generation uint64
	handles    []*Handle
	next       int
	start      time.Time
	timer      Timer
	cancelled  bool
}

// Handles returns the batch handles in firing order.
func (b *Batch) Handles() []*Handle {
	return append([]*Handle(nil), b.handles...)
}

// Generation returns the generation the batch was scheduled in.
func (b *Batch) Generation() uint64 { return b.generation }

// Done reports whether every handle has fired or been cancelled.
func (b *Batch) Done() bool {
	return b.cancelled || b.next >= len(b.handles)
}

func (b *Batch) cancel() int {
	if b.cancelled {
		return 0
	}
	b.cancelled = true
	if b.timer != nil {
		b.timer.Stop()
	}
	n := 0
	for _, h := range b.handles[b.next:] {
		if !h.fired && !h.cancelled {
			h.cancelled = true
			n++
		}
	}
	return n
}

// Observer receives scheduler activity, e.g. for metrics.
type Observer interface {
	TasksScheduled(n int)
	TaskFired(name string)
	TasksCancelled(n int)
}

// Scheduler tracks the outstanding batches of the current generation.
// It is not safe for concurrent use; timer callbacks are routed through the
// post function so they execute on the owner's loop.
type Scheduler struct {
	clock      Clock
	post       func(func())
	observer   Observer
	generation uint64
	batches    []*Batch
}

// NewScheduler creates a scheduler. A nil post runs timer callbacks directly
// on the timer goroutine, which is only appropriate for single-goroutine tests.
func NewScheduler(clock Clock, post func(func())) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if post == nil {
		post = func(f func()) { f() }
	}
	return &Scheduler{clock: clock, post: post}
}

// SetObserver installs an activity observer.
func (s *Scheduler) SetObserver(o Observer) {
	s.observer = o
}

// Generation returns the current generation.
func (s *Scheduler) Generation() uint64 {
	return s.generation
}

// ScheduleAll registers a batch of tasks for the current generation.
func (s *Scheduler) ScheduleAll(tasks []Task) *Batch {
	b := &Batch{
		generation: s.generation,
		start:      s.clock.Now(),
		handles:    make([]*Handle, 0, len(tasks)),
	}
	for i, t := range tasks {
		if t.Delay < 0 {
			t.Delay = 0
		}
		b.handles = append(b.handles, &Handle{task: t, seq: i})
	}
	sort.SliceStable(b.handles, func(i, j int) bool {
		return b.handles[i].task.Delay < b.handles[j].task.Delay
	})

	s.prune()
	s.batches = append(s.batches, b)
	if s.observer != nil && len(tasks) > 0 {
		s.observer.TasksScheduled(len(tasks))
	}
	s.arm(b)
	return b
}

// CancelAll invalidates every outstanding task and starts a new generation.
// It returns the number of tasks that will now never fire.
func (s *Scheduler) CancelAll() int {
	n := 0
	for _, b := range s.batches {
		n += b.cancel()
	}
	s.batches = nil
	s.generation++
	if n > 0 {
		slog.Debug("Animation: cancelled pending tasks", "count", n, "generation", s.generation)
		if s.observer != nil {
			s.observer.TasksCancelled(n)
		}
	}
	return n
}

// Pending returns the number of tasks that have neither fired nor been cancelled.
func (s *Scheduler) Pending() int {
	n := 0
	for _, b := range s.batches {
		if b.cancelled {
			continue
		}
		for _, h := range b.handles[b.next:] {
			if !h.cancelled {
				n++
			}
		}
	}
	return n
}

func (s *Scheduler) arm(b *Batch) {
	if b.Done() {
		return
	}
	due := b.start.Add(b.handles[b.next].task.Delay)
	wait := due.Sub(s.clock.Now())
	gen := b.generation
	b.timer = s.clock.AfterFunc(wait, func() {
		s.post(func() { s.fire(b, gen) })
	})
}

// fire runs every handle of b that is due, in order, then re-arms.
func (s *Scheduler) fire(b *Batch, gen uint64) {
	if b.cancelled || gen != s.generation {
		return
	}
	elapsed := s.clock.Now().Sub(b.start)

	for b.next < len(b.handles) {
		h := b.handles[b.next]
		if h.task.Delay > elapsed {
			break
		}
		b.next++
		if h.cancelled {
			continue
		}
		h.fired = true
		logging.TraceDefault("Animation: task fired", "task", h.task.Name, "generation", gen)
		if h.task.Effect != nil {
			h.task.Effect()
		}
		if s.observer != nil {
			s.observer.TaskFired(h.task.Name)
		}
		// An effect may have started a new generation.
		if b.cancelled {
			return
		}
	}
	s.arm(b)
}

func (s *Scheduler) prune() {
	live := s.batches[:0]
	for _, b := range s.batches {
		if !b.Done() {
			live = append(live, b)
		}
	}
	s.batches = live
}
