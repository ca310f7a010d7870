// Package core runs the narrative engine: a single event loop serialising
// reader commands and animation timers, and the heartbeat for background jobs.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"passages/pkg/animation"
	"passages/pkg/config"
	"passages/pkg/distance"
	"passages/pkg/geo"
	"passages/pkg/index"
	"passages/pkg/metrics"
	"passages/pkg/model"
	"passages/pkg/present"
	"passages/pkg/selection"
)

// Options holds the animation timing and display settings.
type Options struct {
	ActivateDelay time.Duration // Before the camera flies to the first waypoint
	RevealStep    time.Duration // Between point reveals
	FlyDuration   time.Duration
	FlyZoom       int
	ProgressDelay time.Duration
	CounterDelay  time.Duration
	Unit          geo.Unit
}

// DefaultOptions returns the reference timings.
func DefaultOptions() Options {
	return Options{
		ActivateDelay: 500 * time.Millisecond,
		RevealStep:    100 * time.Millisecond,
		FlyDuration:   1500 * time.Millisecond,
		FlyZoom:       9,
		ProgressDelay: 1500 * time.Millisecond,
		CounterDelay:  distance.DefaultStartDelay,
		Unit:          geo.Miles,
	}
}

// OptionsFromConfig converts the animation and distance config sections.
func OptionsFromConfig(a config.AnimationConfig, d config.DistanceConfig) (Options, error) {
	unit, err := geo.ParseUnit(d.Unit)
	if err != nil {
		return Options{}, err
	}
	return Options{
		ActivateDelay: time.Duration(a.ActivateDelay),
		RevealStep:    time.Duration(a.RevealStep),
		FlyDuration:   time.Duration(a.FlyDuration),
		FlyZoom:       a.FlyZoom,
		ProgressDelay: time.Duration(a.ProgressDelay),
		CounterDelay:  time.Duration(a.CounterDelay),
		Unit:          unit,
	}, nil
}

// Snapshot is the observable engine state.
type Snapshot struct {
	State      selection.State   `json:"state"`
	Length     int               `json:"length"`
	Generation uint64            `json:"generation"`
	Color      string            `json:"color,omitempty"`
	Distance   float64           `json:"distance"` // Exact travelled distance to the active waypoint
	Counter    int               `json:"counter"`  // Value currently displayed
	Unit       geo.Unit          `json:"unit"`
	Progress   float64           `json:"progress"`
	Buttons    selection.Buttons `json:"buttons"`
	Pending    int               `json:"pending_animations"`
}

// Engine wires selection transitions to the distance counter, the animation
// scheduler and the effect sink. Every method except Do must be called on
// the engine's loop.
type Engine struct {
	loop       *Loop
	sink       present.Sink
	opts       Options
	collection *index.Collection
	machine    *selection.Machine
	counter    *distance.Counter
	sched      *animation.Scheduler
	progress   float64
	revealed   []bool // Per waypoint of the active narrative
}

// NewEngine creates an idle engine over an empty collection. A nil clock
// uses real time.
func NewEngine(loop *Loop, clock animation.Clock, sink present.Sink, opts Options) *Engine {
	if sink == nil {
		sink = present.Discard
	}
	if opts.Unit == "" {
		opts.Unit = geo.Miles
	}
	e := &Engine{
		loop:       loop,
		sink:       sink,
		opts:       opts,
		collection: index.Empty(),
		counter:    distance.NewCounter(opts.CounterDelay),
	}
	e.sched = animation.NewScheduler(clock, func(f func()) { loop.Post(f) })
	e.sched.SetObserver(metrics.Animations{})
	e.machine = selection.NewMachine(e)
	e.machine.OnTransition(e.onTransition)
	return e
}

// Do runs fn on the engine loop and waits for it.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	return e.loop.Call(ctx, fn)
}

// Lookup resolves ids against the current collection.
func (e *Engine) Lookup(id string) (length int, included bool, ok bool) {
	return e.collection.Lookup(id)
}

// Collection returns the current collection.
func (e *Engine) Collection() *index.Collection {
	return e.collection
}

// SetCollection replaces the collection. An active selection is cleared.
func (e *Engine) SetCollection(c *index.Collection) {
	if c == nil {
		c = index.Empty()
	}
	e.collection = c
	if e.machine.State().Active {
		e.machine.Clear()
	}
	slog.Info("Engine: collection loaded", "narratives", c.Len(), "included", c.IncludedCount())
}

// Options returns the current settings.
func (e *Engine) Options() Options {
	return e.opts
}

// SetUnit changes the distance unit for subsequent transitions.
func (e *Engine) SetUnit(u geo.Unit) {
	e.opts.Unit = u
}

// SetFlyZoom changes the camera zoom for subsequent transitions.
func (e *Engine) SetFlyZoom(z int) {
	e.opts.FlyZoom = z
}

// Select toggles a narrative.
func (e *Engine) Select(id string) (selection.State, error) {
	st, err := e.machine.Select(id)
	if err != nil {
		metrics.CommandErrorsTotal.WithLabelValues("select").Inc()
		slog.Debug("Engine: select rejected", "id", id, "error", err)
	}
	return st, err
}

// Navigate moves the active waypoint by delta.
func (e *Engine) Navigate(delta int) (selection.Outcome, error) {
	out, err := e.machine.Navigate(delta)
	e.observeOutcome("navigate", out, err)
	return out, err
}

// Jump moves the active waypoint to idx.
func (e *Engine) Jump(idx int) (selection.Outcome, error) {
	out, err := e.machine.Jump(idx)
	e.observeOutcome("jump", out, err)
	return out, err
}

// Clear returns to Idle.
func (e *Engine) Clear() selection.State {
	return e.machine.Clear()
}

func (e *Engine) observeOutcome(cmd string, out selection.Outcome, err error) {
	if err != nil {
		metrics.CommandErrorsTotal.WithLabelValues(cmd).Inc()
		return
	}
	if out.Boundary {
		metrics.BoundaryHitsTotal.Inc()
		slog.Debug("Engine: navigation at boundary", "state", out.State.String())
	}
}

// Snapshot returns the observable state.
func (e *Engine) Snapshot() Snapshot {
	st := e.machine.State()
	s := Snapshot{
		State:      st,
		Length:     e.machine.Length(),
		Generation: e.machine.Generation(),
		Counter:    e.counter.Displayed(),
		Unit:       e.opts.Unit,
		Progress:   e.progress,
		Buttons:    e.machine.Buttons(),
		Pending:    e.sched.Pending(),
	}
	if st.Active {
		s.Color = e.collection.Color(st.NarrativeID)
		if n, ok := e.collection.Get(st.NarrativeID); ok {
			s.Distance = distance.Travelled(n.Points(), st.Index, e.opts.Unit)
		}
	}
	return s
}

func (e *Engine) emit(ef present.Effect) {
	e.sink.Emit(ef)
}

func (e *Engine) onTransition(t selection.Transition) {
	e.sched.CancelAll()
	gen := t.Generation
	slog.Debug("Engine: transition", "from", t.From.String(), "to", t.To.String(), "generation", gen)

	if !t.To.Active {
		metrics.TransitionsTotal.WithLabelValues("idle").Inc()
		e.counter.Reset()
		e.progress = 0
		e.revealed = nil
		e.emit(present.Clear(gen))
		e.emit(present.Counter(gen, 0, e.opts.Unit))
		e.emit(present.Buttons(gen, false, false))
		return
	}

	n, ok := e.collection.Get(t.To.NarrativeID)
	if !ok {
		// Lookup succeeded moments ago on the same loop.
		slog.Error("Engine: active narrative missing from collection", "id", t.To.NarrativeID)
		return
	}
	id := n.ID
	color := e.collection.Color(id)

	var tasks []animation.Task
	var offset time.Duration
	if t.NarrativeChanged() {
		metrics.TransitionsTotal.WithLabelValues("narrative").Inc()
		e.counter.Reset()
		e.progress = 0
		e.revealed = make([]bool, n.Len())
		e.emit(present.Clear(gen))
		e.emit(present.FocusNarrative(gen, id, color))
		e.emit(present.ShowPassages(gen, id))
		e.emit(present.CardScroll(gen, id, -1))
		e.emit(present.Counter(gen, 0, e.opts.Unit))
		tasks = append(tasks, e.revealTasks(gen, n, color)...)
		offset = e.opts.ActivateDelay
	} else {
		metrics.TransitionsTotal.WithLabelValues("waypoint").Inc()
		// Cancelling above also dropped any reveal still pending.
		e.revealRemaining(gen, n, color)
	}

	b := e.machine.Buttons()
	e.emit(present.Buttons(gen, b.Prev, b.Next))

	tasks = append(tasks, e.focusTasks(gen, n, t.To.Index, offset)...)
	e.sched.ScheduleAll(tasks)
}

// revealTasks draws the narrative's points one after another.
func (e *Engine) revealTasks(gen uint64, n *model.Narrative, color string) []animation.Task {
	tasks := make([]animation.Task, 0, n.Len())
	for i, w := range n.Waypoints {
		i, p := i, w.Point
		tasks = append(tasks, animation.Task{
			Name:  fmt.Sprintf("reveal-%d", i),
			Delay: time.Duration(i) * e.opts.RevealStep,
			Effect: func() {
				e.revealed[i] = true
				e.emit(present.RevealWaypoint(gen, n.ID, i, p, color))
			},
		})
	}
	return tasks
}

// revealRemaining draws at once every point whose reveal has not fired.
func (e *Engine) revealRemaining(gen uint64, n *model.Narrative, color string) {
	if len(e.revealed) != n.Len() {
		e.revealed = make([]bool, n.Len())
	}
	for i, w := range n.Waypoints {
		if e.revealed[i] {
			continue
		}
		e.revealed[i] = true
		e.emit(present.RevealWaypoint(gen, n.ID, i, w.Point, color))
	}
}

// focusTasks moves the view to waypoint k, starting after offset.
func (e *Engine) focusTasks(gen uint64, n *model.Narrative, k int, offset time.Duration) []animation.Task {
	id := n.ID
	point := n.Waypoints[k].Point
	zoom, fly, unit := e.opts.FlyZoom, e.opts.FlyDuration, e.opts.Unit
	percent := float64(k+1) / float64(n.Len()) * 100

	tasks := []animation.Task{
		{Name: "fly", Delay: offset, Effect: func() {
			e.emit(present.FlyTo(gen, id, k, point, zoom, fly))
		}},
		{Name: "highlight", Delay: offset, Effect: func() {
			e.emit(present.Highlight(gen, id, k))
		}},
	}
	if k > 0 {
		tasks = append(tasks, animation.Task{Name: "scroll", Delay: offset, Effect: func() {
			e.emit(present.CardScroll(gen, id, k))
		}})
	}
	tasks = append(tasks, animation.Task{Name: "progress", Delay: offset + e.opts.ProgressDelay, Effect: func() {
		e.progress = percent
		e.emit(present.Progress(gen, id, percent))
	}})

	travelled := distance.Travelled(n.Points(), k, unit)
	for _, ct := range e.counter.Plan(travelled, func(v int) {
		e.emit(present.Counter(gen, v, unit))
	}) {
		ct.Delay += offset
		tasks = append(tasks, ct)
	}
	return tasks
}
