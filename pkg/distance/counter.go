package distance

import (
	"fmt"
	"math"
	"time"

	"passages/pkg/animation"
)

// DefaultStartDelay is how long the counter waits before it starts ticking.
const DefaultStartDelay = 1500 * time.Millisecond

// Tier maps a maximum absolute delta to a tick interval.
type Tier struct {
	MaxDelta int
	Interval time.Duration
}

// DefaultTiers keeps large jumps short on screen.
var DefaultTiers = []Tier{
	{MaxDelta: 100, Interval: 20 * time.Millisecond},
	{MaxDelta: 1000, Interval: 2 * time.Millisecond},
	{MaxDelta: 10000, Interval: 200 * time.Microsecond},
	{MaxDelta: math.MaxInt, Interval: 10 * time.Microsecond},
}

// TickInterval returns the spacing between ticks for a delta of the given size.
func TickInterval(delta int) time.Duration {
	if delta < 0 {
		delta = -delta
	}
	for _, t := range DefaultTiers {
		if delta <= t.MaxDelta {
			return t.Interval
		}
	}
	return DefaultTiers[len(DefaultTiers)-1].Interval
}

// Counter tracks the integer value currently shown to the reader.
// Ticks move it one unit at a time towards the latest target.
type Counter struct {
	displayed  int
	target     int
	startDelay time.Duration
}

// NewCounter creates a counter at zero. A non-positive startDelay uses the default.
func NewCounter(startDelay time.Duration) *Counter {
	if startDelay <= 0 {
		startDelay = DefaultStartDelay
	}
	return &Counter{startDelay: startDelay}
}

// Displayed returns the value currently shown.
func (c *Counter) Displayed() int {
	return c.displayed
}

// Target returns the value the last plan was heading to.
func (c *Counter) Target() int {
	return c.target
}

// Reset shows zero immediately.
func (c *Counter) Reset() {
	c.displayed = 0
	c.target = 0
}

// Plan returns one task per unit step from the displayed value to
// round(target). Each task applies its step and passes the new value to emit.
// Ticks start after the start delay; if a plan is superseded, the next one
// starts from whatever value the fired ticks left behind.
func (c *Counter) Plan(target float64, emit func(value int)) []animation.Task {
	goal := int(math.Round(target))
	c.target = goal
	delta := goal - c.displayed
	if delta == 0 {
		return nil
	}

	step := 1
	n := delta
	if delta < 0 {
		step = -1
		n = -delta
	}
	interval := TickInterval(delta)

	tasks := make([]animation.Task, n)
	for i := range tasks {
		tasks[i] = animation.Task{
			Name:  fmt.Sprintf("counter-%d", i),
			Delay: c.startDelay + time.Duration(i)*interval,
			Effect: func() {
				c.displayed += step
				if emit != nil {
					emit(c.displayed)
				}
			},
		}
	}
	return tasks
}
