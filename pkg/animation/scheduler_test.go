package animation_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passages/internal/testsupport"
	"passages/pkg/animation"
)

type recorder struct {
	fired []string
}

func (r *recorder) task(name string, delay time.Duration) animation.Task {
	return animation.Task{Name: name, Delay: delay, Effect: func() { r.fired = append(r.fired, name) }}
}

type countingObserver struct {
	scheduled, fired, cancelled int
}

func (o *countingObserver) TasksScheduled(n int) { o.scheduled += n }
func (o *countingObserver) TaskFired(string)     { o.fired++ }
func (o *countingObserver) TasksCancelled(n int) { o.cancelled += n }

func TestScheduleAll_FiresInScheduleOrder(t *testing.T) {
	clock := testsupport.NewFakeClock()
	s := animation.NewScheduler(clock, nil)
	r := &recorder{}

	var tasks []animation.Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, r.task(fmt.Sprintf("reveal-%d", i), time.Duration(i/3)*10*time.Millisecond))
	}
	b := s.ScheduleAll(tasks)

	clock.Advance(time.Second)
	require.Len(t, r.fired, 10)
	for i, name := range r.fired {
		assert.Equal(t, fmt.Sprintf("reveal-%d", i), name)
	}
	assert.True(t, b.Done())
	assert.Equal(t, 0, s.Pending())
}

func TestScheduleAll_UnorderedDelaysFireByTime(t *testing.T) {
	clock := testsupport.NewFakeClock()
	s := animation.NewScheduler(clock, nil)
	r := &recorder{}

	s.ScheduleAll([]animation.Task{
		r.task("late", 30*time.Millisecond),
		r.task("early", 10*time.Millisecond),
		r.task("tie-a", 20*time.Millisecond),
		r.task("tie-b", 20*time.Millisecond),
	})

	clock.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"early"}, r.fired)
	clock.Advance(15 * time.Millisecond)
	assert.Equal(t, []string{"early", "tie-a", "tie-b", "late"}, r.fired)
}

func TestScheduleAll_EachTaskFiresOnce(t *testing.T) {
	clock := testsupport.NewFakeClock()
	s := animation.NewScheduler(clock, nil)
	count := 0
	s.ScheduleAll([]animation.Task{{Name: "once", Delay: 5 * time.Millisecond, Effect: func() { count++ }}})

	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Millisecond)
	}
	assert.Equal(t, 1, count)
}

func TestCancelAll_NothingFiresAfterwards(t *testing.T) {
	clock := testsupport.NewFakeClock()
	s := animation.NewScheduler(clock, nil)
	obs := &countingObserver{}
	s.SetObserver(obs)
	r := &recorder{}

	b := s.ScheduleAll([]animation.Task{
		r.task("now", 0),
		r.task("soon", 10*time.Millisecond),
		r.task("later", 100*time.Millisecond),
	})
	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"now", "soon"}, r.fired)

	n := s.CancelAll()
	assert.Equal(t, 1, n)
	clock.Advance(time.Second)
	assert.Equal(t, []string{"now", "soon"}, r.fired)

	hs := b.Handles()
	assert.True(t, hs[0].Fired())
	assert.True(t, hs[2].Cancelled())
	assert.Equal(t, 3, obs.scheduled)
	assert.Equal(t, 2, obs.fired)
	assert.Equal(t, 1, obs.cancelled)
	assert.Equal(t, 0, clock.Pending(), "cancel stops the driver timer")
}

func TestCancelAll_QueuedCallbackIsStale(t *testing.T) {
	clock := testsupport.NewFakeClock()
	var queue []func()
	s := animation.NewScheduler(clock, func(f func()) { queue = append(queue, f) })
	r := &recorder{}

	s.ScheduleAll([]animation.Task{r.task("stale", 10*time.Millisecond)})
	clock.Advance(10 * time.Millisecond)
	require.Len(t, queue, 1, "timer fired and posted to the loop")

	// A new command runs on the loop before the posted callback.
	s.CancelAll()
	s.ScheduleAll([]animation.Task{r.task("fresh", 0)})
	clock.Advance(0)

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		f()
	}
	assert.Equal(t, []string{"fresh"}, r.fired)
}

func TestHandleCancel(t *testing.T) {
	clock := testsupport.NewFakeClock()
	s := animation.NewScheduler(clock, nil)
	r := &recorder{}

	b := s.ScheduleAll([]animation.Task{r.task("a", 1*time.Millisecond), r.task("b", 2*time.Millisecond)})
	b.Handles()[0].Cancel()
	assert.Equal(t, 1, s.Pending())

	clock.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"b"}, r.fired)
}

func TestEffectCancellingGeneration(t *testing.T) {
	clock := testsupport.NewFakeClock()
	s := animation.NewScheduler(clock, nil)
	r := &recorder{}

	s.ScheduleAll([]animation.Task{
		{Name: "reset", Delay: 0, Effect: func() { s.CancelAll() }},
		r.task("after", 0),
	})
	clock.Advance(time.Millisecond)
	assert.Empty(t, r.fired)
}

func TestMultipleBatchesSameGeneration(t *testing.T) {
	clock := testsupport.NewFakeClock()
	s := animation.NewScheduler(clock, nil)
	r := &recorder{}

	s.ScheduleAll([]animation.Task{r.task("a", 20*time.Millisecond)})
	s.ScheduleAll([]animation.Task{r.task("b", 10*time.Millisecond)})
	assert.Equal(t, 2, s.Pending())

	clock.Advance(30 * time.Millisecond)
	assert.Equal(t, []string{"b", "a"}, r.fired)

	gen := s.Generation()
	s.CancelAll()
	assert.Equal(t, gen+1, s.Generation())
}
