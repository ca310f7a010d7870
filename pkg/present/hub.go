package present

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 256

// Subscriber is one consumer of the effect stream. Consumers read C and,
// whenever Ready fires, the values returned by Latest. Each effect read from
// C goes through Accept before it is shown.
type Subscriber struct {
	ID    string
	C     <-chan Effect
	Ready <-chan struct{}

	ch    chan Effect
	ready chan struct{}

	mu        sync.Mutex
	latest    map[Kind]Effect // Newest value held back while the queue was full
	delivered map[Kind]uint64 // Sequence of the last value shown per kind
}

// coalesced reports whether only the newest effect of kind k matters.
// Counter and progress effects carry absolute values.
func coalesced(k Kind) bool {
	return k == KindCounter || k == KindProgress
}

// hold keeps e as the newest undelivered value of its kind.
func (s *Subscriber) hold(e Effect) {
	s.mu.Lock()
	s.latest[e.Kind] = e
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Accept reports whether e, read from C, should be shown. A counter or
// progress value older than one already shown is rejected.
func (s *Subscriber) Accept(e Effect) bool {
	if !coalesced(e.Kind) {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Seq <= s.delivered[e.Kind] {
		return false
	}
	s.delivered[e.Kind] = e.Seq
	return true
}

// Latest returns the held-back values newer than anything shown, in
// sequence order, and marks them shown.
func (s *Subscriber) Latest() []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Effect
	for k, e := range s.latest {
		delete(s.latest, k)
		if e.Seq > s.delivered[k] {
			s.delivered[k] = e.Seq
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Hub fans effects out to subscribers. A subscriber whose queue is full
// misses the effect, except that the newest counter and progress values are
// held for it; the emitter never blocks.
type Hub struct {
	mu      sync.Mutex
	buffer  int
	nextSeq uint64
	subs    map[string]*Subscriber
	dropped uint64
	onDrop  func()
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{buffer: buffer, subs: make(map[string]*Subscriber)}
}

// OnDrop installs a callback invoked for every undelivered effect.
func (h *Hub) OnDrop(f func()) {
	h.mu.Lock()
	h.onDrop = f
	h.mu.Unlock()
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan Effect, h.buffer)
	ready := make(chan struct{}, 1)
	s := &Subscriber{
		ID:        uuid.NewString(),
		C:         ch,
		Ready:     ready,
		ch:        ch,
		ready:     ready,
		latest:    make(map[Kind]Effect),
		delivered: make(map[Kind]uint64),
	}

	h.mu.Lock()
	h.subs[s.ID] = s
	n := len(h.subs)
	h.mu.Unlock()

	slog.Debug("Hub: subscriber added", "id", s.ID, "subscribers", n)
	return s
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	s, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(s.ch)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		slog.Debug("Hub: subscriber removed", "id", id, "subscribers", n)
	}
}

// Emit stamps a sequence number on e and delivers it to every subscriber.
func (h *Hub) Emit(e Effect) {
	h.mu.Lock()
	h.nextSeq++
	e.Seq = h.nextSeq
	dropped := 0
	for _, s := range h.subs {
		select {
		case s.ch <- e:
		default:
			if coalesced(e.Kind) {
				s.hold(e)
				continue
			}
			dropped++
		}
	}
	h.dropped += uint64(dropped)
	onDrop := h.onDrop
	h.mu.Unlock()

	if dropped > 0 {
		slog.Debug("Hub: dropped effect for slow subscribers", "kind", e.Kind, "count", dropped)
		if onDrop != nil {
			for i := 0; i < dropped; i++ {
				onDrop()
			}
		}
	}
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns the total number of undelivered effects.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Sequence returns the sequence number of the last emitted effect.
func (h *Hub) Sequence() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

// Recorder is a Sink that keeps every effect in memory.
type Recorder struct {
	mu      sync.Mutex
	effects []Effect
}

// Emit appends e.
func (r *Recorder) Emit(e Effect) {
	r.mu.Lock()
	r.effects = append(r.effects, e)
	r.mu.Unlock()
}

// Effects returns a copy of the recorded effects.
func (r *Recorder) Effects() []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Effect(nil), r.effects...)
}

// Kinds returns the kinds of the recorded effects in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.effects))
	for i, e := range r.effects {
		out[i] = e.Kind
	}
	return out
}

// Reset forgets recorded effects.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.effects = nil
	r.mu.Unlock()
}

// Tee emits to every sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Effect) {
		for _, s := range sinks {
			s.Emit(e)
		}
	})
}
