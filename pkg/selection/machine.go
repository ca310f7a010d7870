// Package selection holds the single source of truth for which narrative and
// which waypoint are active.
package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNarrative is returned when selecting an id that is not in the collection.
	ErrUnknownNarrative = errors.New("unknown narrative")
	// ErrNarrativeExcluded is returned when selecting a narrative filtered out as incomplete.
	ErrNarrativeExcluded = errors.New("narrative excluded from interaction")
	// ErrNotActive is returned when navigating with no active narrative.
	ErrNotActive = errors.New("no active narrative")
)

// State is either Idle or Active(NarrativeID, Index).
type State struct {
	Active      bool   `json:"active"`
	NarrativeID string `json:"narrative_id,omitempty"`
	Index       int    `json:"index"`
}

// Idle is the state with no active narrative.
var Idle = State{}

// Activate returns Active(id, idx).
func Activate(id string, idx int) State {
	return State{Active: true, NarrativeID: id, Index: idx}
}

func (s State) String() string {
	if !s.Active {
		return "Idle"
	}
	return fmt.Sprintf("Active(%s, %d)", s.NarrativeID, s.Index)
}

// Transition describes a state change. Generation identifies the new state.
type Transition struct {
	From       State
	To         State
	Generation uint64
	Length     int // Waypoint count of the active narrative, 0 when idle
}

// NarrativeChanged reports whether the active narrative differs between From and To.
func (t Transition) NarrativeChanged() bool {
	return t.From.NarrativeID != t.To.NarrativeID || t.From.Active != t.To.Active
}

// Listener consumes transitions. Listeners run synchronously, in registration
// order, before the triggering operation returns.
type Listener func(Transition)

// Catalog resolves narrative ids to waypoint counts.
type Catalog interface {
	// Lookup returns the waypoint count and whether the narrative is interactive.
	Lookup(id string) (length int, included bool, ok bool)
}

// Buttons reports which navigation controls are enabled.
type Buttons struct {
	Prev bool `json:"prev"`
	Next bool `json:"next"`
}

// Outcome reports the effect of a navigation request.
type Outcome struct {
	State    State `json:"state"`
	Moved    bool  `json:"moved"`
	Boundary bool  `json:"boundary"`
}

// Machine is the selection state machine. It holds no timers and is not safe
// for concurrent use; callers serialize access (see core.Loop).
type Machine struct {
	catalog    Catalog
	state      State
	length     int
	generation uint64
	listeners  []Listener
}

// NewMachine creates a machine in the Idle state.
func NewMachine(c Catalog) *Machine {
	return &Machine{catalog: c}
}

// OnTransition registers a listener.
func (m *Machine) OnTransition(l Listener) {
	m.listeners = append(m.listeners, l)
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Generation returns the number of transitions so far.
func (m *Machine) Generation() uint64 {
	return m.generation
}

// Length returns the waypoint count of the active narrative.
func (m *Machine) Length() int {
	return m.length
}

// Buttons returns the navigation control state.
func (m *Machine) Buttons() Buttons {
	if !m.state.Active {
		return Buttons{}
	}
	return Buttons{
		Prev: m.state.Index > 0,
		Next: m.state.Index < m.length-1,
	}
}

// Select toggles a narrative: selecting the active one returns to Idle,
// anything else activates it at its first waypoint.
func (m *Machine) Select(id string) (State, error) {
	if m.state.Active && m.state.NarrativeID == id {
		m.transition(Idle, 0)
		return m.state, nil
	}

	length, included, ok := m.catalog.Lookup(id)
	if !ok {
		return m.state, fmt.Errorf("%w: %s", ErrUnknownNarrative, id)
	}
	if !included || length == 0 {
		return m.state, fmt.Errorf("%w: %s", ErrNarrativeExcluded, id)
	}

	m.transition(Activate(id, 0), length)
	return m.state, nil
}

// Navigate moves the active waypoint by delta. Moving outside the sequence is
// a no-op reported as Boundary.
func (m *Machine) Navigate(delta int) (Outcome, error) {
	if !m.state.Active {
		return Outcome{State: m.state}, ErrNotActive
	}
	target := m.state.Index + delta
	if target < 0 || target > m.length-1 {
		return Outcome{State: m.state, Boundary: true}, nil
	}
	if delta == 0 {
		return Outcome{State: m.state}, nil
	}
	m.transition(Activate(m.state.NarrativeID, target), m.length)
	return Outcome{State: m.state, Moved: true}, nil
}

// Jump moves directly to the waypoint at idx.
func (m *Machine) Jump(idx int) (Outcome, error) {
	if !m.state.Active {
		return Outcome{State: m.state}, ErrNotActive
	}
	return m.Navigate(idx - m.state.Index)
}

// Clear returns to Idle unconditionally.
func (m *Machine) Clear() State {
	m.transition(Idle, 0)
	return m.state
}

func (m *Machine) transition(to State, length int) {
	from := m.state
	m.state = to
	m.length = length
	m.generation++

	t := Transition{From: from, To: to, Generation: m.generation, Length: length}
	for _, l := range m.listeners {
		l(t)
	}
}
