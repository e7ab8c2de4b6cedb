package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/mailsync/internal/bus"
)

// State represents a daemon runtime state.
type State string

const (
	Booting State = "BOOTING"
	Ready   State = "READY"
	// Degraded means the last batch rolled back; the next committed batch clears it.
	Degraded State = "DEGRADED"
	Stopping State = "STOPPING"
	Error    State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:  {Ready, Error},
	Ready:    {Degraded, Stopping, Error},
	Degraded: {Ready, Stopping, Error},
	Error:    {Booting, Stopping},
	Stopping: {},
}

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		since:   time.Now(),
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Since returns when the current state was entered.
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.since = time.Now()
	if m.bus != nil {
		m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	}
	return nil
}

// TransitionIf moves to `to` only when the machine is currently in `from`.
// It reports whether the transition happened.
func (m *Machine) TransitionIf(from, to State) bool {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()
	if current != from {
		return false
	}
	return m.Transition(to) == nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
