package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/chatdock/internal/bus"
)

// State represents the connectivity state of the push channel.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Connected, Error, Disconnected},
	Connected:    {Error, Disconnected},
	Error:        {Connecting, Disconnected},
}

// Machine tracks and enforces connectivity state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	lastErr error
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// LastError returns the cause recorded with the most recent Fail.
func (m *Machine) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
// Transitioning to the current state is a no-op.
func (m *Machine) Transition(to State) error {
	return m.transition(to, nil)
}

// Fail moves to Error and records cause.
func (m *Machine) Fail(cause error) error {
	return m.transition(Error, cause)
}

func (m *Machine) transition(to State, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		if cause != nil {
			m.lastErr = cause
		}
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if to == Error {
		m.lastErr = cause
	} else if to == Connected {
		m.lastErr = nil
	}
	if m.bus != nil {
		change := StatusChange{From: from, To: to}
		if cause != nil {
			change.Reason = cause.Error()
		}
		m.bus.Emit(bus.SessionStatusChanged, change)
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From   State
	To     State
	Reason string
}
