package models

import (
	"errors"
	"time"
)

// ErrActionInFlight is returned when a page action is triggered while the previous one is still running.
var ErrActionInFlight = errors.New("an action is already in progress")

// Phase is the state of a page-level request/response cycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Machine tracks a single user-triggered action. Exactly one phase is active.
type Machine struct {
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Current returns the phase, treating the zero value as idle.
func (m Machine) Current() Phase {
	if m.Phase == "" {
		return PhaseIdle
	}
	return m.Phase
}

// Busy reports whether an action is in flight.
func (m Machine) Busy() bool {
	return m.Current() == PhaseLoading
}

// Failed reports whether the last action ended in error.
func (m Machine) Failed() bool {
	return m.Current() == PhaseError
}

// Start moves the machine into loading.
func (m *Machine) Start(now time.Time) error {
	if m.Busy() {
		return ErrActionInFlight
	}
	m.Phase = PhaseLoading
	m.Message = ""
	m.StartedAt = now.UTC()
	return nil
}

// Succeed completes the action.
func (m *Machine) Succeed(message string) {
	m.Phase = PhaseSuccess
	m.Message = message
	m.StartedAt = time.Time{}
}

// Fail completes the action with an error message.
func (m *Machine) Fail(message string) {
	m.Phase = PhaseError
	m.Message = message
	m.StartedAt = time.Time{}
}

// Interrupt clears a loading phase left behind by a request that never finished.
func (m *Machine) Interrupt() {
	if m.Busy() {
		m.Fail("The previous request was interrupted. Please try again.")
	}
}

// Reset returns to idle.
func (m *Machine) Reset() {
	*m = Machine{Phase: PhaseIdle}
}
