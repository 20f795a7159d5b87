// Package fsm is a small synchronous state machine keyed by a comparable
// state identifier. One handler is registered per state; the machine calls
// Enter and Exit around transitions and asks the current handler for the
// next state on every Update.
package fsm

import (
	"errors"
	"fmt"
)

var (
	ErrNilHandler     = errors.New("fsm: nil handler")
	ErrDuplicateState = errors.New("fsm: state already registered")
	ErrUnknownState   = errors.New("fsm: state not registered")
	ErrStarted        = errors.New("fsm: machine already started")
	ErrNotStarted     = errors.New("fsm: machine not started")
	ErrReentrant      = errors.New("fsm: update called from inside a handler")
)

// Handler is the behaviour bound to one state.
//
// NextState must not block and must not call Update on its own machine.
// Returning an error aborts the update; it is meant for collaborator
// failures, not for unexpected input, which should keep the current state.
type Handler[S comparable, C any] interface {
	Enter(ctx C) error
	Exit(ctx C) error
	NextState(ctx C) (S, error)
}

// Base provides no-op Enter and Exit for handlers that only need NextState.
type Base[C any] struct{}

func (Base[C]) Enter(C) error { return nil }
func (Base[C]) Exit(C) error  { return nil }

// Machine drives registered handlers. It is not safe for concurrent use;
// a single goroutine owns it.
type Machine[S comparable, C any] struct {
	ctx          C
	handlers     map[S]Handler[S, C]
	current      S
	started      bool
	updating     bool
	onTransition []func(from, to S)
}

// New creates a machine that passes ctx to every handler call.
func New[S comparable, C any](ctx C) *Machine[S, C] {
	return &Machine[S, C]{
		ctx:      ctx,
		handlers: make(map[S]Handler[S, C]),
	}
}

// Register binds a handler to a state. Handlers cannot be added after Start.
func (m *Machine[S, C]) Register(state S, h Handler[S, C]) error {
	if m.started {
		return ErrStarted
	}
	if h == nil {
		return fmt.Errorf("%w: %v", ErrNilHandler, state)
	}
	if _, exists := m.handlers[state]; exists {
		return fmt.Errorf("%w: %v", ErrDuplicateState, state)
	}
	m.handlers[state] = h
	return nil
}

// OnTransition adds a callback run after every completed transition.
func (m *Machine[S, C]) OnTransition(fn func(from, to S)) {
	m.onTransition = append(m.onTransition, fn)
}

// Start sets the initial state and enters it.
func (m *Machine[S, C]) Start(initial S) error {
	if m.started {
		return ErrStarted
	}
	h, ok := m.handlers[initial]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownState, initial)
	}

	m.updating = true
	defer func() { m.updating = false }()

	if err := h.Enter(m.ctx); err != nil {
		return fmt.Errorf("enter %v: %w", initial, err)
	}
	m.current = initial
	m.started = true
	return nil
}

// Update asks the current handler for the next state. If it differs, the
// current handler is exited and the next one entered. It reports whether a
// transition happened.
func (m *Machine[S, C]) Update() (bool, error) {
	if !m.started {
		return false, ErrNotStarted
	}
	if m.updating {
		return false, ErrReentrant
	}
	m.updating = true
	defer func() { m.updating = false }()

	from := m.current
	next, err := m.handlers[from].NextState(m.ctx)
	if err != nil {
		return false, fmt.Errorf("next state from %v: %w", from, err)
	}
	if next == from {
		return false, nil
	}

	target, ok := m.handlers[next]
	if !ok {
		return false, fmt.Errorf("%w: %v (from %v)", ErrUnknownState, next, from)
	}
	if err := m.handlers[from].Exit(m.ctx); err != nil {
		return false, fmt.Errorf("exit %v: %w", from, err)
	}
	if err := target.Enter(m.ctx); err != nil {
		return false, fmt.Errorf("enter %v: %w", next, err)
	}
	m.current = next

	for _, fn := range m.onTransition {
		fn(from, next)
	}
	return true, nil
}

// Current returns the active state. The boolean is false before Start.
func (m *Machine[S, C]) Current() (S, bool) {
	return m.current, m.started
}

// Context returns the context passed to handlers.
func (m *Machine[S, C]) Context() C {
	return m.ctx
}
