package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"showdown-bot/internal/protocol"
	"showdown-bot/internal/queue"
)

// Snapshot is a point-in-time view of a running session.
type Snapshot struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Cycles    int64     `json:"cycles"`
	Dropped   int64     `json:"dropped"`
	StartedAt time.Time `json:"startedAt"`
}

// Dispatcher is the single consumer of the shared queue. It decodes each
// item and drives the state machine, so handlers never run concurrently.
type Dispatcher struct {
	id        string
	queue     *queue.Queue[string]
	machine   *Machine
	logger    zerolog.Logger
	startedAt time.Time

	state   atomic.Int32
	cycles  atomic.Int64
	dropped atomic.Int64
}

// NewDispatcher creates a dispatcher reading from q and updating m.
func NewDispatcher(q *queue.Queue[string], m *Machine, logger zerolog.Logger) *Dispatcher {
	id := uuid.New().String()
	d := &Dispatcher{
		id:        id,
		queue:     q,
		machine:   m,
		logger:    logger.With().Str("component", "dispatcher").Str("session", id).Logger(),
		startedAt: time.Now().UTC(),
	}
	m.OnTransition(func(from, to State) {
		d.state.Store(int32(to))
		d.logger.Info().Stringer("from", from).Stringer("to", to).Msg("state changed")
	})
	return d
}

// ID returns the session id used in logs.
func (d *Dispatcher) ID() string {
	return d.id
}

// Run starts the machine in the authenticating state and processes queued
// items until the queue is closed or a handler fails. Cancelling ctx closes
// the queue.
func (d *Dispatcher) Run(ctx context.Context) error {
	sc := d.machine.Context()
	sc.run = ctx

	stop := context.AfterFunc(ctx, d.queue.Close)
	defer stop()

	if err := d.machine.Start(StateAuthenticating); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	d.state.Store(int32(StateAuthenticating))
	d.logger.Info().Msg("session started")

	for {
		raw, ok := d.queue.Dequeue()
		if !ok {
			d.logger.Info().Int64("cycles", d.cycles.Load()).Msg("queue closed, session stopped")
			return nil
		}
		// Items still queued at shutdown are discarded.
		if ctx.Err() != nil {
			return nil
		}
		if err := d.Dispatch(raw); err != nil {
			return err
		}
	}
}

// Dispatch runs one cycle: decode, install the event, update the machine.
// Items that do not decode are dropped without touching the machine.
func (d *Dispatcher) Dispatch(raw string) error {
	d.cycles.Add(1)
	sc := d.machine.Context()

	ev, ok := protocol.Decode(raw)
	if !ok {
		sc.Event = nil
		d.dropped.Add(1)
		d.logger.Debug().Str("raw", raw).Msg("unrecognized message dropped")
		return nil
	}

	sc.Event = ev
	if _, err := d.machine.Update(); err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// Snapshot reports the current state and counters. It is safe to call from
// any goroutine.
func (d *Dispatcher) Snapshot() Snapshot {
	return Snapshot{
		ID:        d.id,
		State:     State(d.state.Load()).String(),
		Cycles:    d.cycles.Load(),
		Dropped:   d.dropped.Load(),
		StartedAt: d.startedAt,
	}
}
