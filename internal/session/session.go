package session

import (
	"context"
	"errors"

	"showdown-bot/internal/protocol"
)

// State identifies one phase of the session protocol.
type State int

const (
	StateAuthenticating State = iota
	StateJoiningLobby
	StateAcceptingChallenge
	StateInBattle
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateJoiningLobby:
		return "joining-lobby"
	case StateAcceptingChallenge:
		return "accepting-challenge"
	case StateInBattle:
		return "in-battle"
	default:
		return "unknown"
	}
}

// ErrNoWriter is returned when a write capability was not configured.
var ErrNoWriter = errors.New("session: writer not configured")

// WriteFunc sends one message to a peer.
type WriteFunc func(text string) error

// Context is the state shared by the session handlers. The dispatcher owns
// it; handlers must not keep it past a single call.
type Context struct {
	// Event is the event decoded in the current dispatch cycle.
	Event protocol.Event

	run    context.Context
	server WriteFunc
	bridge WriteFunc
}

// NewContext creates a context that writes to the given server and bridge.
func NewContext(server, bridge WriteFunc) *Context {
	return &Context{
		run:    context.Background(),
		server: server,
		bridge: bridge,
	}
}

// WriteToServer sends a command to the game server.
func (c *Context) WriteToServer(text string) error {
	if c.server == nil {
		return ErrNoWriter
	}
	return c.server(text)
}

// WriteToBridge sends a line to the decision process.
func (c *Context) WriteToBridge(text string) error {
	if c.bridge == nil {
		return ErrNoWriter
	}
	return c.bridge(text)
}

// RunContext is the context of the running dispatcher, for collaborator
// calls such as authentication.
func (c *Context) RunContext() context.Context {
	return c.run
}
