package session

import (
	"github.com/rs/zerolog"

	"showdown-bot/internal/fsm"
)

// Machine is the session state machine.
type Machine = fsm.Machine[State, *Context]

// NewMachine registers the four session states on a new machine.
func NewMachine(c *Context, auth Authenticator, creds Credentials, logger zerolog.Logger) (*Machine, error) {
	m := fsm.New[State](c)

	handlers := []struct {
		state   State
		handler fsm.Handler[State, *Context]
	}{
		{StateAuthenticating, NewLoginState(auth, creds, logger)},
		{StateJoiningLobby, NewLobbyState(logger)},
		{StateAcceptingChallenge, NewChallengeState()},
		{StateInBattle, NewBattleState(logger)},
	}
	for _, h := range handlers {
		if err := m.Register(h.state, h.handler); err != nil {
			return nil, err
		}
	}
	return m, nil
}
