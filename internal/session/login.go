package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"showdown-bot/internal/fsm"
	"showdown-bot/internal/protocol"
)

// Authenticator exchanges credentials and a server challenge for an
// assertion token.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password, challenge string) (string, error)
}

// Credentials identify the bot account.
type Credentials struct {
	Username string
	Password string
}

// LoginState waits for the server challenge and logs in.
type LoginState struct {
	fsm.Base[*Context]
	auth   Authenticator
	creds  Credentials
	logger zerolog.Logger
}

func NewLoginState(auth Authenticator, creds Credentials, logger zerolog.Logger) *LoginState {
	return &LoginState{
		auth:   auth,
		creds:  creds,
		logger: logger.With().Str("state", StateAuthenticating.String()).Logger(),
	}
}

func (s *LoginState) NextState(c *Context) (State, error) {
	msg, ok := c.Event.(protocol.Message)
	if !ok {
		s.logger.Debug().Str("event", fmt.Sprintf("%T", c.Event)).Msg("ignoring event while logging in")
		return StateAuthenticating, nil
	}
	if msg.Header != protocol.HeaderChallstr {
		return StateAuthenticating, nil
	}

	assertion, err := s.auth.Authenticate(c.RunContext(), s.creds.Username, s.creds.Password, msg.Body)
	if err != nil {
		return StateAuthenticating, fmt.Errorf("authenticate %s: %w", s.creds.Username, err)
	}
	if err := c.WriteToServer(fmt.Sprintf("/trn %s,0,%s", s.creds.Username, assertion)); err != nil {
		return StateAuthenticating, fmt.Errorf("send login: %w", err)
	}

	s.logger.Info().Str("user", s.creds.Username).Msg("logged in")
	return StateJoiningLobby, nil
}
