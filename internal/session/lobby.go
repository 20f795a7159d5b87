package session

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"showdown-bot/internal/protocol"
)

// LobbyState joins the lobby, uploads the team from the decision process
// and waits for a challenge.
//
// Its fields survive across visits: a team sent before the first battle
// still counts when the session returns to the lobby.
type LobbyState struct {
	receivedChallenge bool
	sentTeam          bool
	challenger        string
	logger            zerolog.Logger
}

func NewLobbyState(logger zerolog.Logger) *LobbyState {
	return &LobbyState{
		logger: logger.With().Str("state", StateJoiningLobby.String()).Logger(),
	}
}

func (s *LobbyState) Enter(c *Context) error {
	if err := c.WriteToServer("/join lobby"); err != nil {
		return fmt.Errorf("join lobby: %w", err)
	}
	return nil
}

func (s *LobbyState) NextState(c *Context) (State, error) {
	switch ev := c.Event.(type) {
	case protocol.Message:
		if ev.Header == protocol.HeaderPM {
			s.handlePM(ev)
		}
	case protocol.Team:
		if err := c.WriteToServer("/utm " + ev.Spec); err != nil {
			return StateJoiningLobby, fmt.Errorf("upload team: %w", err)
		}
		s.sentTeam = true
		s.logger.Info().Msg("team uploaded")
	}

	if s.sentTeam && s.receivedChallenge {
		s.receivedChallenge = false
		return StateAcceptingChallenge, nil
	}
	return StateJoiningLobby, nil
}

// Exit accepts the challenge that caused the transition.
func (s *LobbyState) Exit(c *Context) error {
	if err := c.WriteToServer("/accept " + s.challenger); err != nil {
		return fmt.Errorf("accept challenge from %s: %w", s.challenger, err)
	}
	return nil
}

// handlePM records the sender of a `|pm|SENDER|RECEIVER|/challenge ...` line.
func (s *LobbyState) handlePM(msg protocol.Message) {
	fields := msg.Fields()
	if len(fields) <= 2 || !strings.Contains(fields[2], "challenge") {
		return
	}
	// The sender carries a leading rank character, e.g. " Rival" or "+Rival".
	sender := fields[0]
	if sender != "" {
		sender = sender[1:]
	}
	s.challenger = sender
	s.receivedChallenge = true
	s.logger.Info().Str("challenger", sender).Msg("challenge received")
}
