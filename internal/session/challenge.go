package session

import (
	"showdown-bot/internal/fsm"
	"showdown-bot/internal/protocol"
)

// ChallengeState waits for the battle room to open after accepting.
type ChallengeState struct {
	fsm.Base[*Context]
}

func NewChallengeState() *ChallengeState {
	return &ChallengeState{}
}

func (s *ChallengeState) NextState(c *Context) (State, error) {
	if msg, ok := c.Event.(protocol.Message); ok && msg.Header == protocol.HeaderBattle {
		return StateInBattle, nil
	}
	return StateAcceptingChallenge, nil
}
