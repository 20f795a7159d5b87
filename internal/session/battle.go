package session

import (
	"fmt"

	"github.com/rs/zerolog"

	"showdown-bot/internal/fsm"
	"showdown-bot/internal/protocol"
)

// BattleState relays the battle log to the decision process and its chosen
// actions back to the server.
type BattleState struct {
	fsm.Base[*Context]
	logger zerolog.Logger
}

func NewBattleState(logger zerolog.Logger) *BattleState {
	return &BattleState{
		logger: logger.With().Str("state", StateInBattle.String()).Logger(),
	}
}

func (s *BattleState) NextState(c *Context) (State, error) {
	switch ev := c.Event.(type) {
	case protocol.Compound:
		for _, msg := range ev.Messages {
			// Anything after the first win in a block is not forwarded.
			if msg.Header == protocol.HeaderWin {
				s.logger.Info().Str("room", ev.Room).Str("winner", msg.Body).Msg("battle over")
				return StateJoiningLobby, nil
			}
			if err := c.WriteToBridge(msg.String()); err != nil {
				return StateInBattle, fmt.Errorf("forward %s to bridge: %w", msg.Header, err)
			}
		}
	case protocol.Command:
		s.logger.Debug().Str("command", ev.String()).Msg("sending command")
		if err := c.WriteToServer(ev.String()); err != nil {
			return StateInBattle, fmt.Errorf("send command %s: %w", ev.Name, err)
		}
	}
	return StateInBattle, nil
}
