package protocol

import (
	"encoding/json"
	"strings"
)

// validCommands is the set of commands accepted from the decision process.
var validCommands = map[string]bool{
	CommandMove:   true,
	CommandSwitch: true,
	CommandTeam:   true,
}

// Decode turns one raw frame or line into an Event. The checks run in a fixed
// order: compound block, team JSON, `|`-delimited message, bare command.
// The second return value is false when nothing matched.
func Decode(raw string) (Event, bool) {
	if c, ok := ParseCompound(raw); ok {
		return c, true
	}
	if t, ok := ParseTeam(raw); ok {
		return t, true
	}
	if m, ok := ParseMessage(raw); ok {
		return m, true
	}
	if c, ok := ParseCommand(raw); ok {
		return c, true
	}
	return nil, false
}

// ParseMessage splits a line on its first two `|` characters.
func ParseMessage(line string) (Message, bool) {
	_, rest, ok := strings.Cut(line, "|")
	if !ok {
		return Message{}, false
	}
	header, body, ok := strings.Cut(rest, "|")
	if !ok {
		return Message{}, false
	}
	return Message{Header: header, Body: body}, true
}

// ParseCompound parses a `>room\n|a|b\n|c|d` block. Body lines that are not
// messages are skipped, so the result may hold zero messages.
func ParseCompound(raw string) (Compound, bool) {
	if !strings.HasPrefix(raw, ">") {
		return Compound{}, false
	}
	first, body, ok := strings.Cut(raw, "\n")
	if !ok {
		return Compound{}, false
	}

	c := Compound{Room: strings.TrimSpace(first[1:])}
	for _, line := range strings.Split(body, "\n") {
		if m, ok := ParseMessage(line); ok {
			c.Messages = append(c.Messages, m)
		}
	}
	return c, true
}

// ParseTeam accepts a JSON object carrying a string "team" field.
func ParseTeam(raw string) (Team, bool) {
	var payload struct {
		Team *string `json:"team"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Team{}, false
	}
	if payload.Team == nil {
		return Team{}, false
	}
	return Team{Spec: *payload.Team}, true
}

// ParseCommand accepts `<command> <argument>` where command is one of the
// known decision-process commands.
func ParseCommand(raw string) (Command, bool) {
	name, arg, ok := strings.Cut(raw, " ")
	if !ok || !validCommands[name] {
		return Command{}, false
	}
	return Command{Name: name, Argument: arg}, true
}
