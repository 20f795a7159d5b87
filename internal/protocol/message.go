package protocol

import "strings"

// Event is one decoded unit of input. It is either a Message, a Compound,
// a Team or a Command.
type Event interface {
	isEvent()
}

// Message is a single `|header|body` protocol line.
type Message struct {
	Header string
	Body   string
}

// Compound is a multi-line server block for one room. The raw block starts
// with `>room` on its first line.
type Compound struct {
	Room     string
	Messages []Message
}

// Team is a team definition sent by the decision process as
// `{"team": "<packed team>"}`.
type Team struct {
	Spec string
}

// Command is an action chosen by the decision process, e.g. `move 1`.
type Command struct {
	Name     string
	Argument string
}

func (Message) isEvent()  {}
func (Compound) isEvent() {}
func (Team) isEvent()     {}
func (Command) isEvent()  {}

// Known decision-process commands.
const (
	CommandMove   = "move"
	CommandSwitch = "switch"
	CommandTeam   = "team"
)

// Server message headers the session reacts to.
const (
	HeaderChallstr = "challstr"
	HeaderPM       = "pm"
	HeaderBattle   = "b"
	HeaderWin      = "win"
)

// String renders the message back into its wire form.
func (m Message) String() string {
	return "|" + m.Header + "|" + m.Body
}

// Fields splits the body on `|`.
func (m Message) Fields() []string {
	return strings.Split(m.Body, "|")
}

// String renders the command the way the decision process sent it.
func (c Command) String() string {
	return c.Name + " " + c.Argument
}
