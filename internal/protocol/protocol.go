package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeTurn    = "TURN"
	TypeAct     = "ACT"
	TypeEvent   = "EVENT"
	TypeError   = "ERROR"
)

// Action verbs carried in ACT messages. MOVE additionally names a direction.
const (
	VerbMove     = "MOVE"
	VerbTalk     = "TALK"
	VerbInteract = "INTERACT"
	VerbObserve  = "OBSERVE"
	VerbNoop     = "NOOP"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
