package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ActorName       string     `json:"actor_name"`
	ActorKind       string     `json:"actor_kind,omitempty"` // "HUMAN" or "AUTOMATED"; default AUTOMATED
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	// ResumeToken re-binds the session to an actor from a previous connection.
	ResumeToken string `json:"resume_token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ActorID         string      `json:"actor_id"`
	ActorName       string      `json:"actor_name"`
	ResumeToken     string      `json:"resume_token"`
	WorldParams     WorldParams `json:"world_params"`
	Room            RoomObs     `json:"room"`
}

type WorldParams struct {
	WorldID         string `json:"world_id"`
	MaxRoomPaths    int    `json:"max_room_paths"`
	EventMemoryCap  int    `json:"event_memory_cap"`
	DecisionTimeout int    `json:"decision_timeout_ms"`
	Seed            int64  `json:"seed"`
}

// TURN (server -> client): it is this actor's turn to decide.
// Exactly one ACT (or nothing, which counts as a NOOP after the timeout)
// is expected in reply.
type TurnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Round           uint64 `json:"round"`
	ActorID         string `json:"actor_id"`

	Room       RoomObs  `json:"room"`
	Directions []string `json:"directions"` // non-Absent exits, e.g. ["N","E"]
	Verbs      []string `json:"verbs"`      // legal non-movement verbs this turn
	DeadlineMs int      `json:"deadline_ms"`
}

// RoomObs is the actor's view of the room it currently occupies.
type RoomObs struct {
	RoomID      string   `json:"room_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Coord       [2]int   `json:"coord"`
	Occupants   []string `json:"occupants"` // display names, self excluded
}

// ACT (client -> server): the decision for the round named by TURN.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Round           uint64 `json:"round"`
	ActorID         string `json:"actor_id"`

	Verb      string `json:"verb"`
	Direction string `json:"direction,omitempty"` // required when verb == MOVE
	Content   string `json:"content,omitempty"`   // TALK/INTERACT free text
}

// EVENT (server -> client): something this actor witnessed.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Round           uint64 `json:"round"`
	Kind            string `json:"kind"` // MOVE_IN, MOVE_OUT, TALK, INTERACT, OBSERVE
	RoomID          string `json:"room_id"`
	ActorID         string `json:"actor_id"`
	ActorName       string `json:"actor_name"`
	Content         string `json:"content,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
