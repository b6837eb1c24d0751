package world

// EventKind classifies what an actor did.
type EventKind string

const (
	EventMoveIn   EventKind = "MOVE_IN"
	EventMoveOut  EventKind = "MOVE_OUT"
	EventTalk     EventKind = "TALK"
	EventInteract EventKind = "INTERACT"
	EventObserve  EventKind = "OBSERVE"
)

// GameEvent is an immutable record of something an actor did, scoped to the
// room it happened in. Seq is globally monotonic and orders all events.
type GameEvent struct {
	Seq       uint64    `json:"seq"`
	Round     uint64    `json:"round"`
	Kind      EventKind `json:"kind"`
	RoomID    string    `json:"room_id"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Content   string    `json:"content,omitempty"`
	Witnesses []string  `json:"witnesses"` // actor ids, sorted
}

// EventSink receives witnessed events for delivery outside the engine
// (e.g. pushing to a connected client). Deliver must not block.
type EventSink interface {
	Deliver(ev GameEvent)
}
