package world

// ActorKind distinguishes who drives the decisions, nothing else: actors
// hold no decision logic themselves.
type ActorKind string

const (
	KindHuman     ActorKind = "HUMAN"
	KindAutomated ActorKind = "AUTOMATED"
)

// HistoryEntry is one applied move or action.
type HistoryEntry struct {
	Round    uint64
	Verb     string // MOVE, TALK, INTERACT, OBSERVE, NOOP
	FromRoom string
	ToRoom   string // equals FromRoom for non-moves
}

// Actor is a participant with a location and a history. Created at
// registration, never removed mid-run; a departed actor is only marked
// inactive so historical queries keep working.
type Actor struct {
	ID          string
	Name        string
	Description string
	Kind        ActorKind
	RoomID      string
	Active      bool
	History     []HistoryEntry
}

func (a *Actor) recordHistory(h HistoryEntry) {
	a.History = append(a.History, h)
}
