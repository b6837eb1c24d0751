package world

// MemoryConfig bounds each actor's retained knowledge.
type MemoryConfig struct {
	EventCap int // recent witnessed events (FIFO)
	RoomCap  int // known room snapshots
	ActorCap int // known actor snapshots
}

func (c MemoryConfig) withDefaults() MemoryConfig {
	if c.EventCap <= 0 {
		c.EventCap = 100
	}
	if c.RoomCap <= 0 {
		c.RoomCap = 256
	}
	if c.ActorCap <= 0 {
		c.ActorCap = 64
	}
	return c
}

// RoomMemory is an actor's last-synchronized snapshot of a room.
type RoomMemory struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SyncedSeq   uint64 `json:"synced_seq"`
}

// ActorMemory is what an actor remembers about another actor, keyed by name.
type ActorMemory struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	LastSeenRoomID string `json:"last_seen_room_id"`
	LastSeenSeq    uint64 `json:"last_seen_seq"`
}

type memoryEntry struct {
	knownRooms  map[string]RoomMemory
	knownActors map[string]ActorMemory
	recent      []GameEvent
}

// MemoryStore holds one bounded knowledge entry per actor. Entries are only
// ever written through the event pipeline (and the host's description
// refresh), always from the engine goroutine, so there is no locking here.
type MemoryStore struct {
	cfg     MemoryConfig
	entries map[string]*memoryEntry
}

func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	return &MemoryStore{
		cfg:     cfg.withDefaults(),
		entries: map[string]*memoryEntry{},
	}
}

func (m *MemoryStore) ensure(actorID string) *memoryEntry {
	e, ok := m.entries[actorID]
	if !ok {
		e = &memoryEntry{
			knownRooms:  map[string]RoomMemory{},
			knownActors: map[string]ActorMemory{},
		}
		m.entries[actorID] = e
	}
	return e
}

// record stores one witnessed event: it appends to the bounded FIFO, marks
// the acting actor as last seen in the event's room, and synchronizes the
// witness's snapshot of that room.
func (m *MemoryStore) record(witnessID string, ev GameEvent, room *Room) {
	e := m.ensure(witnessID)

	e.recent = append(e.recent, ev)
	if over := len(e.recent) - m.cfg.EventCap; over > 0 {
		e.recent = append(e.recent[:0], e.recent[over:]...)
	}

	// Any witnessed event means the acting actor was observable.
	// Descriptions are only written by an external refresh, never here.
	am := e.knownActors[ev.ActorName]
	am.Name = ev.ActorName
	am.LastSeenRoomID = ev.RoomID
	am.LastSeenSeq = ev.Seq
	e.knownActors[ev.ActorName] = am
	m.evictActors(e)

	if room != nil {
		m.syncRoom(e, room, ev.Seq)
	}
}

// refreshRoom synchronizes an actor's own snapshot of a room it can see,
// e.g. on arrival (the mover does not witness its own MOVE_IN).
func (m *MemoryStore) refreshRoom(actorID string, room *Room, seq uint64) {
	if room == nil {
		return
	}
	m.syncRoom(m.ensure(actorID), room, seq)
}

func (m *MemoryStore) syncRoom(e *memoryEntry, room *Room, seq uint64) {
	prev, known := e.knownRooms[room.ID]
	if known && prev.Name == room.Name && prev.Description == room.Description {
		return
	}
	e.knownRooms[room.ID] = RoomMemory{
		RoomID:      room.ID,
		Name:        room.Name,
		Description: room.Description,
		SyncedSeq:   seq,
	}
	m.evictRooms(e)
}

// RefreshActorDescription stores host-supplied description text about a
// known actor, verbatim.
func (m *MemoryStore) RefreshActorDescription(ownerID, actorName, description string) {
	e := m.ensure(ownerID)
	am, ok := e.knownActors[actorName]
	if !ok {
		am = ActorMemory{Name: actorName}
	}
	am.Description = description
	e.knownActors[actorName] = am
	m.evictActors(e)
}

func (m *MemoryStore) evictRooms(e *memoryEntry) {
	for len(e.knownRooms) > m.cfg.RoomCap {
		oldest, min := "", uint64(0)
		for id, rm := range e.knownRooms {
			if oldest == "" || rm.SyncedSeq < min {
				oldest, min = id, rm.SyncedSeq
			}
		}
		delete(e.knownRooms, oldest)
	}
}

func (m *MemoryStore) evictActors(e *memoryEntry) {
	for len(e.knownActors) > m.cfg.ActorCap {
		oldest, min := "", uint64(0)
		for name, am := range e.knownActors {
			if oldest == "" || am.LastSeenSeq < min {
				oldest, min = name, am.LastSeenSeq
			}
		}
		delete(e.knownActors, oldest)
	}
}

// EventFilter narrows QueryEvents results. Zero values match everything.
type EventFilter struct {
	RoomID string
	Kind   EventKind
	Limit  int
}

// QueryEvents returns the actor's witnessed events, most recent first.
func (m *MemoryStore) QueryEvents(actorID string, f EventFilter) []GameEvent {
	e, ok := m.entries[actorID]
	if !ok {
		return nil
	}
	limit := f.Limit
	if limit <= 0 || limit > len(e.recent) {
		limit = len(e.recent)
	}
	out := make([]GameEvent, 0, limit)
	for i := len(e.recent) - 1; i >= 0 && len(out) < limit; i-- {
		ev := e.recent[i]
		if f.RoomID != "" && ev.RoomID != f.RoomID {
			continue
		}
		if f.Kind != "" && ev.Kind != f.Kind {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EventsAfter returns witnessed events with Seq > since, oldest first.
func (m *MemoryStore) EventsAfter(actorID string, since uint64) []GameEvent {
	e, ok := m.entries[actorID]
	if !ok {
		return nil
	}
	var out []GameEvent
	for _, ev := range e.recent {
		if ev.Seq > since {
			out = append(out, ev)
		}
	}
	return out
}

func (m *MemoryStore) KnownRoom(actorID, roomID string) (RoomMemory, bool) {
	e, ok := m.entries[actorID]
	if !ok {
		return RoomMemory{}, false
	}
	rm, ok := e.knownRooms[roomID]
	return rm, ok
}

func (m *MemoryStore) KnownActor(actorID, name string) (ActorMemory, bool) {
	e, ok := m.entries[actorID]
	if !ok {
		return ActorMemory{}, false
	}
	am, ok := e.knownActors[name]
	return am, ok
}

// KnownRooms returns every room snapshot the actor holds (unordered).
func (m *MemoryStore) KnownRooms(actorID string) []RoomMemory {
	e, ok := m.entries[actorID]
	if !ok {
		return nil
	}
	out := make([]RoomMemory, 0, len(e.knownRooms))
	for _, rm := range e.knownRooms {
		out = append(out, rm)
	}
	return out
}

// KnownActors returns every actor snapshot the actor holds (unordered).
func (m *MemoryStore) KnownActors(actorID string) []ActorMemory {
	e, ok := m.entries[actorID]
	if !ok {
		return nil
	}
	out := make([]ActorMemory, 0, len(e.knownActors))
	for _, am := range e.knownActors {
		out = append(out, am)
	}
	return out
}

func (m *MemoryStore) eventCount(actorID string) int {
	if e, ok := m.entries[actorID]; ok {
		return len(e.recent)
	}
	return 0
}
