package world

import "sort"

// EventRouter resolves an event's witness set and delivers it to each
// witness's memory entry (and optional sink). Witnesses are the actors
// physically present in the event's room, minus the acting actor: it
// already knows what it did.
type EventRouter struct {
	mem   *MemoryStore
	sinks map[string]EventSink
}

func NewEventRouter(mem *MemoryStore) *EventRouter {
	return &EventRouter{mem: mem, sinks: map[string]EventSink{}}
}

// SetSink attaches a delivery sink for one actor; nil detaches.
func (er *EventRouter) SetSink(actorID string, sink EventSink) {
	if sink == nil {
		delete(er.sinks, actorID)
		return
	}
	er.sinks[actorID] = sink
}

// Route computes the witness set from the room's current presence, stamps
// it on the event, and records the event for every witness. The caller
// sequences Route against presence mutation: MOVE_OUT is routed before the
// mover leaves, MOVE_IN after it has entered.
func (er *EventRouter) Route(ev *GameEvent, room *Room) []string {
	witnesses := make([]string, 0, room.Occupancy())
	for _, id := range room.Present() {
		if id == ev.ActorID {
			continue
		}
		witnesses = append(witnesses, id)
	}
	sort.Strings(witnesses)
	ev.Witnesses = witnesses

	for _, id := range witnesses {
		er.mem.record(id, *ev, room)
		if sink, ok := er.sinks[id]; ok {
			sink.Deliver(*ev)
		}
	}
	return witnesses
}
