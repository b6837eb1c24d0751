package world

import (
	"fmt"
	"sort"
)

// PathState is the tri-state of one cardinal exit slot.
type PathState uint8

const (
	// PathUnopened: the exit exists but no room has been generated behind it.
	PathUnopened PathState = iota
	// PathConnected: the exit leads to an existing room.
	PathConnected
	// PathAbsent: the exit is permanently unavailable.
	PathAbsent
)

func (s PathState) String() string {
	switch s {
	case PathUnopened:
		return "UNOPENED"
	case PathConnected:
		return "CONNECTED"
	case PathAbsent:
		return "ABSENT"
	}
	return "?"
}

// Path is one exit slot. To is set only when State == PathConnected.
type Path struct {
	State PathState
	To    string
}

// Room is a node of the world graph. Identity is derived from the coordinate
// and never changes; rooms are created once and never destroyed.
type Room struct {
	ID           string
	Coord        Coord
	Name         string
	Description  string
	Paths        [4]Path
	CreatedRound uint64

	present map[string]struct{} // actor ids currently inside
}

// RoomID derives the stable room id for a coordinate.
func RoomID(c Coord) string {
	return fmt.Sprintf("R%d_%d", c.X, c.Y)
}

// OpenDirections returns the non-Absent exits in canonical order.
func (r *Room) OpenDirections() []Direction {
	out := make([]Direction, 0, 4)
	for _, d := range Directions {
		if r.Paths[d].State != PathAbsent {
			out = append(out, d)
		}
	}
	return out
}

// Present returns the ids of actors inside the room, sorted.
func (r *Room) Present() []string {
	out := make([]string, 0, len(r.present))
	for id := range r.present {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Room) Occupancy() int { return len(r.present) }

func (r *Room) contains(actorID string) bool {
	_, ok := r.present[actorID]
	return ok
}

func (r *Room) enter(actorID string) { r.present[actorID] = struct{}{} }
func (r *Room) leave(actorID string) { delete(r.present, actorID) }
