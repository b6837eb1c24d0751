package world

import (
	"fmt"
	"math/rand"
	"strings"
)

// RoomDescriber supplies display names and description text for new rooms.
// The graph stores whatever it is given verbatim; text generation is an
// external concern.
type RoomDescriber interface {
	RoomDetails(c Coord, exits []Direction) (name, description string)
}

// Graph owns every room and the coordinate index. All mutation goes through
// EnsurePath (plus the one-time Bootstrap), and only the engine goroutine
// calls either, so room creation is strictly serialized.
type Graph struct {
	maxPaths int
	rng      *rand.Rand
	describe RoomDescriber

	rooms   map[string]*Room
	byCoord map[Coord]string
	order   []string // creation order
}

const (
	minRoomPaths = 2
	maxRoomPaths = 4
)

func NewGraph(maxPaths int, seed int64, d RoomDescriber) *Graph {
	if maxPaths < minRoomPaths {
		maxPaths = minRoomPaths
	}
	if maxPaths > maxRoomPaths {
		maxPaths = maxRoomPaths
	}
	return &Graph{
		maxPaths: maxPaths,
		rng:      rand.New(rand.NewSource(seed)),
		describe: d,
		rooms:    map[string]*Room{},
		byCoord:  map[Coord]string{},
	}
}

// Bootstrap creates the starting room at the origin. It must be called
// exactly once, before any actor is placed.
func (g *Graph) Bootstrap() (*Room, error) {
	if len(g.rooms) != 0 {
		return nil, fmt.Errorf("%w: bootstrap on non-empty graph", ErrGraphInvariant)
	}
	return g.createRoom(Coord{0, 0}, nil, 0, 0)
}

// Room looks up a room by id.
func (g *Graph) Room(id string) (*Room, error) {
	r, ok := g.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return r, nil
}

// RoomAt looks up a room by coordinate.
func (g *Graph) RoomAt(c Coord) (*Room, bool) {
	id, ok := g.byCoord[c]
	if !ok {
		return nil, false
	}
	return g.rooms[id], true
}

// Rooms returns all rooms in creation order.
func (g *Graph) Rooms() []*Room {
	out := make([]*Room, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.rooms[id])
	}
	return out
}

func (g *Graph) Len() int { return len(g.rooms) }

// EnsurePath resolves the room behind the given exit, generating it lazily.
//
// Connected exits return the linked room. Unopened exits either merge with a
// room that already exists at the translated coordinate (two exploration
// fronts converging) or create a fresh room there. Absent exits fail with
// ErrPathUnavailable.
func (g *Graph) EnsurePath(roomID string, dir Direction, round uint64) (*Room, error) {
	from, err := g.Room(roomID)
	if err != nil {
		return nil, err
	}

	switch from.Paths[dir].State {
	case PathConnected:
		to, ok := g.rooms[from.Paths[dir].To]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s connected to missing room %s",
				ErrGraphInvariant, roomID, dir, from.Paths[dir].To)
		}
		return to, nil

	case PathAbsent:
		return nil, fmt.Errorf("%w: %s has no %s exit", ErrPathUnavailable, roomID, dir)
	}

	// Unopened: generate or merge.
	target := dir.Translate(from.Coord)
	if existing, ok := g.RoomAt(target); ok {
		return g.mergePath(from, dir, existing)
	}
	return g.createRoom(target, from, dir.Opposite(), round)
}

// mergePath links an unopened exit to a room that was created via another
// path. The reciprocal exit on the target decides: an unopened slot accepts
// the link, an exhausted (Absent) slot rejects it for good.
func (g *Graph) mergePath(from *Room, dir Direction, to *Room) (*Room, error) {
	back := dir.Opposite()
	switch to.Paths[back].State {
	case PathUnopened:
		from.Paths[dir] = Path{State: PathConnected, To: to.ID}
		to.Paths[back] = Path{State: PathConnected, To: from.ID}
		return to, nil
	case PathAbsent:
		// The target spent its budget elsewhere; the exit will never open.
		from.Paths[dir] = Path{State: PathAbsent}
		return nil, fmt.Errorf("%w: %s rejects merge from %s", ErrPathUnavailable, to.ID, from.ID)
	default: // PathConnected
		if to.Paths[back].To == from.ID {
			// Reciprocal already points here but our side was unopened:
			// links are always written pairwise, so this is corruption.
			return nil, fmt.Errorf("%w: one-sided link %s<->%s", ErrGraphInvariant, from.ID, to.ID)
		}
		return nil, fmt.Errorf("%w: %s/%s already connected to %s",
			ErrGraphInvariant, to.ID, back, to.Paths[back].To)
	}
}

// createRoom makes a brand-new room at c. origin, if non-nil, is the room the
// creating move came from; originDir is the new room's exit pointing back at
// it. The remaining budget is spent on merges with adjacent rooms whose
// reciprocal exit is still unopened, then on unopened slots chosen by the
// seeded rng; everything else is Absent.
func (g *Graph) createRoom(c Coord, origin *Room, originDir Direction, round uint64) (*Room, error) {
	if _, exists := g.byCoord[c]; exists {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateCoordinate, c)
	}

	r := &Room{
		ID:           RoomID(c),
		Coord:        c,
		CreatedRound: round,
		present:      map[string]struct{}{},
	}
	for _, d := range Directions {
		r.Paths[d] = Path{State: PathAbsent}
	}

	budget := g.maxPaths
	if origin != nil {
		r.Paths[originDir] = Path{State: PathConnected, To: origin.ID}
		origin.Paths[originDir.Opposite()] = Path{State: PathConnected, To: r.ID}
		budget--
	}

	// Adjacent rooms with an unopened exit pointing at this coordinate link
	// up immediately; rooms whose reciprocal exit is Absent stay walled off.
	var candidates []Direction
	for _, d := range Directions {
		if origin != nil && d == originDir {
			continue
		}
		neighbor, ok := g.RoomAt(d.Translate(c))
		if !ok {
			candidates = append(candidates, d)
			continue
		}
		if budget > 0 && neighbor.Paths[d.Opposite()].State == PathUnopened {
			r.Paths[d] = Path{State: PathConnected, To: neighbor.ID}
			neighbor.Paths[d.Opposite()] = Path{State: PathConnected, To: r.ID}
			budget--
		}
	}

	// Spend what is left of the budget on unopened exploration slots.
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, d := range candidates {
		if budget <= 0 {
			break
		}
		r.Paths[d] = Path{State: PathUnopened}
		budget--
	}

	if g.describe != nil {
		name, desc := g.describe.RoomDetails(c, r.OpenDirections())
		r.Name = strings.TrimSpace(name)
		r.Description = desc
	}
	if r.Name == "" {
		r.Name = r.ID
	}

	g.rooms[r.ID] = r
	g.byCoord[c] = r.ID
	g.order = append(g.order, r.ID)
	return r, nil
}

// RefreshRoomDescription replaces a room's description with host-supplied
// text. Empty text is rejected; the graph never blanks a description.
func (g *Graph) RefreshRoomDescription(roomID, description string) error {
	r, err := g.Room(roomID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("empty description for %s", roomID)
	}
	r.Description = description
	return nil
}

// CheckInvariants verifies the system-wide graph invariants: pairwise links,
// coordinate uniqueness, and the per-room path budget.
func (g *Graph) CheckInvariants() error {
	seen := map[Coord]string{}
	for id, r := range g.rooms {
		if prev, dup := seen[r.Coord]; dup {
			return fmt.Errorf("%w: rooms %s and %s share %v", ErrGraphInvariant, prev, id, r.Coord)
		}
		seen[r.Coord] = id
		if g.byCoord[r.Coord] != id {
			return fmt.Errorf("%w: coordinate index points away from %s", ErrGraphInvariant, id)
		}

		open := 0
		for _, d := range Directions {
			p := r.Paths[d]
			if p.State != PathAbsent {
				open++
			}
			if p.State != PathConnected {
				continue
			}
			to, ok := g.rooms[p.To]
			if !ok {
				return fmt.Errorf("%w: %s/%s -> missing room %s", ErrGraphInvariant, id, d, p.To)
			}
			back := to.Paths[d.Opposite()]
			if back.State != PathConnected || back.To != id {
				return fmt.Errorf("%w: %s/%s -> %s has no reciprocal", ErrGraphInvariant, id, d, p.To)
			}
		}
		if open > g.maxPaths {
			return fmt.Errorf("%w: %s has %d open exits (max %d)", ErrGraphInvariant, id, open, g.maxPaths)
		}
	}
	return nil
}
