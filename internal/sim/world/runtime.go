package world

import (
	"context"
	"time"
)

// Run drives the engine loop until ctx is cancelled, Stop is called, or a
// fatal invariant failure halts the world. Joins, leaves, and reads are
// serviced between rounds, never mid-round, so every observer sees
// committed state.
func (w *World) Run(ctx context.Context) error {
	defer close(w.done)
	w.state = StateIdle

	var tick <-chan time.Time
	if w.cfg.RoundInterval > 0 {
		t := time.NewTicker(w.cfg.RoundInterval)
		defer t.Stop()
		tick = t.C
	} else {
		ch := make(chan time.Time)
		close(ch)
		tick = ch
	}

	for {
		select {
		case <-ctx.Done():
			w.state = StateHalted
			return ctx.Err()
		case <-w.stop:
			w.state = StateHalted
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case req := <-w.attach:
			w.handleAttach(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case req := <-w.reads:
			req.fn(w)
			close(req.done)
		case <-tick:
			if err := w.runRound(ctx); err != nil {
				w.state = StateHalted
				w.log.Printf("world halted at round %d: %v", w.round.Load(), err)
				return err
			}
			w.state = StateIdle
			if w.cfg.MaxRounds > 0 && w.round.Load() >= w.cfg.MaxRounds {
				w.state = StateHalted
				w.log.Printf("world halted: round limit %d reached", w.cfg.MaxRounds)
				return nil
			}
		}
	}
}

// Stop asks the engine loop to exit after the current round.
func (w *World) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

// Done closes when the engine loop has exited.
func (w *World) Done() <-chan struct{} { return w.done }

// exec runs fn on the engine goroutine between rounds and waits for it.
// Queries read committed state; host-initiated updates land before the
// next round starts. fn must not retain references past its return.
func (w *World) exec(ctx context.Context, fn func(w *World)) error {
	req := readReq{fn: fn, done: make(chan struct{})}
	select {
	case w.reads <- req:
	case <-w.done:
		// Loop already exited; state is frozen and safe to read directly.
		fn(w)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-w.done:
		return ErrHalted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a point-in-time summary of the world.
type Stats struct {
	WorldID     string `json:"world_id"`
	Round       uint64 `json:"round"`
	Rooms       int    `json:"rooms"`
	Actors      int    `json:"actors"`
	EventSeq    uint64 `json:"event_seq"`
	State       string `json:"state"`
	StateDigest string `json:"state_digest"`
}

func (w *World) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := w.exec(ctx, func(w *World) {
		round := w.round.Load()
		s = Stats{
			WorldID:     w.cfg.ID,
			Round:       round,
			Rooms:       w.graph.Len(),
			Actors:      w.reg.Len(),
			EventSeq:    w.seq,
			State:       w.state.String(),
			StateDigest: w.stateDigest(round),
		}
	})
	return s, err
}

// RoomInfo is the public read model of a room.
type RoomInfo struct {
	RoomID      string   `json:"room_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Coord       [2]int   `json:"coord"`
	Exits       []string `json:"exits"`
	Occupants   []string `json:"occupants"`
	CreatedAt   uint64   `json:"created_round"`
}

func (w *World) RoomInfo(ctx context.Context, roomID string) (RoomInfo, error) {
	var out RoomInfo
	var rerr error
	err := w.exec(ctx, func(w *World) {
		room, err := w.graph.Room(roomID)
		if err != nil {
			rerr = err
			return
		}
		out = RoomInfo{
			RoomID:      room.ID,
			Name:        room.Name,
			Description: room.Description,
			Coord:       [2]int{room.Coord.X, room.Coord.Y},
			CreatedAt:   room.CreatedRound,
		}
		for _, d := range room.OpenDirections() {
			out.Exits = append(out.Exits, d.String())
		}
		for _, id := range room.Present() {
			if a, aerr := w.reg.Get(id); aerr == nil {
				out.Occupants = append(out.Occupants, a.Name)
			}
		}
	})
	if err != nil {
		return RoomInfo{}, err
	}
	return out, rerr
}

// ActorInfo is the public read model of an actor.
type ActorInfo struct {
	ActorID     string         `json:"actor_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Kind        string         `json:"kind"`
	RoomID      string         `json:"room_id"`
	Active      bool           `json:"active"`
	History     []HistoryEntry `json:"history,omitempty"`
}

func (w *World) ActorInfo(ctx context.Context, actorID string) (ActorInfo, error) {
	var out ActorInfo
	var rerr error
	err := w.exec(ctx, func(w *World) {
		a, err := w.reg.Get(actorID)
		if err != nil {
			rerr = err
			return
		}
		out = ActorInfo{
			ActorID:     a.ID,
			Name:        a.Name,
			Description: a.Description,
			Kind:        string(a.Kind),
			RoomID:      a.RoomID,
			Active:      a.Active,
			History:     append([]HistoryEntry(nil), a.History...),
		}
	})
	if err != nil {
		return ActorInfo{}, err
	}
	return out, rerr
}

// QueryMemoryEvents returns an actor's witnessed events through the
// between-rounds read channel.
func (w *World) QueryMemoryEvents(ctx context.Context, actorID string, f EventFilter) ([]GameEvent, error) {
	var out []GameEvent
	var rerr error
	err := w.exec(ctx, func(w *World) {
		if _, gerr := w.reg.Get(actorID); gerr != nil {
			rerr = gerr
			return
		}
		out = w.mem.QueryEvents(actorID, f)
	})
	if err != nil {
		return nil, err
	}
	return out, rerr
}

func (w *World) QueryKnownRooms(ctx context.Context, actorID string) ([]RoomMemory, error) {
	var out []RoomMemory
	var rerr error
	err := w.exec(ctx, func(w *World) {
		if _, gerr := w.reg.Get(actorID); gerr != nil {
			rerr = gerr
			return
		}
		out = w.mem.KnownRooms(actorID)
	})
	if err != nil {
		return nil, err
	}
	return out, rerr
}

func (w *World) QueryKnownActors(ctx context.Context, actorID string) ([]ActorMemory, error) {
	var out []ActorMemory
	var rerr error
	err := w.exec(ctx, func(w *World) {
		if _, gerr := w.reg.Get(actorID); gerr != nil {
			rerr = gerr
			return
		}
		out = w.mem.KnownActors(actorID)
	})
	if err != nil {
		return nil, err
	}
	return out, rerr
}

// RefreshRoomDescription replaces a room's description with host-supplied
// text, applied on the engine goroutine between rounds. Occupants pick up
// the new text the next time they observe or re-enter the room.
func (w *World) RefreshRoomDescription(ctx context.Context, roomID, description string) error {
	var rerr error
	err := w.exec(ctx, func(w *World) {
		rerr = w.graph.RefreshRoomDescription(roomID, description)
	})
	if err != nil {
		return err
	}
	return rerr
}

// RefreshActorDescription stores host-supplied description text in one
// actor's memory of another, verbatim.
func (w *World) RefreshActorDescription(ctx context.Context, ownerID, actorName, description string) error {
	var rerr error
	err := w.exec(ctx, func(w *World) {
		if _, gerr := w.reg.Get(ownerID); gerr != nil {
			rerr = gerr
			return
		}
		w.mem.RefreshActorDescription(ownerID, actorName, description)
	})
	if err != nil {
		return err
	}
	return rerr
}

// Digest returns the current state digest through the read channel.
func (w *World) Digest(ctx context.Context) (string, error) {
	var d string
	err := w.exec(ctx, func(w *World) {
		d = w.stateDigest(w.round.Load())
	})
	return d, err
}
