package world

import (
	"fmt"
	"io"
	"log"

	"dungeongrid.ai/internal/persistence/snapshot"
)

const snapshotVersion = 1

// ExportSnapshot captures the committed world state. Only the engine
// goroutine may call it (runRound does, after the round commits).
func (w *World) ExportSnapshot(round uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshotVersion,
			WorldID: w.cfg.ID,
			Round:   round,
		},
		Seed:         w.cfg.Seed,
		MaxRoomPaths: w.cfg.MaxRoomPaths,
		Counters: snapshot.CountersV1{
			NextActor: w.nextNum,
			EventSeq:  w.seq,
		},
	}

	for _, r := range w.graph.Rooms() {
		rv := snapshot.RoomV1{
			ID:           r.ID,
			Coord:        [2]int{r.Coord.X, r.Coord.Y},
			Name:         r.Name,
			Description:  r.Description,
			CreatedRound: r.CreatedRound,
			Present:      r.Present(),
		}
		for _, d := range Directions {
			rv.Paths[d] = snapshot.PathV1{State: uint8(r.Paths[d].State), To: r.Paths[d].To}
		}
		snap.Rooms = append(snap.Rooms, rv)
	}

	for _, id := range w.reg.AllIDs() {
		a, err := w.reg.Get(id)
		if err != nil {
			continue
		}
		av := snapshot.ActorV1{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Kind:        string(a.Kind),
			RoomID:      a.RoomID,
		}
		for _, he := range a.History {
			av.History = append(av.History, snapshot.HistoryV1{
				Round: he.Round, Verb: he.Verb, FromRoom: he.FromRoom, ToRoom: he.ToRoom,
			})
		}
		snap.Actors = append(snap.Actors, av)

		mv := snapshot.MemoryV1{ActorID: a.ID}
		for _, rm := range w.mem.KnownRooms(a.ID) {
			mv.KnownRooms = append(mv.KnownRooms, snapshot.RoomMemoryV1(rm))
		}
		for _, am := range w.mem.KnownActors(a.ID) {
			mv.KnownActors = append(mv.KnownActors, snapshot.ActorMemoryV1(am))
		}
		for _, ev := range w.mem.EventsAfter(a.ID, 0) {
			mv.Recent = append(mv.Recent, snapshot.EventV1{
				Seq: ev.Seq, Round: ev.Round, Kind: string(ev.Kind),
				RoomID: ev.RoomID, ActorID: ev.ActorID, ActorName: ev.ActorName,
				Content: ev.Content,
			})
		}
		snap.Memories = append(snap.Memories, mv)
	}

	return snap
}

// Restore builds a world from a snapshot. Sources and sinks are not part of
// the snapshot; clients re-attach with their resume tokens after restart,
// or re-join under their old names.
func Restore(cfg Config, snap snapshot.SnapshotV1, d Describer, logger *log.Logger) (*World, error) {
	cfg = cfg.withDefaults()
	if snap.Header.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	cfg.ID = snap.Header.WorldID
	cfg.Seed = snap.Seed
	cfg.MaxRoomPaths = snap.MaxRoomPaths
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	mem := NewMemoryStore(cfg.Memory)
	w := &World{
		cfg: cfg,
		log: logger,
		// The rng stream is reseeded rather than resumed; derive the new
		// seed from the snapshot position so restores diverge from the
		// original run only in future room layouts, never in replays of
		// the same snapshot.
		graph:    NewGraph(cfg.MaxRoomPaths, snap.Seed^int64(snap.Counters.EventSeq), d),
		reg:      NewRegistry(),
		mem:      mem,
		describe: d,
		sources:  map[string]DecisionSource{},
		resume:   map[string]string{},
		seq:      snap.Counters.EventSeq,
		nextNum:  snap.Counters.NextActor,
		join:     make(chan JoinRequest, 16),
		attach:   make(chan AttachRequest, 16),
		leave:    make(chan string, 16),
		reads:    make(chan readReq, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.router = NewEventRouter(mem)
	w.round.Store(snap.Header.Round)

	for _, rv := range snap.Rooms {
		r := &Room{
			ID:           rv.ID,
			Coord:        Coord{X: rv.Coord[0], Y: rv.Coord[1]},
			Name:         rv.Name,
			Description:  rv.Description,
			CreatedRound: rv.CreatedRound,
			present:      map[string]struct{}{},
		}
		for _, d := range Directions {
			r.Paths[d] = Path{State: PathState(rv.Paths[d].State), To: rv.Paths[d].To}
		}
		for _, id := range rv.Present {
			r.present[id] = struct{}{}
		}
		w.graph.rooms[r.ID] = r
		w.graph.byCoord[r.Coord] = r.ID
		w.graph.order = append(w.graph.order, r.ID)
	}

	for _, av := range snap.Actors {
		a := &Actor{
			ID:          av.ID,
			Name:        av.Name,
			Description: av.Description,
			Kind:        ActorKind(av.Kind),
			RoomID:      av.RoomID,
		}
		for _, he := range av.History {
			a.History = append(a.History, HistoryEntry{
				Round: he.Round, Verb: he.Verb, FromRoom: he.FromRoom, ToRoom: he.ToRoom,
			})
		}
		if err := w.reg.Register(a); err != nil {
			return nil, fmt.Errorf("restore actor %s: %w", av.ID, err)
		}
		// No source is attached yet; the actor idles until a client resumes.
		_ = w.reg.SetActive(av.ID, false)
	}

	for _, mv := range snap.Memories {
		e := mem.ensure(mv.ActorID)
		for _, rm := range mv.KnownRooms {
			e.knownRooms[rm.RoomID] = RoomMemory(rm)
		}
		for _, am := range mv.KnownActors {
			e.knownActors[am.Name] = ActorMemory(am)
		}
		for _, ev := range mv.Recent {
			e.recent = append(e.recent, GameEvent{
				Seq: ev.Seq, Round: ev.Round, Kind: EventKind(ev.Kind),
				RoomID: ev.RoomID, ActorID: ev.ActorID, ActorName: ev.ActorName,
				Content: ev.Content,
			})
		}
	}

	if err := w.checkRoundInvariants(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return w, nil
}
