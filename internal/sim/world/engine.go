package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/google/uuid"

	"dungeongrid.ai/internal/persistence/snapshot"
)

// EngineState tracks where the turn engine is in its round cycle.
type EngineState uint8

const (
	StateIdle EngineState = iota
	StateRoundStart
	StatePerActorDecision
	StatePerActorApply
	StateRoundEnd
	StateHalted
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRoundStart:
		return "ROUND_START"
	case StatePerActorDecision:
		return "PER_ACTOR_DECISION"
	case StatePerActorApply:
		return "PER_ACTOR_APPLY"
	case StateRoundEnd:
		return "ROUND_END"
	case StateHalted:
		return "HALTED"
	}
	return "?"
}

// Describer supplies display text for new rooms and actors. The engine
// stores the text verbatim.
type Describer interface {
	RoomDescriber
	ActorDetails(name string) string
}

// RoundLogger receives one entry per completed round.
type RoundLogger interface {
	WriteRound(entry RoundLogEntry) error
}

type RoundLogEntry struct {
	Round     uint64             `json:"round"`
	Joins     []RecordedJoin     `json:"joins,omitempty"`
	Decisions []RecordedDecision `json:"decisions,omitempty"`
	Events    []GameEvent        `json:"events,omitempty"`
	Digest    string             `json:"digest"`
}

type RecordedJoin struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	RoomID  string `json:"room_id"`
}

// Decision results recorded in round logs.
const (
	ResultApplied  = "APPLIED"
	ResultNoop     = "NOOP"
	ResultTimeout  = "TIMEOUT"
	ResultInvalid  = "INVALID"
	ResultRejected = "REJECTED"
	ResultSkipped  = "SKIPPED"
)

type RecordedDecision struct {
	ActorID   string `json:"actor_id"`
	Verb      string `json:"verb"`
	Direction string `json:"direction,omitempty"`
	Content   string `json:"content,omitempty"`
	Result    string `json:"result"`
}

// World is the single-writer simulation aggregate: the graph, the actor
// registry, the memory store, and the turn engine driving them. All state
// is owned by the engine goroutine; everything else talks to it over
// channels or through the read API, which is serviced between rounds.
type World struct {
	cfg Config
	log *log.Logger

	graph    *Graph
	reg      *Registry
	mem      *MemoryStore
	router   *EventRouter
	describe Describer

	sources map[string]DecisionSource
	resume  map[string]string // resume token -> actor id

	state   EngineState
	round   atomic.Uint64
	seq     uint64
	nextNum uint64

	pendingJoins []RecordedJoin

	join   chan JoinRequest
	attach chan AttachRequest
	leave  chan string
	reads  chan readReq
	stop   chan struct{}
	done   chan struct{}

	roundLogger  RoundLogger
	snapshotSink chan<- snapshot.SnapshotV1
}

type JoinRequest struct {
	Name   string
	Kind   ActorKind
	Source DecisionSource
	Sink   EventSink
	Resp   chan JoinResponse
}

type AttachRequest struct {
	ResumeToken string
	Source      DecisionSource
	Sink        EventSink
	Resp        chan JoinResponse
}

type JoinResponse struct {
	ActorID     string
	ActorName   string
	ResumeToken string
	Room        RoomView
	Err         error
}

type readReq struct {
	fn   func(w *World)
	done chan struct{}
}

func New(cfg Config, d Describer, logger *log.Logger) (*World, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	mem := NewMemoryStore(cfg.Memory)
	w := &World{
		cfg:      cfg,
		log:      logger,
		graph:    NewGraph(cfg.MaxRoomPaths, cfg.Seed, d),
		reg:      NewRegistry(),
		mem:      mem,
		router:   NewEventRouter(mem),
		describe: d,
		sources:  map[string]DecisionSource{},
		resume:   map[string]string{},
		join:     make(chan JoinRequest, 16),
		attach:   make(chan AttachRequest, 16),
		leave:    make(chan string, 16),
		reads:    make(chan readReq, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if _, err := w.graph.Bootstrap(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) SetRoundLogger(l RoundLogger)                  { w.roundLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Attach() chan<- AttachRequest { return w.attach }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) CurrentRound() uint64 { return w.round.Load() }
func (w *World) Config() Config       { return w.cfg }

// handleJoin registers a new actor and drops it into the starting room.
func (w *World) handleJoin(req JoinRequest) {
	resp := w.joinActor(req.Name, req.Kind, req.Source, req.Sink)
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (w *World) joinActor(name string, kind ActorKind, src DecisionSource, sink EventSink) JoinResponse {
	start, err := w.graph.Room(RoomID(Coord{0, 0}))
	if err != nil {
		return JoinResponse{Err: err}
	}

	w.nextNum++
	a := &Actor{
		ID:     fmt.Sprintf("A%04d", w.nextNum),
		Name:   name,
		Kind:   kind,
		RoomID: start.ID,
	}
	if w.describe != nil {
		a.Description = w.describe.ActorDetails(name)
	}
	if err := w.reg.Register(a); err != nil {
		w.nextNum--
		return JoinResponse{Err: err}
	}
	start.enter(a.ID)

	if src != nil {
		w.sources[a.ID] = src
	}
	if sink != nil {
		w.router.SetSink(a.ID, sink)
	}

	token := uuid.NewString()
	w.resume[token] = a.ID

	// The newcomer knows where it is standing.
	w.mem.refreshRoom(a.ID, start, w.seq)

	w.pendingJoins = append(w.pendingJoins, RecordedJoin{
		ActorID: a.ID, Name: a.Name, Kind: string(a.Kind), RoomID: start.ID,
	})
	w.log.Printf("join actor=%s name=%q kind=%s room=%s", a.ID, a.Name, a.Kind, start.ID)

	return JoinResponse{
		ActorID:     a.ID,
		ActorName:   a.Name,
		ResumeToken: token,
		Room:        w.roomView(start, a.ID),
	}
}

// handleAttach re-binds a disconnected actor to a fresh source/sink.
func (w *World) handleAttach(req AttachRequest) {
	resp := JoinResponse{}
	id, ok := w.resume[req.ResumeToken]
	if !ok {
		resp.Err = fmt.Errorf("%w: unknown resume token", ErrActorNotFound)
	} else if a, err := w.reg.Get(id); err != nil {
		resp.Err = err
	} else {
		a.Active = true
		if req.Source != nil {
			w.sources[id] = req.Source
		}
		if req.Sink != nil {
			w.router.SetSink(id, req.Sink)
		}
		room, _ := w.graph.Room(a.RoomID)
		resp.ActorID = a.ID
		resp.ActorName = a.Name
		resp.ResumeToken = req.ResumeToken
		resp.Room = w.roomView(room, a.ID)
		w.log.Printf("attach actor=%s name=%q", a.ID, a.Name)
	}
	if req.Resp != nil {
		req.Resp <- resp
	}
}

// handleLeave detaches an actor's source and sink and stops scheduling it.
// The actor and its history stay queryable.
func (w *World) handleLeave(actorID string) {
	if _, err := w.reg.Get(actorID); err != nil {
		return
	}
	delete(w.sources, actorID)
	w.router.SetSink(actorID, nil)
	_ = w.reg.SetActive(actorID, false)
	w.log.Printf("leave actor=%s", actorID)
}

// runRound executes one full pass over all registered actors.
func (w *World) runRound(ctx context.Context) error {
	w.state = StateRoundStart
	nowRound := w.round.Load()
	order := w.reg.AllIDs()

	entry := RoundLogEntry{Round: nowRound, Joins: w.pendingJoins}
	w.pendingJoins = nil

	for _, id := range order {
		a, err := w.reg.Get(id)
		if err != nil || !a.Active {
			continue
		}
		src := w.sources[id]
		if src == nil {
			continue
		}

		prompt := w.buildPrompt(a, nowRound)

		w.state = StatePerActorDecision
		dctx, cancel := context.WithTimeout(ctx, w.cfg.DecisionTimeout)
		dec, derr := src.Decide(dctx, prompt)
		cancel()
		if derr != nil && errors.Is(derr, context.DeadlineExceeded) && ctx.Err() == nil {
			derr = fmt.Errorf("%w: no decision within %s", ErrDecisionTimeout, w.cfg.DecisionTimeout)
		}

		rec := RecordedDecision{ActorID: id, Verb: string(dec.Verb)}
		if derr != nil {
			if errors.Is(derr, ErrDecisionTimeout) {
				w.log.Printf("round=%d actor=%s %v", nowRound, id, derr)
				rec.Verb, rec.Result = string(VerbNoop), ResultTimeout
			} else if ctx.Err() != nil {
				// Engine shutdown mid-decision: nothing was applied.
				return ctx.Err()
			} else {
				w.log.Printf("round=%d actor=%s decision error: %v", nowRound, id, derr)
				rec.Verb, rec.Result = string(VerbNoop), ResultSkipped
			}
			entry.Decisions = append(entry.Decisions, rec)
			continue
		}

		w.state = StatePerActorApply
		events, aerr := w.applyDecision(a, prompt, dec, nowRound)
		switch {
		case aerr == nil:
			rec.Direction = directionLabel(dec)
			rec.Content = dec.Content
			rec.Result = ResultApplied
			if dec.Verb == VerbNoop {
				rec.Result = ResultNoop
			}
			entry.Events = append(entry.Events, events...)
		case errors.Is(aerr, ErrPathUnavailable):
			w.log.Printf("round=%d actor=%s rejected: %v", nowRound, id, aerr)
			rec.Result = ResultRejected
		case errors.Is(aerr, errInvalidDecision):
			w.log.Printf("round=%d actor=%s invalid decision: %v", nowRound, id, aerr)
			rec.Result = ResultInvalid
		default:
			// Graph corruption or similar. Fatal: halt the engine.
			return fmt.Errorf("round %d actor %s: %w", nowRound, id, aerr)
		}
		entry.Decisions = append(entry.Decisions, rec)
	}

	w.state = StateRoundEnd
	if err := w.checkRoundInvariants(); err != nil {
		return err
	}

	next := w.round.Add(1)
	entry.Digest = w.stateDigest(next)
	if w.roundLogger != nil {
		if err := w.roundLogger.WriteRound(entry); err != nil {
			w.log.Printf("round log: %v", err)
		}
	}

	if w.snapshotSink != nil && w.cfg.SnapshotEveryRounds > 0 && next%uint64(w.cfg.SnapshotEveryRounds) == 0 {
		snap := w.ExportSnapshot(next)
		select {
		case w.snapshotSink <- snap:
		default:
			// Drop the snapshot if the sink is backed up.
		}
	}
	return nil
}

var errInvalidDecision = errors.New("invalid decision")

// buildPrompt computes the actor's legal options from committed state.
func (w *World) buildPrompt(a *Actor, round uint64) TurnPrompt {
	room, _ := w.graph.Room(a.RoomID)
	verbs := []Verb{VerbObserve, VerbInteract}
	if room.Occupancy() > 1 {
		// TALK needs an audience.
		verbs = append(verbs, VerbTalk)
	}
	return TurnPrompt{
		Round:      round,
		ActorID:    a.ID,
		ActorName:  a.Name,
		Room:       w.roomView(room, a.ID),
		Directions: room.OpenDirections(),
		Verbs:      verbs,
		Deadline:   w.cfg.DecisionTimeout,
	}
}

func (w *World) roomView(room *Room, selfID string) RoomView {
	if room == nil {
		return RoomView{}
	}
	v := RoomView{
		RoomID:      room.ID,
		Name:        room.Name,
		Description: room.Description,
		Coord:       room.Coord,
	}
	for _, id := range room.Present() {
		if id == selfID {
			continue
		}
		if other, err := w.reg.Get(id); err == nil {
			v.Occupants = append(v.Occupants, other.Name)
		}
	}
	return v
}

// applyDecision validates and applies one decision. It either fully applies
// (graph + registry + events routed) or leaves the world untouched.
func (w *World) applyDecision(a *Actor, prompt TurnPrompt, dec Decision, round uint64) ([]GameEvent, error) {
	switch dec.Verb {
	case VerbNoop:
		a.recordHistory(HistoryEntry{Round: round, Verb: string(VerbNoop), FromRoom: a.RoomID, ToRoom: a.RoomID})
		return nil, nil

	case VerbMove:
		if !prompt.HasDirection(dec.Direction) {
			return nil, fmt.Errorf("%w: direction %s not offered", errInvalidDecision, dec.Direction)
		}
		return w.applyMove(a, dec.Direction, round)

	case VerbTalk, VerbInteract, VerbObserve:
		if !prompt.HasVerb(dec.Verb) {
			return nil, fmt.Errorf("%w: verb %s not offered", errInvalidDecision, dec.Verb)
		}
		return w.applyAction(a, dec, round)

	default:
		return nil, fmt.Errorf("%w: unknown verb %q", errInvalidDecision, dec.Verb)
	}
}

func (w *World) applyMove(a *Actor, dir Direction, round uint64) ([]GameEvent, error) {
	from, err := w.graph.Room(a.RoomID)
	if err != nil {
		return nil, err
	}
	to, err := w.graph.EnsurePath(a.RoomID, dir, round)
	if err != nil {
		// PathUnavailable rejects the decision; graph corruption is fatal
		// and propagates unchanged. Either way nothing was applied.
		return nil, err
	}

	// MOVE_OUT is routed before the mover leaves; it never witnesses its
	// own departure.
	evOut := w.newEvent(EventMoveOut, from.ID, a, round, fmt.Sprintf("%s left the room.", a.Name))
	w.router.Route(&evOut, from)

	from.leave(a.ID)
	to.enter(a.ID)
	a.RoomID = to.ID
	a.recordHistory(HistoryEntry{Round: round, Verb: string(VerbMove), FromRoom: from.ID, ToRoom: to.ID})

	evIn := w.newEvent(EventMoveIn, to.ID, a, round, fmt.Sprintf("%s entered the room.", a.Name))
	w.router.Route(&evIn, to)

	// Arrival refreshes the mover's own snapshot of the room even though
	// it does not witness its own MOVE_IN.
	w.mem.refreshRoom(a.ID, to, evIn.Seq)

	return []GameEvent{evOut, evIn}, nil
}

func (w *World) applyAction(a *Actor, dec Decision, round uint64) ([]GameEvent, error) {
	room, err := w.graph.Room(a.RoomID)
	if err != nil {
		return nil, err
	}

	var kind EventKind
	content := dec.Content
	switch dec.Verb {
	case VerbTalk:
		kind = EventTalk
	case VerbInteract:
		kind = EventInteract
	case VerbObserve:
		kind = EventObserve
		if content == "" {
			content = fmt.Sprintf("%s looks around the room.", a.Name)
		}
	}

	ev := w.newEvent(kind, room.ID, a, round, content)
	w.router.Route(&ev, room)
	a.recordHistory(HistoryEntry{Round: round, Verb: string(dec.Verb), FromRoom: room.ID, ToRoom: room.ID})

	if dec.Verb == VerbObserve {
		// Observing synchronizes the observer's own knowledge of the room
		// and of everyone standing in it.
		w.mem.refreshRoom(a.ID, room, ev.Seq)
		for _, id := range room.Present() {
			if id == a.ID {
				continue
			}
			if other, oerr := w.reg.Get(id); oerr == nil {
				w.mem.record(a.ID, GameEvent{
					Seq: ev.Seq, Round: round, Kind: EventObserve,
					RoomID: room.ID, ActorID: other.ID, ActorName: other.Name,
					Content: fmt.Sprintf("%s is here.", other.Name),
				}, nil)
			}
		}
	}

	return []GameEvent{ev}, nil
}

func (w *World) newEvent(kind EventKind, roomID string, a *Actor, round uint64, content string) GameEvent {
	w.seq++
	return GameEvent{
		Seq:       w.seq,
		Round:     round,
		Kind:      kind,
		RoomID:    roomID,
		ActorID:   a.ID,
		ActorName: a.Name,
		Content:   content,
	}
}

// checkRoundInvariants runs the between-rounds consistency checks: graph
// invariants plus presence/location agreement.
func (w *World) checkRoundInvariants() error {
	if err := w.graph.CheckInvariants(); err != nil {
		return err
	}
	for _, id := range w.reg.AllIDs() {
		a, err := w.reg.Get(id)
		if err != nil {
			return err
		}
		room, err := w.graph.Room(a.RoomID)
		if err != nil {
			return fmt.Errorf("%w: actor %s in missing room %s", ErrGraphInvariant, id, a.RoomID)
		}
		if !room.contains(id) {
			return fmt.Errorf("%w: actor %s absent from presence set of %s", ErrGraphInvariant, id, a.RoomID)
		}
	}
	for _, room := range w.graph.Rooms() {
		for _, id := range room.Present() {
			a, err := w.reg.Get(id)
			if err != nil || a.RoomID != room.ID {
				return fmt.Errorf("%w: stale presence of %s in %s", ErrGraphInvariant, id, room.ID)
			}
		}
	}
	return nil
}

func directionLabel(dec Decision) string {
	if dec.Verb != VerbMove {
		return ""
	}
	return dec.Direction.String()
}
