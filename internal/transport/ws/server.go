package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dungeongrid.ai/internal/protocol"
	"dungeongrid.ai/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := newSession(conn)
		actorID, ok := s.handshake(conn, sess)
		if !ok {
			return
		}

		go sess.writeLoop()
		sess.readLoop()

		// Connection gone: detach the actor. It can resume later.
		s.world.Leave() <- actorID
		sess.close()
	}
}

// handshake reads HELLO, joins (or resumes) the actor, and replies WELCOME.
func (s *Server) handshake(conn *websocket.Conn, sess *session) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		writeClose(conn, "expected HELLO")
		return "", false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		writeClose(conn, "malformed HELLO")
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		s.writeError(conn, protocol.ErrProtoBadRequest, "unsupported protocol_version")
		writeClose(conn, "bad protocol_version")
		return "", false
	}

	kind := world.KindAutomated
	if strings.EqualFold(hello.ActorKind, string(world.KindHuman)) {
		kind = world.KindHuman
	}

	var resp world.JoinResponse
	if hello.Auth != nil && strings.TrimSpace(hello.Auth.ResumeToken) != "" {
		respCh := make(chan world.JoinResponse, 1)
		s.world.Attach() <- world.AttachRequest{
			ResumeToken: strings.TrimSpace(hello.Auth.ResumeToken),
			Source:      sess,
			Sink:        sess,
			Resp:        respCh,
		}
		resp = <-respCh
		if resp.Err != nil {
			s.writeError(conn, protocol.ErrBadResume, resp.Err.Error())
			writeClose(conn, "bad resume token")
			return "", false
		}
	} else {
		if hello.ActorName == "" {
			s.writeError(conn, protocol.ErrProtoBadRequest, "actor_name required")
			writeClose(conn, "actor_name required")
			return "", false
		}
		respCh := make(chan world.JoinResponse, 1)
		s.world.Join() <- world.JoinRequest{
			Name:   hello.ActorName,
			Kind:   kind,
			Source: sess,
			Sink:   sess,
			Resp:   respCh,
		}
		resp = <-respCh
		if resp.Err != nil {
			s.writeError(conn, protocol.ErrNameTaken, resp.Err.Error())
			writeClose(conn, "join rejected")
			return "", false
		}
	}

	cfg := s.world.Config()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ActorID:         resp.ActorID,
		ActorName:       resp.ActorName,
		ResumeToken:     resp.ResumeToken,
		WorldParams: protocol.WorldParams{
			WorldID:         cfg.ID,
			MaxRoomPaths:    cfg.MaxRoomPaths,
			EventMemoryCap:  cfg.Memory.EventCap,
			DecisionTimeout: int(cfg.DecisionTimeout / time.Millisecond),
			Seed:            cfg.Seed,
		},
		Room: roomObs(resp.Room),
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		// The actor joined but the session is unusable; detach it so it
		// does not burn a timeout every round.
		s.world.Leave() <- resp.ActorID
		return "", false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.world.Leave() <- resp.ActorID
		return "", false
	}

	sess.actorID = resp.ActorID
	s.log.Printf("ws session actor=%s name=%q", resp.ActorID, resp.ActorName)
	return resp.ActorID, true
}

// writeError writes directly to the connection; during the handshake the
// session's write loop is not running yet.
func (s *Server) writeError(conn *websocket.Conn, code, msg string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         msg,
	})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func writeClose(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

// session binds one websocket connection to one actor. It is both the
// actor's DecisionSource (the engine calls Decide, which round-trips a
// TURN/ACT pair over the socket) and its EventSink (witnessed events are
// pushed as EVENT messages).
type session struct {
	conn    *websocket.Conn
	actorID string

	out  chan []byte
	acts chan protocol.ActMsg

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		conn:   conn,
		out:    make(chan []byte, 64),
		acts:   make(chan protocol.ActMsg, 4),
		closed: make(chan struct{}),
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// send queues a message for the writer; full queue or closed session drops it.
func (s *session) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case s.out <- b:
	case <-s.closed:
	default:
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.closed:
			return
		case b := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *session) readLoop() {
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.close()
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeAct {
			continue
		}
		var act protocol.ActMsg
		if err := json.Unmarshal(msg, &act); err != nil {
			continue
		}
		if act.ProtocolVersion != protocol.Version {
			continue
		}
		select {
		case s.acts <- act:
		default:
			// Client sent more ACTs than it got TURNs; drop the excess.
		}
	}
}

// Decide implements world.DecisionSource: push a TURN, wait for the
// matching ACT. A stale ACT for an earlier round is discarded.
func (s *session) Decide(ctx context.Context, p world.TurnPrompt) (world.Decision, error) {
	turn := protocol.TurnMsg{
		Type:            protocol.TypeTurn,
		ProtocolVersion: protocol.Version,
		Round:           p.Round,
		ActorID:         p.ActorID,
		Room:            roomObs(p.Room),
		DeadlineMs:      int(p.Deadline / time.Millisecond),
	}
	for _, d := range p.Directions {
		turn.Directions = append(turn.Directions, d.String())
	}
	for _, v := range p.Verbs {
		turn.Verbs = append(turn.Verbs, string(v))
	}
	s.send(turn)

	for {
		select {
		case <-ctx.Done():
			return world.Decision{Verb: world.VerbNoop}, ctx.Err()
		case <-s.closed:
			return world.Decision{Verb: world.VerbNoop}, nil
		case act := <-s.acts:
			if act.Round != p.Round || act.ActorID != p.ActorID {
				continue
			}
			dec := world.Decision{Verb: world.Verb(act.Verb), Content: act.Content}
			if dec.Verb == world.VerbMove {
				dir, ok := world.ParseDirection(act.Direction)
				if !ok {
					s.send(protocol.ErrorMsg{
						Type:            protocol.TypeError,
						ProtocolVersion: protocol.Version,
						Code:            protocol.ErrBadDecision,
						Message:         "bad direction: " + act.Direction,
					})
					return world.Decision{Verb: world.VerbNoop}, nil
				}
				dec.Direction = dir
			}
			return dec, nil
		}
	}
}

// Deliver implements world.EventSink. It must not block the engine.
func (s *session) Deliver(ev world.GameEvent) {
	s.send(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Seq:             ev.Seq,
		Round:           ev.Round,
		Kind:            string(ev.Kind),
		RoomID:          ev.RoomID,
		ActorID:         ev.ActorID,
		ActorName:       ev.ActorName,
		Content:         ev.Content,
	})
}

func roomObs(v world.RoomView) protocol.RoomObs {
	return protocol.RoomObs{
		RoomID:      v.RoomID,
		Name:        v.Name,
		Description: v.Description,
		Coord:       [2]int{v.Coord.X, v.Coord.Y},
		Occupants:   v.Occupants,
	}
}
