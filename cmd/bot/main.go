package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"dungeongrid.ai/internal/protocol"
)

// The bot is a wanderer: it explores, prefers exits it has not just come
// from, and chats when someone shares the room.
func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "wanderer", "actor name")
		seed = flag.Int64("seed", 0, "policy rng seed (0 = time-based)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ActorName:       *name,
		ActorKind:       "AUTOMATED",
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	policy := &wanderer{rng: rand.New(rand.NewSource(s))}

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME actor_id=%s room=%s seed=%d", w.ActorID, w.Room.RoomID, w.WorldParams.Seed)

		case protocol.TypeTurn:
			var turn protocol.TurnMsg
			if err := json.Unmarshal(msg, &turn); err != nil {
				continue
			}
			act := policy.act(&turn)
			if err := conn.WriteJSON(act); err != nil {
				return
			}

		case protocol.TypeEvent:
			var ev protocol.EventMsg
			if err := json.Unmarshal(msg, &ev); err != nil {
				continue
			}
			logger.Printf("EVENT round=%d kind=%s room=%s: %s", ev.Round, ev.Kind, ev.RoomID, ev.Content)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR code=%s: %s", e.Code, e.Message)
		}
	}
}

type wanderer struct {
	rng      *rand.Rand
	lastMove string // direction of the previous move, to avoid backtracking
}

var opposite = map[string]string{"N": "S", "S": "N", "E": "W", "W": "E"}

func (w *wanderer) act(turn *protocol.TurnMsg) protocol.ActMsg {
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Round:           turn.Round,
		ActorID:         turn.ActorID,
	}

	// Say hello now and then if the room is occupied.
	if len(turn.Room.Occupants) > 0 && w.rng.Intn(4) == 0 {
		act.Verb = protocol.VerbTalk
		act.Content = fmt.Sprintf("Anyone know the way out of %s?", turn.Room.Name)
		return act
	}

	// Otherwise wander, avoiding the door we just came through when
	// another exit exists.
	choices := make([]string, 0, len(turn.Directions))
	for _, d := range turn.Directions {
		if d == opposite[w.lastMove] && len(turn.Directions) > 1 {
			continue
		}
		choices = append(choices, d)
	}
	if len(choices) > 0 {
		dir := choices[w.rng.Intn(len(choices))]
		act.Verb = protocol.VerbMove
		act.Direction = dir
		w.lastMove = dir
		return act
	}

	act.Verb = protocol.VerbObserve
	return act
}
