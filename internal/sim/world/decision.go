package world

import (
	"context"
	"time"
)

// Verb is what an actor chooses to do with its turn.
type Verb string

const (
	VerbMove     Verb = "MOVE"
	VerbTalk     Verb = "TALK"
	VerbInteract Verb = "INTERACT"
	VerbObserve  Verb = "OBSERVE"
	VerbNoop     Verb = "NOOP"
)

// Decision is one resolved choice for one actor's turn.
type Decision struct {
	Verb      Verb
	Direction Direction // meaningful only for VerbMove
	Content   string    // free text for TALK/INTERACT
}

// RoomView is a read-only snapshot of a room handed to decision sources.
type RoomView struct {
	RoomID      string
	Name        string
	Description string
	Coord       Coord
	Occupants   []string // display names, the deciding actor excluded
}

// TurnPrompt enumerates what is legal for the actor this round.
type TurnPrompt struct {
	Round      uint64
	ActorID    string
	ActorName  string
	Room       RoomView
	Directions []Direction // non-Absent exits
	Verbs      []Verb      // legal non-movement verbs
	Deadline   time.Duration
}

// HasDirection reports whether d is among the prompt's legal exits.
func (p TurnPrompt) HasDirection(d Direction) bool {
	for _, x := range p.Directions {
		if x == d {
			return true
		}
	}
	return false
}

// HasVerb reports whether v is legal this turn.
func (p TurnPrompt) HasVerb(v Verb) bool {
	if v == VerbNoop {
		return true
	}
	if v == VerbMove {
		return len(p.Directions) > 0
	}
	for _, x := range p.Verbs {
		if x == v {
			return true
		}
	}
	return false
}

// DecisionSource produces a decision for the current round. It is the only
// point where the engine may suspend: the engine calls it with a deadline
// context and treats expiry, cancellation, or error as a no-op. A source may
// block on arbitrary I/O (stdin, a websocket peer, a remote model) as long
// as it honors ctx.
type DecisionSource interface {
	Decide(ctx context.Context, prompt TurnPrompt) (Decision, error)
}

// DecisionFunc adapts a function to a DecisionSource.
type DecisionFunc func(ctx context.Context, prompt TurnPrompt) (Decision, error)

func (f DecisionFunc) Decide(ctx context.Context, prompt TurnPrompt) (Decision, error) {
	return f(ctx, prompt)
}
