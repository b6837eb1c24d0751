package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dungeongrid.ai/internal/sim/world"
)

type plainDescriber struct{}

func (plainDescriber) RoomDetails(c world.Coord, exits []world.Direction) (string, string) {
	return fmt.Sprintf("Room %d,%d", c.X, c.Y), "A plain room."
}

func (plainDescriber) ActorDetails(name string) string { return name + " stands here." }

func startWorld(t *testing.T) (*world.World, context.CancelFunc) {
	t.Helper()
	w, err := world.New(world.Config{
		ID:            "apitest",
		Seed:          7,
		RoundInterval: 5 * time.Millisecond,
	}, plainDescriber{}, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	t.Cleanup(cancel)
	return w, cancel
}

func TestAPI_StatsAndLookups(t *testing.T) {
	w, _ := startWorld(t)

	respCh := make(chan world.JoinResponse, 1)
	w.Join() <- world.JoinRequest{
		Name: "ana",
		Kind: world.KindAutomated,
		Source: world.DecisionFunc(func(ctx context.Context, p world.TurnPrompt) (world.Decision, error) {
			return world.Decision{Verb: world.VerbObserve}, nil
		}),
		Resp: respCh,
	}
	joined := <-respCh
	if joined.Err != nil {
		t.Fatalf("join: %v", joined.Err)
	}

	srv := httptest.NewServer(NewServer(w, nil))
	defer srv.Close()

	get := func(path string, into any) int {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		if into != nil && resp.StatusCode == http.StatusOK {
			if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return resp.StatusCode
	}

	var stats world.Stats
	if code := get("/v1/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if stats.WorldID != "apitest" || stats.Actors != 1 || stats.StateDigest == "" {
		t.Fatalf("stats = %+v", stats)
	}

	var room world.RoomInfo
	if code := get("/v1/rooms/R0_0", &room); code != http.StatusOK {
		t.Fatalf("room status = %d", code)
	}
	if room.Name != "Room 0,0" || len(room.Occupants) != 1 || room.Occupants[0] != "ana" {
		t.Fatalf("room = %+v", room)
	}

	var actor world.ActorInfo
	if code := get("/v1/actors/"+joined.ActorID, &actor); code != http.StatusOK {
		t.Fatalf("actor status = %d", code)
	}
	if actor.Name != "ana" || actor.RoomID != "R0_0" {
		t.Fatalf("actor = %+v", actor)
	}

	if code := get("/v1/rooms/R9_9", nil); code != http.StatusNotFound {
		t.Fatalf("missing room status = %d", code)
	}
	if code := get("/v1/actors/A9999", nil); code != http.StatusNotFound {
		t.Fatalf("missing actor status = %d", code)
	}
	if code := get("/v1/actors/"+joined.ActorID+"/memory/events?limit=bogus", nil); code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", code)
	}
}

func TestAPI_MemoryEndpoints(t *testing.T) {
	w, _ := startWorld(t)

	joinActor := func(name string, src world.DecisionSource) world.JoinResponse {
		respCh := make(chan world.JoinResponse, 1)
		w.Join() <- world.JoinRequest{Name: name, Kind: world.KindAutomated, Source: src, Resp: respCh}
		r := <-respCh
		if r.Err != nil {
			t.Fatalf("join %s: %v", name, r.Err)
		}
		return r
	}

	talker := joinActor("talker", world.DecisionFunc(func(ctx context.Context, p world.TurnPrompt) (world.Decision, error) {
		if p.HasVerb(world.VerbTalk) {
			return world.Decision{Verb: world.VerbTalk, Content: "psst"}, nil
		}
		return world.Decision{Verb: world.VerbNoop}, nil
	}))
	listener := joinActor("listener", world.DecisionFunc(func(ctx context.Context, p world.TurnPrompt) (world.Decision, error) {
		return world.Decision{Verb: world.VerbNoop}, nil
	}))
	_ = talker

	// Wait until the listener has witnessed at least one TALK.
	deadline := time.Now().Add(3 * time.Second)
	for {
		evs, err := w.QueryMemoryEvents(context.Background(), listener.ActorID, world.EventFilter{Kind: world.EventTalk})
		if err == nil && len(evs) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("listener never witnessed a TALK")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv := httptest.NewServer(NewServer(w, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/actors/" + listener.ActorID + "/memory/events?kind=TALK&limit=5")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Events []world.GameEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Events) == 0 || body.Events[0].Content != "psst" {
		t.Fatalf("events = %+v", body.Events)
	}

	resp2, err := http.Get(srv.URL + "/v1/actors/" + listener.ActorID + "/memory/actors")
	if err != nil {
		t.Fatalf("GET actors: %v", err)
	}
	defer resp2.Body.Close()
	var body2 struct {
		Actors []world.ActorMemory `json:"actors"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&body2); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, am := range body2.Actors {
		if am.Name == "talker" {
			found = true
		}
	}
	if !found {
		t.Fatalf("talker not in known actors: %+v", body2.Actors)
	}
}
