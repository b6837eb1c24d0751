package world

import (
	"fmt"
	"testing"
)

func TestMemory_EventFIFOBounded(t *testing.T) {
	m := NewMemoryStore(MemoryConfig{EventCap: 3})
	for i := 1; i <= 5; i++ {
		m.record("w", GameEvent{
			Seq: uint64(i), Kind: EventTalk, RoomID: "R0_0",
			ActorID: "A0001", ActorName: "ana", Content: fmt.Sprintf("msg %d", i),
		}, nil)
	}
	got := m.EventsAfter("w", 0)
	if len(got) != 3 {
		t.Fatalf("retained = %d, want 3", len(got))
	}
	// Oldest first, and the two earliest evicted.
	if got[0].Seq != 3 || got[2].Seq != 5 {
		t.Fatalf("seqs = %d..%d", got[0].Seq, got[2].Seq)
	}
}

func TestMemory_QueryFilters(t *testing.T) {
	m := NewMemoryStore(MemoryConfig{})
	m.record("w", GameEvent{Seq: 1, Kind: EventTalk, RoomID: "R0_0", ActorName: "ana"}, nil)
	m.record("w", GameEvent{Seq: 2, Kind: EventMoveOut, RoomID: "R0_0", ActorName: "ana"}, nil)
	m.record("w", GameEvent{Seq: 3, Kind: EventTalk, RoomID: "R1_0", ActorName: "bo"}, nil)

	all := m.QueryEvents("w", EventFilter{})
	if len(all) != 3 || all[0].Seq != 3 {
		t.Fatalf("unfiltered: %+v", all)
	}
	talks := m.QueryEvents("w", EventFilter{Kind: EventTalk})
	if len(talks) != 2 {
		t.Fatalf("talk filter = %d", len(talks))
	}
	room := m.QueryEvents("w", EventFilter{RoomID: "R1_0"})
	if len(room) != 1 || room[0].Seq != 3 {
		t.Fatalf("room filter: %+v", room)
	}
	limited := m.QueryEvents("w", EventFilter{Limit: 1})
	if len(limited) != 1 || limited[0].Seq != 3 {
		t.Fatalf("limit: %+v", limited)
	}
	if got := m.QueryEvents("nobody", EventFilter{}); got != nil {
		t.Fatalf("unknown witness: %+v", got)
	}
}

func TestMemory_KnownActorUpsertKeepsDescription(t *testing.T) {
	m := NewMemoryStore(MemoryConfig{})
	m.record("w", GameEvent{Seq: 1, Kind: EventTalk, RoomID: "R0_0", ActorName: "ana"}, nil)
	m.RefreshActorDescription("w", "ana", "a cartographer")
	m.record("w", GameEvent{Seq: 2, Kind: EventMoveOut, RoomID: "R1_0", ActorName: "ana"}, nil)

	am, ok := m.KnownActor("w", "ana")
	if !ok {
		t.Fatal("ana unknown")
	}
	if am.Description != "a cartographer" {
		t.Fatalf("description clobbered: %q", am.Description)
	}
	if am.LastSeenRoomID != "R1_0" || am.LastSeenSeq != 2 {
		t.Fatalf("last seen not advanced: %+v", am)
	}
}

func TestMemory_RoomSyncSkipsUnchanged(t *testing.T) {
	m := NewMemoryStore(MemoryConfig{})
	room := &Room{ID: "R0_0", Name: "Hall", Description: "A hall.", present: map[string]struct{}{}}

	m.refreshRoom("w", room, 5)
	rm, _ := m.KnownRoom("w", "R0_0")
	if rm.SyncedSeq != 5 {
		t.Fatalf("synced seq = %d", rm.SyncedSeq)
	}

	// Same text: the snapshot (and its seq) stays put.
	m.refreshRoom("w", room, 9)
	rm, _ = m.KnownRoom("w", "R0_0")
	if rm.SyncedSeq != 5 {
		t.Fatalf("unchanged room re-synced: seq = %d", rm.SyncedSeq)
	}

	room.Description = "A hall, now dark."
	m.refreshRoom("w", room, 12)
	rm, _ = m.KnownRoom("w", "R0_0")
	if rm.SyncedSeq != 12 || rm.Description != "A hall, now dark." {
		t.Fatalf("changed room not re-synced: %+v", rm)
	}
}

func TestMemory_EvictionByOldestSeq(t *testing.T) {
	m := NewMemoryStore(MemoryConfig{RoomCap: 2, ActorCap: 2})
	for i := 1; i <= 3; i++ {
		room := &Room{
			ID:          fmt.Sprintf("R%d_0", i),
			Name:        fmt.Sprintf("Room %d", i),
			Description: "x",
			present:     map[string]struct{}{},
		}
		m.refreshRoom("w", room, uint64(i))
		m.record("w", GameEvent{Seq: uint64(i), Kind: EventTalk, RoomID: room.ID, ActorName: fmt.Sprintf("actor%d", i)}, nil)
	}

	if _, ok := m.KnownRoom("w", "R1_0"); ok {
		t.Fatal("oldest room not evicted")
	}
	if _, ok := m.KnownRoom("w", "R3_0"); !ok {
		t.Fatal("newest room evicted")
	}
	if _, ok := m.KnownActor("w", "actor1"); ok {
		t.Fatal("oldest actor not evicted")
	}
	if _, ok := m.KnownActor("w", "actor3"); !ok {
		t.Fatal("newest actor evicted")
	}
}

func TestRegistry_Basics(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Actor{ID: "A0001", Name: "ana", RoomID: "R0_0"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&Actor{ID: "A0002", Name: "ana", RoomID: "R0_0"}); err == nil {
		t.Fatal("duplicate name accepted")
	}
	if err := r.Register(&Actor{ID: "A0001", Name: "other", RoomID: "R0_0"}); err == nil {
		t.Fatal("duplicate id accepted")
	}
	if err := r.Register(&Actor{ID: "A0003", Name: "", RoomID: "R0_0"}); err == nil {
		t.Fatal("empty name accepted")
	}

	a, err := r.GetByName("ana")
	if err != nil || a.ID != "A0001" {
		t.Fatalf("get by name: %v %+v", err, a)
	}
	if !a.Active {
		t.Fatal("registered actor not active")
	}
	if err := r.SetActive("A0001", false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if a.Active {
		t.Fatal("deactivation not visible")
	}
	if got := r.AllIDs(); len(got) != 1 || got[0] != "A0001" {
		t.Fatalf("all ids: %v", got)
	}
}
