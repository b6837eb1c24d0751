package world

import (
	"context"
	"testing"
)

func TestSnapshot_RoundTripPreservesDigest(t *testing.T) {
	w := newTestWorld(t, testConfig())
	origin, _ := w.graph.Room(RoomID(Coord{0, 0}))
	dir := origin.OpenDirections()[0]

	join(t, w, "ana", &scriptedSource{decisions: []Decision{
		{Verb: VerbMove, Direction: dir},
		{Verb: VerbObserve},
	}})
	join(t, w, "bo", &scriptedSource{decisions: []Decision{
		{Verb: VerbObserve},
		{Verb: VerbTalk, Content: "gone quiet in here"},
	}})

	for i := 0; i < 3; i++ {
		if err := w.runRound(context.Background()); err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
	}

	round := w.round.Load()
	snap := w.ExportSnapshot(round)
	if snap.Header.Round != round || snap.Header.WorldID != "test" {
		t.Fatalf("header = %+v", snap.Header)
	}
	if snap.Counters.NextActor != 2 || snap.Counters.EventSeq != w.seq {
		t.Fatalf("counters = %+v", snap.Counters)
	}

	restored, err := Restore(testConfig(), snap, stubDescriber{}, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	want := w.stateDigest(round)
	got := restored.stateDigest(round)
	if got != want {
		t.Fatalf("digest mismatch after restore:\n got %s\nwant %s", got, want)
	}

	// Restored actors idle until a client resumes them.
	for _, id := range restored.reg.AllIDs() {
		a, _ := restored.reg.Get(id)
		if a.Active {
			t.Fatalf("restored actor %s is active", id)
		}
	}

	// The restored world keeps running cleanly.
	if err := restored.runRound(context.Background()); err != nil {
		t.Fatalf("restored round: %v", err)
	}
}

func TestSnapshot_VersionChecked(t *testing.T) {
	w := newTestWorld(t, testConfig())
	snap := w.ExportSnapshot(0)
	snap.Header.Version = 99
	if _, err := Restore(testConfig(), snap, stubDescriber{}, nil); err == nil {
		t.Fatal("future snapshot version accepted")
	}
}
