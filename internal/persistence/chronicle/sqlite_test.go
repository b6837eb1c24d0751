package chronicle

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"dungeongrid.ai/internal/persistence/snapshot"
	"dungeongrid.ai/internal/sim/world"
)

func TestChronicle_IndexesRoundsAndSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronicle.db")
	c, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	entry := world.RoundLogEntry{
		Round:  3,
		Digest: "cafe",
		Joins:  []world.RecordedJoin{{ActorID: "A0001", Name: "ana", Kind: "AUTOMATED", RoomID: "R0_0"}},
		Decisions: []world.RecordedDecision{
			{ActorID: "A0001", Verb: "MOVE", Direction: "N", Result: "APPLIED"},
			{ActorID: "A0002", Verb: "NOOP", Result: "TIMEOUT"},
		},
		Events: []world.GameEvent{
			{Seq: 11, Round: 3, Kind: world.EventMoveOut, RoomID: "R0_0", ActorID: "A0001", ActorName: "ana"},
			{Seq: 12, Round: 3, Kind: world.EventMoveIn, RoomID: "R0_1", ActorID: "A0001", ActorName: "ana"},
		},
	}
	if err := c.WriteRound(entry); err != nil {
		t.Fatalf("write round: %v", err)
	}
	c.RecordSnapshot("/data/snapshots/3.snap.zst", snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: "dungeon_1", Round: 3},
		Seed:   7,
		Rooms:  []snapshot.RoomV1{{ID: "R0_0"}, {ID: "R0_1"}},
		Actors: []snapshot.ActorV1{{ID: "A0001"}},
	})

	// Close drains the writer channel before the db shuts down.
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var digest string
	var decisions, events int
	if err := db.QueryRow(`SELECT digest, decisions, events FROM rounds WHERE round = 3`).
		Scan(&digest, &decisions, &events); err != nil {
		t.Fatalf("rounds row: %v", err)
	}
	if digest != "cafe" || decisions != 2 || events != 2 {
		t.Fatalf("rounds row = %s %d %d", digest, decisions, events)
	}

	var result string
	if err := db.QueryRow(`SELECT result FROM decisions WHERE actor_id = 'A0002'`).Scan(&result); err != nil {
		t.Fatalf("decision row: %v", err)
	}
	if result != "TIMEOUT" {
		t.Fatalf("result = %s", result)
	}

	var evCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events WHERE actor_id = 'A0001'`).Scan(&evCount); err != nil {
		t.Fatalf("events count: %v", err)
	}
	if evCount != 2 {
		t.Fatalf("events = %d", evCount)
	}

	var snapPath string
	var rooms, actors int
	if err := db.QueryRow(`SELECT path, rooms, actors FROM snapshots WHERE round = 3`).
		Scan(&snapPath, &rooms, &actors); err != nil {
		t.Fatalf("snapshot row: %v", err)
	}
	if snapPath == "" || rooms != 2 || actors != 1 {
		t.Fatalf("snapshot row = %s %d %d", snapPath, rooms, actors)
	}
}

func TestChronicle_WriteAfterCloseIsNoop(t *testing.T) {
	c, err := OpenSQLite(filepath.Join(t.TempDir(), "chronicle.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Must not panic or block.
	done := make(chan struct{})
	go func() {
		_ = c.WriteRound(world.RoundLogEntry{Round: 1, Digest: "x"})
		c.RecordSnapshot("p", snapshot.SnapshotV1{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write after close blocked")
	}
}
