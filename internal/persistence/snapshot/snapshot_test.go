package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "10.snap.zst")

	in := SnapshotV1{
		Header:       Header{Version: 1, WorldID: "dungeon_1", Round: 10},
		Seed:         1337,
		MaxRoomPaths: 3,
		Rooms: []RoomV1{
			{
				ID:    "R0_0",
				Coord: [2]int{0, 0},
				Name:  "The Dusty chamber",
				Paths: [4]PathV1{
					{State: 1, To: "R0_1"},
					{State: 2},
					{State: 0},
					{State: 2},
				},
				Present: []string{"A0001"},
			},
			{ID: "R0_1", Coord: [2]int{0, 1}, Name: "The Vaulted hall", CreatedRound: 4},
		},
		Actors: []ActorV1{
			{
				ID: "A0001", Name: "ana", Kind: "AUTOMATED", RoomID: "R0_0",
				History: []HistoryV1{{Round: 4, Verb: "MOVE", FromRoom: "R0_1", ToRoom: "R0_0"}},
			},
		},
		Memories: []MemoryV1{
			{
				ActorID:    "A0001",
				KnownRooms: []RoomMemoryV1{{RoomID: "R0_0", Name: "The Dusty chamber", SyncedSeq: 7}},
				Recent:     []EventV1{{Seq: 7, Round: 4, Kind: "MOVE_IN", RoomID: "R0_0", ActorID: "A0002", ActorName: "bo"}},
			},
		},
		Counters: CountersV1{NextActor: 2, EventSeq: 7},
	}

	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if out.Header != in.Header {
		t.Fatalf("header: %+v vs %+v", out.Header, in.Header)
	}
	if out.Seed != in.Seed || out.MaxRoomPaths != in.MaxRoomPaths || out.Counters != in.Counters {
		t.Fatalf("scalars differ: %+v", out)
	}
	if len(out.Rooms) != 2 || out.Rooms[0].Paths != in.Rooms[0].Paths {
		t.Fatalf("rooms: %+v", out.Rooms)
	}
	if len(out.Actors) != 1 || len(out.Actors[0].History) != 1 {
		t.Fatalf("actors: %+v", out.Actors)
	}
	if len(out.Memories) != 1 || out.Memories[0].Recent[0].Seq != 7 {
		t.Fatalf("memories: %+v", out.Memories)
	}
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst")); err == nil {
		t.Fatal("missing file read succeeded")
	}
}
