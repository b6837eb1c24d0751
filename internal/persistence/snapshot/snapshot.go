package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Round   uint64 `json:"round"`
}

// SnapshotV1 is the full exported world state. A world restored from a
// snapshot replays identically to the world that wrote it: everything that
// feeds the state digest is captured, transport state (resume tokens,
// live connections) is not.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed         int64 `json:"seed"`
	MaxRoomPaths int   `json:"max_room_paths"`

	Rooms    []RoomV1   `json:"rooms"`
	Actors   []ActorV1  `json:"actors"`
	Memories []MemoryV1 `json:"memories,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextActor uint64 `json:"next_actor"`
	EventSeq  uint64 `json:"event_seq"`
}

type RoomV1 struct {
	ID           string    `json:"id"`
	Coord        [2]int    `json:"coord"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Paths        [4]PathV1 `json:"paths"`
	CreatedRound uint64    `json:"created_round"`
	Present      []string  `json:"present,omitempty"`
}

type PathV1 struct {
	State uint8  `json:"state"`
	To    string `json:"to,omitempty"`
}

type ActorV1 struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        string      `json:"kind"`
	RoomID      string      `json:"room_id"`
	History     []HistoryV1 `json:"history,omitempty"`
}

type HistoryV1 struct {
	Round    uint64 `json:"round"`
	Verb     string `json:"verb"`
	FromRoom string `json:"from_room"`
	ToRoom   string `json:"to_room"`
}

type MemoryV1 struct {
	ActorID     string          `json:"actor_id"`
	KnownRooms  []RoomMemoryV1  `json:"known_rooms,omitempty"`
	KnownActors []ActorMemoryV1 `json:"known_actors,omitempty"`
	Recent      []EventV1       `json:"recent,omitempty"`
}

type RoomMemoryV1 struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SyncedSeq   uint64 `json:"synced_seq"`
}

type ActorMemoryV1 struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	LastSeenRoomID string `json:"last_seen_room_id"`
	LastSeenSeq    uint64 `json:"last_seen_seq"`
}

type EventV1 struct {
	Seq       uint64 `json:"seq"`
	Round     uint64 `json:"round"`
	Kind      string `json:"kind"`
	RoomID    string `json:"room_id"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	Content   string `json:"content,omitempty"`
}

// WriteSnapshot writes a zstd-compressed snapshot: one plain JSON header
// line for tooling, then the gob-encoded body.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Skip the header line; the gob body carries the header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
