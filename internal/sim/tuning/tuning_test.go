package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := `
protocol_version: "1.0"
seed: 99
max_room_paths: 4
round_interval_ms: 250
decision_timeout_ms: 1500
max_rounds: 1000
snapshot_every_rounds: 20
memory:
  event_cap: 50
  room_cap: 128
  actor_cap: 32
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Tuning{
		ProtocolVersion:     "1.0",
		Seed:                99,
		MaxRoomPaths:        4,
		RoundIntervalMs:     250,
		DecisionTimeoutMs:   1500,
		MaxRounds:           1000,
		SnapshotEveryRounds: 20,
		Memory:              MemoryCaps{EventCap: 50, RoomCap: 128, ActorCap: 32},
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("seed: [not an int"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.ProtocolVersion != "1.0" || d.MaxRoomPaths != 3 || d.Memory.EventCap != 100 {
		t.Fatalf("defaults = %+v", d)
	}
}
