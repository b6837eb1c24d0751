package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Seed         int64 `yaml:"seed"`
	MaxRoomPaths int   `yaml:"max_room_paths"`

	RoundIntervalMs     int `yaml:"round_interval_ms"`
	DecisionTimeoutMs   int `yaml:"decision_timeout_ms"`
	MaxRounds           int `yaml:"max_rounds"`
	SnapshotEveryRounds int `yaml:"snapshot_every_rounds"`

	Memory MemoryCaps `yaml:"memory"`
}

type MemoryCaps struct {
	EventCap int `yaml:"event_cap"`
	RoomCap  int `yaml:"room_cap"`
	ActorCap int `yaml:"actor_cap"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Defaults is the tuning used when no tuning.yaml is present.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		Seed:                1,
		MaxRoomPaths:        3,
		RoundIntervalMs:     1000,
		DecisionTimeoutMs:   5000,
		SnapshotEveryRounds: 50,
		Memory: MemoryCaps{
			EventCap: 100,
			RoomCap:  256,
			ActorCap: 64,
		},
	}
}
