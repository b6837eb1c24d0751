package world

import "time"

// Config is the engine's tuning surface.
type Config struct {
	ID   string
	Seed int64

	// MaxRoomPaths caps how many exits a room may ever open (2..4).
	MaxRoomPaths int

	Memory MemoryConfig

	// DecisionTimeout bounds each DecisionSource call. A stalled source
	// yields a no-op for the round, never a stalled round.
	DecisionTimeout time.Duration

	// RoundInterval paces the engine loop. Zero means run rounds
	// back-to-back (useful for tests and replays).
	RoundInterval time.Duration

	// MaxRounds halts the engine after this many rounds; zero means run
	// until stopped.
	MaxRounds uint64

	// SnapshotEveryRounds exports a world snapshot to the sink every N
	// rounds (0 disables).
	SnapshotEveryRounds int
}

func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = "dungeon_1"
	}
	if c.MaxRoomPaths == 0 {
		c.MaxRoomPaths = 3
	}
	if c.DecisionTimeout <= 0 {
		c.DecisionTimeout = 5 * time.Second
	}
	c.Memory = c.Memory.withDefaults()
	return c
}
