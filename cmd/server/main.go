package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"dungeongrid.ai/internal/api"
	"dungeongrid.ai/internal/persistence/chronicle"
	persistlog "dungeongrid.ai/internal/persistence/log"
	"dungeongrid.ai/internal/persistence/snapshot"
	"dungeongrid.ai/internal/sim/describe"
	"dungeongrid.ai/internal/sim/tuning"
	"dungeongrid.ai/internal/sim/world"
	"dungeongrid.ai/internal/transport/ws"
)

// envConfig overrides flag defaults from the environment, for containerized
// deployments where flags are awkward.
type envConfig struct {
	Addr      string `env:"DG_ADDR"`
	WorldID   string `env:"DG_WORLD_ID"`
	Seed      int64  `env:"DG_SEED"`
	DataDir   string `env:"DG_DATA_DIR"`
	DisableDB bool   `env:"DG_DISABLE_DB"`
}

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "dungeon_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <data>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite chronicle index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		logger.Fatalf("parse env: %v", err)
	}
	if ec.Addr != "" {
		*addr = ec.Addr
	}
	if ec.WorldID != "" {
		*worldID = ec.WorldID
	}
	if ec.Seed != 0 {
		*seed = ec.Seed
	}
	if ec.DataDir != "" {
		*dataDir = ec.DataDir
	}
	if ec.DisableDB {
		*disableDB = true
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*dataDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if tune.Seed != 0 && !flagWasSet("seed") {
		*seed = tune.Seed
	}

	cfg := world.Config{
		ID:                  *worldID,
		Seed:                *seed,
		MaxRoomPaths:        tune.MaxRoomPaths,
		DecisionTimeout:     time.Duration(tune.DecisionTimeoutMs) * time.Millisecond,
		RoundInterval:       time.Duration(tune.RoundIntervalMs) * time.Millisecond,
		MaxRounds:           uint64(tune.MaxRounds),
		SnapshotEveryRounds: tune.SnapshotEveryRounds,
		Memory: world.MemoryConfig{
			EventCap: tune.Memory.EventCap,
			RoomCap:  tune.Memory.RoomCap,
			ActorCap: tune.Memory.ActorCap,
		},
	}
	// Optional chronicle index (does not affect sim determinism).
	var chron *chronicle.SQLiteChronicle
	if !*disableDB {
		chron, err = chronicle.OpenSQLite(filepath.Join(worldDir, "chronicle.db"))
		if err != nil {
			logger.Fatalf("open chronicle: %v", err)
		}
		defer chron.Close()
	}

	// Create world (fresh or resumed from snapshot).
	var w *world.World
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		// Descriptions must keep flowing from the seed the world was born with.
		w, err = world.Restore(cfg, snap, describe.NewProvider(snap.Seed), logger)
		if err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s round=%d", filepath.Base(snapshotToLoad), w.CurrentRound())
	} else {
		w, err = world.New(cfg, describe.NewProvider(*seed), logger)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	roundLog := persistlog.NewRoundLogger(worldDir)
	defer roundLog.Close()
	w.SetRoundLogger(multiRoundLogger{a: roundLog, b: chron})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Round))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if chron != nil {
					chron.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())
	mux.Handle("/v1/", api.NewServer(w, logger))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s seed=%d", *addr, *worldID, *seed)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestRound uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		round, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || round > bestRound {
			bestRound = round
			best = filepath.Join(dir, name)
		}
	}
	return best
}

type multiRoundLogger struct {
	a world.RoundLogger
	b world.RoundLogger
}

func (m multiRoundLogger) WriteRound(entry world.RoundLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteRound(entry)
	}
	if m.b != nil {
		_ = m.b.WriteRound(entry)
	}
	return nil
}
