// Package chronicle maintains a queryable sqlite index over the round
// history. The JSONL round logs remain the source of truth; the chronicle
// exists so operators can ask questions ("what did A0003 do around round
// 40?") without decompressing log files.
package chronicle

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"dungeongrid.ai/internal/persistence/snapshot"
	"dungeongrid.ai/internal/sim/world"
)

type SQLiteChronicle struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqRound reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind     reqKind
	round    world.RoundLogEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Round  uint64
	Path   string
	Seed   int64
	Rooms  int
	Actors int
}

func OpenSQLite(path string) (*SQLiteChronicle, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteChronicle{
		db: db,
		// Roomy buffer: a busy round fans out into many event rows and the
		// engine must never stall on the indexer.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			round INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			joins INTEGER NOT NULL,
			decisions INTEGER NOT NULL,
			events INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS joins (
			round INTEGER NOT NULL,
			actor_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			room_id TEXT NOT NULL,
			PRIMARY KEY (round, actor_id)
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			round INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor_id TEXT NOT NULL,
			verb TEXT NOT NULL,
			direction TEXT,
			result TEXT NOT NULL,
			PRIMARY KEY (round, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_actor_round ON decisions(actor_id, round);`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY,
			round INTEGER NOT NULL,
			kind TEXT NOT NULL,
			room_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			content TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_room_round ON events(room_id, round);`,
		`CREATE INDEX IF NOT EXISTS idx_events_actor_round ON events(actor_id, round);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			round INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			rooms INTEGER NOT NULL,
			actors INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteChronicle) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteChronicle) WriteRound(entry world.RoundLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqRound, round: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
	}
	return nil
}

func (s *SQLiteChronicle) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Round:  snap.Header.Round,
		Path:   path,
		Seed:   snap.Seed,
		Rooms:  len(snap.Rooms),
		Actors: len(snap.Actors),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
	}
}

func (s *SQLiteChronicle) loop() {
	ctx := context.Background()

	insertRound, _ := s.db.Prepare(`INSERT OR REPLACE INTO rounds(round,digest,joins,decisions,events,raw_json) VALUES(?,?,?,?,?,?)`)
	insertJoin, _ := s.db.Prepare(`INSERT OR REPLACE INTO joins(round,actor_id,name,kind,room_id) VALUES(?,?,?,?,?)`)
	insertDecision, _ := s.db.Prepare(`INSERT OR REPLACE INTO decisions(round,seq,actor_id,verb,direction,result) VALUES(?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(seq,round,kind,room_id,actor_id,content,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(round,path,seed,rooms,actors) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRound, insertJoin, insertDecision, insertEvent, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRound:
			n, err := writeRoundTx(tx, insertRound, insertJoin, insertDecision, insertEvent, r.round)
			if err != nil {
				rollback()
				continue
			}
			opCount += n

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					int64(sn.Round),
					sn.Path,
					sn.Seed,
					sn.Rooms,
					sn.Actors,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}

// writeRoundTx inserts one round entry and its child rows, returning the
// number of statements executed.
func writeRoundTx(tx *sql.Tx, insertRound, insertJoin, insertDecision, insertEvent *sql.Stmt, e world.RoundLogEntry) (int, error) {
	n := 0
	raw, _ := json.Marshal(e)
	if insertRound != nil {
		if _, err := tx.Stmt(insertRound).Exec(
			int64(e.Round),
			e.Digest,
			len(e.Joins),
			len(e.Decisions),
			len(e.Events),
			string(raw),
		); err != nil {
			return n, err
		}
		n++
	}
	if insertJoin != nil {
		for _, j := range e.Joins {
			if _, err := tx.Stmt(insertJoin).Exec(int64(e.Round), j.ActorID, j.Name, j.Kind, j.RoomID); err != nil {
				return n, err
			}
			n++
		}
	}
	if insertDecision != nil {
		for i, d := range e.Decisions {
			if _, err := tx.Stmt(insertDecision).Exec(int64(e.Round), i, d.ActorID, d.Verb, d.Direction, d.Result); err != nil {
				return n, err
			}
			n++
		}
	}
	if insertEvent != nil {
		for _, ev := range e.Events {
			evJSON, _ := json.Marshal(ev)
			if _, err := tx.Stmt(insertEvent).Exec(
				int64(ev.Seq), int64(ev.Round), string(ev.Kind),
				ev.RoomID, ev.ActorID, ev.Content, string(evJSON),
			); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
