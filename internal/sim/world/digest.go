package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
)

// stateDigest hashes the committed world state: every room, every actor,
// every memory entry, in deterministic order. Two worlds that replayed the
// same seed and the same decisions produce the same digest. Transport-only
// state (resume tokens, sinks, sources) is excluded.
func (w *World) stateDigest(round uint64) string {
	h := sha256.New()
	var tmp [8]byte

	h.Write([]byte(w.cfg.ID))
	digestWriteU64(h, &tmp, round)
	digestWriteU64(h, &tmp, w.seq)
	digestWriteI64(h, &tmp, w.cfg.Seed)
	digestWriteU64(h, &tmp, uint64(w.cfg.MaxRoomPaths))

	w.digestRooms(h, &tmp)
	w.digestActors(h, &tmp)
	w.digestMemories(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestRooms(h hash.Hash, tmp *[8]byte) {
	rooms := w.graph.Rooms()
	digestWriteU64(h, tmp, uint64(len(rooms)))
	for _, r := range rooms {
		h.Write([]byte(r.ID))
		digestWriteI64(h, tmp, int64(r.Coord.X))
		digestWriteI64(h, tmp, int64(r.Coord.Y))
		h.Write([]byte(r.Name))
		h.Write([]byte(r.Description))
		digestWriteU64(h, tmp, r.CreatedRound)
		for _, d := range Directions {
			p := r.Paths[d]
			h.Write([]byte{byte(p.State)})
			h.Write([]byte(p.To))
		}
		for _, id := range r.Present() {
			h.Write([]byte(id))
		}
	}
}

func (w *World) digestActors(h hash.Hash, tmp *[8]byte) {
	ids := w.reg.AllIDs()
	sort.Strings(ids)
	digestWriteU64(h, tmp, uint64(len(ids)))
	for _, id := range ids {
		a, err := w.reg.Get(id)
		if err != nil {
			continue
		}
		h.Write([]byte(a.ID))
		h.Write([]byte(a.Name))
		h.Write([]byte(a.Description))
		h.Write([]byte(a.Kind))
		h.Write([]byte(a.RoomID))
		digestWriteU64(h, tmp, uint64(len(a.History)))
		for _, he := range a.History {
			digestWriteU64(h, tmp, he.Round)
			h.Write([]byte(he.Verb))
			h.Write([]byte(he.FromRoom))
			h.Write([]byte(he.ToRoom))
		}
	}
}

func (w *World) digestMemories(h hash.Hash, tmp *[8]byte) {
	owners := make([]string, 0, len(w.mem.entries))
	for id := range w.mem.entries {
		owners = append(owners, id)
	}
	sort.Strings(owners)
	digestWriteU64(h, tmp, uint64(len(owners)))
	for _, owner := range owners {
		e := w.mem.entries[owner]
		h.Write([]byte(owner))

		roomIDs := make([]string, 0, len(e.knownRooms))
		for id := range e.knownRooms {
			roomIDs = append(roomIDs, id)
		}
		sort.Strings(roomIDs)
		digestWriteU64(h, tmp, uint64(len(roomIDs)))
		for _, id := range roomIDs {
			rm := e.knownRooms[id]
			h.Write([]byte(rm.RoomID))
			h.Write([]byte(rm.Name))
			h.Write([]byte(rm.Description))
			digestWriteU64(h, tmp, rm.SyncedSeq)
		}

		names := make([]string, 0, len(e.knownActors))
		for name := range e.knownActors {
			names = append(names, name)
		}
		sort.Strings(names)
		digestWriteU64(h, tmp, uint64(len(names)))
		for _, name := range names {
			am := e.knownActors[name]
			h.Write([]byte(am.Name))
			h.Write([]byte(am.Description))
			h.Write([]byte(am.LastSeenRoomID))
			digestWriteU64(h, tmp, am.LastSeenSeq)
		}

		digestWriteU64(h, tmp, uint64(len(e.recent)))
		for _, ev := range e.recent {
			digestWriteU64(h, tmp, ev.Seq)
			h.Write([]byte(ev.Kind))
			h.Write([]byte(ev.RoomID))
			h.Write([]byte(ev.ActorID))
			h.Write([]byte(ev.Content))
		}
	}
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}
