// Package api exposes a read-only HTTP view of the world: rooms, actors,
// per-actor memory, and engine stats. All reads go through the engine's
// between-rounds read channel, so responses always reflect committed state.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dungeongrid.ai/internal/sim/world"
)

type Server struct {
	router chi.Router
	world  *world.World
	log    *log.Logger
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		router: chi.NewRouter(),
		world:  w,
		log:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(10 * time.Second))
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router.Get("/v1/stats", s.getStats)
	s.router.Get("/v1/rooms/{roomID}", s.getRoom)
	s.router.Get("/v1/actors/{actorID}", s.getActor)
	s.router.Get("/v1/actors/{actorID}/memory/events", s.getMemoryEvents)
	s.router.Get("/v1/actors/{actorID}/memory/rooms", s.getMemoryRooms)
	s.router.Get("/v1/actors/{actorID}/memory/actors", s.getMemoryActors)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeLookupErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, world.ErrRoomNotFound), errors.Is(err, world.ErrActorNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, world.ErrHalted):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "world halted"})
	default:
		s.log.Printf("api: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.world.Stats(r.Context())
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	info, err := s.world.RoomInfo(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) getActor(w http.ResponseWriter, r *http.Request) {
	info, err := s.world.ActorInfo(r.Context(), chi.URLParam(r, "actorID"))
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) getMemoryEvents(w http.ResponseWriter, r *http.Request) {
	f := world.EventFilter{
		RoomID: r.URL.Query().Get("room_id"),
		Kind:   world.EventKind(r.URL.Query().Get("kind")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad limit"})
			return
		}
		f.Limit = n
	}
	events, err := s.world.QueryMemoryEvents(r.Context(), chi.URLParam(r, "actorID"), f)
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) getMemoryRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.world.QueryKnownRooms(r.Context(), chi.URLParam(r, "actorID"))
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) getMemoryActors(w http.ResponseWriter, r *http.Request) {
	actors, err := s.world.QueryKnownActors(r.Context(), chi.URLParam(r, "actorID"))
	if err != nil {
		s.writeLookupErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actors": actors})
}
