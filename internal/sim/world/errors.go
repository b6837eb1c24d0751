package world

import "errors"

var (
	// ErrRoomNotFound is returned for lookups of room ids the graph has
	// never created. The graph never synthesizes placeholder rooms.
	ErrRoomNotFound = errors.New("room not found")

	// ErrActorNotFound is returned for unknown actor ids or names.
	ErrActorNotFound = errors.New("actor not found")

	// ErrPathUnavailable is returned when a move targets an Absent exit.
	// Rejected decisions are recoverable; the round continues.
	ErrPathUnavailable = errors.New("path unavailable")

	// ErrDuplicateActor is returned when a name is already registered.
	ErrDuplicateActor = errors.New("actor name already registered")

	// ErrDuplicateCoordinate signals a room creation colliding with an
	// existing coordinate outside the merge path. Always a bug.
	ErrDuplicateCoordinate = errors.New("duplicate room coordinate")

	// ErrGraphInvariant signals a corrupt world graph. The turn engine
	// halts when it sees this; it is never user-triggerable.
	ErrGraphInvariant = errors.New("graph invariant violation")

	// ErrDecisionTimeout is recorded when a decision source does not
	// resolve within the configured window. The actor no-ops that round.
	ErrDecisionTimeout = errors.New("decision timeout")

	// ErrHalted is returned by engine entry points after the engine has
	// reached its terminal state.
	ErrHalted = errors.New("engine halted")
)
