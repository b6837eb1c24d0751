package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Registration/session.
	ErrNameTaken   = "E_NAME_TAKEN"
	ErrBadResume   = "E_BAD_RESUME"
	ErrWorldHalted = "E_WORLD_HALTED"

	// Decision/apply layer.
	ErrBadDecision     = "E_BAD_DECISION"
	ErrPathUnavailable = "E_PATH_UNAVAILABLE"
	ErrRoomNotFound    = "E_ROOM_NOT_FOUND"
	ErrActorNotFound   = "E_ACTOR_NOT_FOUND"
	ErrDecisionTimeout = "E_DECISION_TIMEOUT"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrNameTaken:       {},
	ErrBadResume:       {},
	ErrWorldHalted:     {},
	ErrBadDecision:     {},
	ErrPathUnavailable: {},
	ErrRoomNotFound:    {},
	ErrActorNotFound:   {},
	ErrDecisionTimeout: {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
