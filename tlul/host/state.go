package host

import "fmt"

// State is the handshake state of a Controller.
type State int

// Handshake states.
const (
	StateIdle State = iota
	StateRequestSent
	StateAwaitingResponse
	StateResponseReceived
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRequestSent:
		return "REQUEST_SENT"
	case StateAwaitingResponse:
		return "AWAITING_RESPONSE"
	case StateResponseReceived:
		return "RESPONSE_RECEIVED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// A StateChange is the item of a HookPosStateChange hook.
type StateChange struct {
	From State
	To   State
}
