package engine

import "fmt"

// State is a synchronizer lifecycle stage.
type State int32

const (
	StateUnstarted State = iota
	StateSubscribing
	StateBootstrapping
	StateLive
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "UNSTARTED"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateBootstrapping:
		return "BOOTSTRAPPING"
	case StateLive:
		return "LIVE"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ParseState is the inverse of String.
func ParseState(name string) (State, bool) {
	for s := StateUnstarted; s <= StateShutdown; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}
