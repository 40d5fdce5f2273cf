package session

import "fmt"

// State of a session.
type State int32

const (
	Idle State = iota
	SendingConfig
	AwaitingHandshake
	Listening
	Stopped
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SendingConfig:
		return "SendingConfig"
	case AwaitingHandshake:
		return "AwaitingHandshake"
	case Listening:
		return "Listening"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
