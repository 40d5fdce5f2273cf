package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyListening is returned by Start while a loop is active.
	ErrAlreadyListening = errors.New("session is already listening")
	// ErrNoPort is returned when a real session has no port path.
	ErrNoPort = errors.New("no serial port specified")
	// ErrHandshakeTimeout is only returned with Config.StrictHandshake.
	ErrHandshakeTimeout = errors.New("device did not report " + ReadyToken)

	errStopped = errors.New("stopped")
)

// Phase is the part of the session an error happened in.
type Phase int

const (
	PhaseOpen Phase = iota
	PhaseConfig
	PhaseHandshake
	PhaseListen
)

// String returns a human-readable name for the phase
func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseConfig:
		return "send config"
	case PhaseHandshake:
		return "handshake"
	case PhaseListen:
		return "listen"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// SessionError is a transport failure that ended a session. Sessions are
// never retried; the caller decides whether to start a new one.
type SessionError struct {
	Phase Phase  // where it failed
	Port  string // device path
	Err   error  // underlying error
}

// Error implements the error interface
func (e *SessionError) Error() string {
	return fmt.Sprintf("%s failed on %s: %v", e.Phase, e.Port, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SessionError) Unwrap() error {
	return e.Err
}
