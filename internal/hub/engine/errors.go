package engine

import "errors"

var (
	// ErrSessionUnknown indicates no journal exists for the requested session.
	ErrSessionUnknown = errors.New("session is unknown")
	// ErrSessionIDRequired indicates a missing session id.
	ErrSessionIDRequired = errors.New("session id is required")
	// ErrEngineClosed indicates the engine has shut down.
	ErrEngineClosed = errors.New("engine is closed")
	// ErrLaneHalted indicates the session lane stopped on an invariant
	// violation and no longer accepts work. Other sessions are unaffected.
	ErrLaneHalted = errors.New("session lane is halted")
)
