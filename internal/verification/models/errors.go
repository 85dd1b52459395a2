package models

import "errors"

// Domain sentinels for verification state handling. Services wrap these with
// coded errors; transport maps them onto the API envelope.
var (
	// ErrInvalidTransition marks a state machine violation.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAlreadyFinalized marks a conflicting decision on a terminal channel.
	ErrAlreadyFinalized = errors.New("already finalized")
)
