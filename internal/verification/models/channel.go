package models

import "fmt"

// Channel identifies one of the three independent verification paths.
type Channel string

const (
	// ChannelONECI is the national identity-document verification path.
	ChannelONECI Channel = "oneci"
	// ChannelCNAM is the employer/social-security verification path.
	ChannelCNAM Channel = "cnam"
	// ChannelFace is the biometric selfie-to-ID similarity path.
	ChannelFace Channel = "face"
)

// Channels lists all verification channels in scoring order.
var Channels = []Channel{ChannelONECI, ChannelCNAM, ChannelFace}

// Valid reports whether ch names a known channel.
func (ch Channel) Valid() bool {
	switch ch {
	case ChannelONECI, ChannelCNAM, ChannelFace:
		return true
	}
	return false
}

// InitialStatus returns the status a fresh submission lands in. ONECI and
// CNAM require human adjudication; face can be resolved synchronously by the
// external biometric call.
func (ch Channel) InitialStatus() ChannelStatus {
	if ch == ChannelFace {
		return StatusPending
	}
	return StatusPendingReview
}

// ChannelStatus is the per-channel verification state.
type ChannelStatus string

const (
	StatusNotSubmitted  ChannelStatus = "not_submitted"
	StatusPending       ChannelStatus = "pending"
	StatusPendingReview ChannelStatus = "pending_review"
	StatusVerified      ChannelStatus = "verified"
	StatusRejected      ChannelStatus = "rejected"
)

// Valid reports whether s names a known channel status.
func (s ChannelStatus) Valid() bool {
	switch s {
	case StatusNotSubmitted, StatusPending, StatusPendingReview, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible except explicit
// resubmission.
func (s ChannelStatus) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// Open reports whether the channel awaits a decision.
func (s ChannelStatus) Open() bool {
	return s == StatusPending || s == StatusPendingReview
}

// transitions encodes the per-channel state machine:
//
//	not_submitted → pending | pending_review → verified | rejected
//	rejected → pending_review (resubmission re-entry)
//
// verified is final. Everything else is an InvalidTransition.
var transitions = map[ChannelStatus][]ChannelStatus{
	StatusNotSubmitted:  {StatusPending, StatusPendingReview},
	StatusPending:       {StatusVerified, StatusRejected},
	StatusPendingReview: {StatusVerified, StatusRejected},
	StatusRejected:      {StatusPendingReview},
	StatusVerified:      {},
}

// CanTransition reports whether from → to is a legal state change.
func CanTransition(from, to ChannelStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates from → to and returns ErrInvalidTransition (never a
// silent coercion) when the state machine forbids it.
func Transition(from, to ChannelStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
