package models

import "time"

// ChannelState holds the per-channel slice of a VerificationRecord.
type ChannelState struct {
	Status     ChannelStatus
	VerifiedAt *time.Time
	// SimilarityScore is the 0-100 biometric match score. Set only for the
	// face channel, only when it leaves pending.
	SimilarityScore *int
}

// VerificationRecord is the per-user verification ground truth. One record per
// user, created lazily on first submission and never deleted while the user
// account exists (it is the compliance record).
//
// TrustScore is derived. No code path writes it directly; every mutating
// store operation recomputes it through the scoring engine.
type VerificationRecord struct {
	UserID string

	ONECI ChannelState
	CNAM  ChannelState
	Face  ChannelState

	// Supporting signals consumed by scoring and the guard. Raw document
	// bytes are never retained past a decision; only these flags survive.
	DocsOnFile          bool
	HistoryAttested     bool
	AltDocumentAccepted bool
	ProfileComplete     bool
	PhoneOnFile         bool

	TrustScore     int
	ScoreUpdatedAt time.Time

	// Set only by the admin review workflow.
	ReviewNotes string
	ReviewedBy  string
	ReviewedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord returns a blank record with every channel not_submitted.
func NewRecord(userID string, now time.Time) *VerificationRecord {
	return &VerificationRecord{
		UserID: userID,
		ONECI:  ChannelState{Status: StatusNotSubmitted},
		CNAM:   ChannelState{Status: StatusNotSubmitted},
		Face:   ChannelState{Status: StatusNotSubmitted},

		ScoreUpdatedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Channel returns a pointer to the named channel's state. Callers mutate the
// returned state only inside a store Execute block.
func (r *VerificationRecord) Channel(ch Channel) *ChannelState {
	switch ch {
	case ChannelONECI:
		return &r.ONECI
	case ChannelCNAM:
		return &r.CNAM
	default:
		return &r.Face
	}
}

// Signals extracts the supporting scoring signals from the record.
func (r *VerificationRecord) Signals() ProfileSignals {
	return ProfileSignals{
		DocumentsOnFile:     r.DocsOnFile,
		HistoryAttested:     r.HistoryAttested,
		ProfileComplete:     r.ProfileComplete,
		PhoneOnFile:         r.PhoneOnFile,
		AltDocumentAccepted: r.AltDocumentAccepted,
	}
}

// Clone returns a deep copy so reads hand out snapshots, never aliases into
// store-owned state.
func (r *VerificationRecord) Clone() *VerificationRecord {
	out := *r
	out.ONECI = cloneChannelState(r.ONECI)
	out.CNAM = cloneChannelState(r.CNAM)
	out.Face = cloneChannelState(r.Face)
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		out.ReviewedAt = &t
	}
	return &out
}

func cloneChannelState(cs ChannelState) ChannelState {
	out := cs
	if cs.VerifiedAt != nil {
		t := *cs.VerifiedAt
		out.VerifiedAt = &t
	}
	if cs.SimilarityScore != nil {
		v := *cs.SimilarityScore
		out.SimilarityScore = &v
	}
	return out
}

// ProfileSignals carries the non-channel inputs to scoring: profile shape and
// application history facts owned by the surrounding platform.
type ProfileSignals struct {
	DocumentsOnFile bool
	HistoryAttested bool
	ProfileComplete bool
	PhoneOnFile     bool
	// AltDocumentAccepted marks a manually accepted legacy identity document.
	// It feeds the access guard, not the score.
	AltDocumentAccepted bool
}

// Submission is the ephemeral per-attempt input. It is consumed by Submit and
// never persisted; only the decision and its score contribution survive.
type Submission struct {
	UserID              string
	Channel             Channel
	DocumentRefs        []string
	BiometricCaptureRef string
}

// DecisionOutcome is an adjudication result for one channel.
type DecisionOutcome string

const (
	DecisionApprove DecisionOutcome = "approve"
	DecisionReject  DecisionOutcome = "reject"
)

// Decision is the transient input to ApplyDecision, produced either by an
// administrator or by an external verifier callback (ActorID
// "system:<provider>").
type Decision struct {
	UserID  string
	Channel Channel
	Outcome DecisionOutcome
	Notes   string
	ActorID string
	// SimilarityScore accompanies face-channel decisions from the biometric
	// provider.
	SimilarityScore *int
	// ExternalRef is the provider-side reference for callback decisions.
	ExternalRef string
}

// TargetStatus maps the decision outcome onto the channel state machine.
func (d Decision) TargetStatus() ChannelStatus {
	if d.Outcome == DecisionApprove {
		return StatusVerified
	}
	return StatusRejected
}

// ReviewFilters narrows pending-review listings and is shared by the admin
// API and the store layer.
type ReviewFilters struct {
	Channel *Channel
	Status  *ChannelStatus
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// Window returns offset/limit pagination bounds with sane defaults.
func (f ReviewFilters) Window() (offset, limit int) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	per := f.PerPage
	if per < 1 || per > 200 {
		per = 50
	}
	return (page - 1) * per, per
}
