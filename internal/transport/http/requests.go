package httptransport

import (
	"time"

	"veristay/internal/scoring"
	"veristay/internal/verification/models"
)

// submitRequest is the submission intake payload. The authenticated user id
// travels in the body for now; the client gateway owns end-user sessions.
type submitRequest struct {
	UserID              string   `json:"user_id"`
	DocumentRefs        []string `json:"document_refs,omitempty"`
	BiometricCaptureRef string   `json:"biometric_capture_ref,omitempty"`
}

// callbackRequest is the external verifier outcome payload.
type callbackRequest struct {
	UserID          string `json:"user_id"`
	Channel         string `json:"channel"`
	Outcome         string `json:"outcome"`
	SimilarityScore *int   `json:"similarity_score,omitempty"`
	ExternalRef     string `json:"external_ref,omitempty"`
}

// decideRequest is the admin decision payload.
type decideRequest struct {
	UserID          string `json:"user_id"`
	Channel         string `json:"channel"`
	Decision        string `json:"decision"`
	Notes           string `json:"notes,omitempty"`
	SimilarityScore *int   `json:"similarity_score,omitempty"`
}

// signalsRequest replaces the supporting signals on a record.
type signalsRequest struct {
	DocumentsOnFile     bool `json:"documents_on_file"`
	HistoryAttested     bool `json:"history_attested"`
	ProfileComplete     bool `json:"profile_complete"`
	PhoneOnFile         bool `json:"phone_on_file"`
	AltDocumentAccepted bool `json:"alt_document_accepted"`
}

type channelStateResponse struct {
	Status          string     `json:"status"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	SimilarityScore *int       `json:"similarity_score,omitempty"`
}

// recordResponse is the wire shape of a verification record. Raw document
// and biometric payloads are never part of it.
type recordResponse struct {
	UserID string `json:"user_id"`

	ONECI channelStateResponse `json:"oneci"`
	CNAM  channelStateResponse `json:"cnam"`
	Face  channelStateResponse `json:"face"`

	DocsOnFile          bool `json:"docs_on_file"`
	HistoryAttested     bool `json:"history_attested"`
	AltDocumentAccepted bool `json:"alt_document_accepted"`
	ProfileComplete     bool `json:"profile_complete"`
	PhoneOnFile         bool `json:"phone_on_file"`

	TrustScore     int       `json:"trust_score"`
	ScoreUpdatedAt time.Time `json:"score_updated_at"`

	ReviewNotes string     `json:"review_notes,omitempty"`
	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type scoreResponse struct {
	UserID         string            `json:"user_id"`
	Score          int               `json:"score"`
	Breakdown      scoring.Breakdown `json:"breakdown"`
	Recommendation string            `json:"recommendation"`
}

func toChannelState(st models.ChannelState) channelStateResponse {
	return channelStateResponse{
		Status:          string(st.Status),
		VerifiedAt:      st.VerifiedAt,
		SimilarityScore: st.SimilarityScore,
	}
}

func toRecordResponse(rec *models.VerificationRecord) recordResponse {
	return recordResponse{
		UserID:              rec.UserID,
		ONECI:               toChannelState(rec.ONECI),
		CNAM:                toChannelState(rec.CNAM),
		Face:                toChannelState(rec.Face),
		DocsOnFile:          rec.DocsOnFile,
		HistoryAttested:     rec.HistoryAttested,
		AltDocumentAccepted: rec.AltDocumentAccepted,
		ProfileComplete:     rec.ProfileComplete,
		PhoneOnFile:         rec.PhoneOnFile,
		TrustScore:          rec.TrustScore,
		ScoreUpdatedAt:      rec.ScoreUpdatedAt,
		ReviewNotes:         rec.ReviewNotes,
		ReviewedBy:          rec.ReviewedBy,
		ReviewedAt:          rec.ReviewedAt,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

func toRecordResponses(recs []*models.VerificationRecord) []recordResponse {
	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	return out
}
