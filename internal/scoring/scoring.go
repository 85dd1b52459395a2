// Package scoring derives the 0-100 trust score from a verification record.
// This is pure domain logic - no I/O, no side effects - so it can be tested
// independently of storage and recomputed on every write without ceremony.
package scoring

import "veristay/internal/verification/models"

// Fixed weights. Tests assert these exact values; changing them is a product
// decision, not a refactor.
const (
	WeightONECIVerified = 40
	WeightFaceVerified  = 30
	WeightDocuments     = 20
	WeightHistory       = 10
)

// Breakdown keys surfaced to dashboards alongside the score.
const (
	ComponentONECI     = "oneci_identity"
	ComponentFace      = "face_match"
	ComponentDocuments = "documents"
	ComponentHistory   = "rental_history"
)

// Breakdown maps score components to the points they contributed.
type Breakdown map[string]int

// Compute derives the trust score for a record given its supporting signals.
// Only verified channels contribute; pending, pending_review, rejected and
// not_submitted all contribute 0 for that channel. The sum is clamped to
// [0, 100].
func Compute(rec *models.VerificationRecord, signals models.ProfileSignals) (int, Breakdown) {
	breakdown := Breakdown{
		ComponentONECI:     0,
		ComponentFace:      0,
		ComponentDocuments: 0,
		ComponentHistory:   0,
	}

	if rec.ONECI.Status == models.StatusVerified {
		breakdown[ComponentONECI] = WeightONECIVerified
	}
	if rec.Face.Status == models.StatusVerified {
		breakdown[ComponentFace] = WeightFaceVerified
	}
	if signals.DocumentsOnFile {
		breakdown[ComponentDocuments] = WeightDocuments
	}
	if signals.HistoryAttested {
		breakdown[ComponentHistory] = WeightHistory
	}

	score := 0
	for _, points := range breakdown {
		score += points
	}
	return clamp(score), breakdown
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Recommendation is the advisory band surfaced to property owners. It never
// blocks anything by itself.
type Recommendation string

const (
	Recommended    Recommendation = "recommended"
	Conditional    Recommendation = "conditional"
	NotRecommended Recommendation = "not_recommended"
)

// Recommend maps a trust score onto its advisory band:
// score >= 75 recommended, 50 <= score < 75 conditional, below 50 not
// recommended.
func Recommend(score int) Recommendation {
	switch {
	case score >= 75:
		return Recommended
	case score >= 50:
		return Conditional
	default:
		return NotRecommended
	}
}
