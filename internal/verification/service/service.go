// Package service orchestrates verification submissions and decisions on top
// of the record store. It owns the two write-side invariants: per-user
// mutations are serialized, and the trust score is recomputed inside every
// mutating operation so no code path can leave a stale score behind.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"veristay/internal/scoring"
	vmetrics "veristay/internal/verification/metrics"
	"veristay/internal/verification/models"
	"veristay/internal/verification/store"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/locks"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/requestcontext"
)

// Service is the write-side authority for verification records.
type Service struct {
	records store.RecordStore
	locker  locks.UserLocker
	logger  *slog.Logger
	metrics *vmetrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector.
func WithMetrics(m *vmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(records store.RecordStore, locker locks.UserLocker, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{records: records, locker: locker, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record returns a read snapshot of the user's verification state. A missing
// record is not an error to callers: it reads as a blank record with every
// channel not_submitted, matching the lazy-creation lifecycle.
func (s *Service) Record(ctx context.Context, userID string) (*models.VerificationRecord, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	rec, err := s.records.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.NewRecord(userID, requestcontext.Now(ctx)), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load verification record")
	}
	return rec, nil
}

// Score returns the current trust score with its component breakdown and
// advisory recommendation band. Read-only; never accepted as input.
func (s *Service) Score(ctx context.Context, userID string) (int, scoring.Breakdown, scoring.Recommendation, error) {
	rec, err := s.Record(ctx, userID)
	if err != nil {
		return 0, nil, "", err
	}
	score, breakdown := scoring.Compute(rec, rec.Signals())
	return score, breakdown, scoring.Recommend(score), nil
}

// Submit records a verification attempt for one channel. ONECI and CNAM land
// in pending_review (human adjudication); face lands in pending (resolved
// synchronously by the external biometric call). Resubmission after a
// rejection re-enters pending_review. A duplicate submit on a channel that is
// already open is a no-op returning current state.
//
// The submission payload is consumed here: document references update the
// docs-on-file signal and are then dropped, never persisted.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*models.VerificationRecord, error) {
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	target := sub.Channel.InitialStatus()
	rec, err := s.records.Execute(ctx, sub.UserID,
		func(rec *models.VerificationRecord) error {
			state := rec.Channel(sub.Channel)
			if state.Status.Open() {
				// Duplicate submit while a decision is outstanding.
				return store.ErrNoChange
			}
			if state.Status == models.StatusRejected {
				// Resubmission re-entry goes through human review again.
				return models.Transition(state.Status, models.StatusPendingReview)
			}
			return models.Transition(state.Status, target)
		},
		func(rec *models.VerificationRecord) {
			state := rec.Channel(sub.Channel)
			if state.Status == models.StatusRejected {
				state.Status = models.StatusPendingReview
			} else {
				state.Status = target
			}
			if len(sub.DocumentRefs) > 0 {
				rec.DocsOnFile = true
			}
			s.recompute(rec, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return nil, translateTransitionErr(err, "submission rejected")
	}

	if s.metrics != nil {
		s.metrics.SubmissionsTotal.WithLabelValues(string(sub.Channel)).Inc()
		s.metrics.TrustScore.Observe(float64(rec.TrustScore))
	}
	s.logger.InfoContext(ctx, "verification submitted",
		"user_id", sub.UserID,
		"channel", sub.Channel,
		"status", rec.Channel(sub.Channel).Status,
	)
	return rec, nil
}

// ApplyDecision finalizes one channel. Idempotent: re-applying the same
// terminal decision is a no-op (applied=false), not an error. A conflicting
// decision on a terminal channel fails with ErrAlreadyFinalized unless the
// channel is rejected and under fresh review again. VerifiedAt is set exactly
// once, on the transition into verified.
func (s *Service) ApplyDecision(ctx context.Context, dec models.Decision) (rec *models.VerificationRecord, applied bool, err error) {
	if err := validateDecision(dec); err != nil {
		return nil, false, err
	}

	release, err := s.locker.Lock(ctx, dec.UserID)
	if err != nil {
		return nil, false, err
	}
	defer release()

	target := dec.TargetStatus()
	applied = true

	rec, err = s.records.Execute(ctx, dec.UserID,
		func(rec *models.VerificationRecord) error {
			state := rec.Channel(dec.Channel)
			if state.Status == target {
				// Retry of the same terminal decision: hand back the
				// snapshot without rewriting the row.
				applied = false
				return store.ErrNoChange
			}
			if state.Status.Terminal() {
				return fmt.Errorf("%w: %s channel is %s", models.ErrAlreadyFinalized, dec.Channel, state.Status)
			}
			if state.Status == models.StatusNotSubmitted {
				return fmt.Errorf("%w: no submission on %s channel", models.ErrInvalidTransition, dec.Channel)
			}
			return models.Transition(state.Status, target)
		},
		func(rec *models.VerificationRecord) {
			now := requestcontext.Now(ctx)
			state := rec.Channel(dec.Channel)
			wasPending := state.Status == models.StatusPending

			state.Status = target
			if target == models.StatusVerified && state.VerifiedAt == nil {
				t := now
				state.VerifiedAt = &t
			}
			if dec.Channel == models.ChannelFace && (wasPending || state.SimilarityScore == nil) && dec.SimilarityScore != nil {
				v := *dec.SimilarityScore
				state.SimilarityScore = &v
			}

			if dec.Notes != "" {
				rec.ReviewNotes = dec.Notes
			}
			rec.ReviewedBy = dec.ActorID
			t := now
			rec.ReviewedAt = &t

			s.recompute(rec, now)
		},
	)
	if err != nil {
		return nil, false, translateTransitionErr(err, "decision rejected")
	}

	if applied {
		if s.metrics != nil {
			s.metrics.DecisionsTotal.WithLabelValues(string(dec.Channel), string(dec.Outcome)).Inc()
			s.metrics.TrustScore.Observe(float64(rec.TrustScore))
		}
		s.logger.InfoContext(ctx, "verification decision applied",
			"user_id", dec.UserID,
			"channel", dec.Channel,
			"outcome", dec.Outcome,
			"actor", dec.ActorID,
			"trust_score", rec.TrustScore,
		)
	}
	return rec, applied, nil
}

// UpdateSignals refreshes the supporting scoring signals owned by the wider
// platform (profile completeness, history attestations) and recomputes the
// score in the same logical unit.
func (s *Service) UpdateSignals(ctx context.Context, userID string, signals models.ProfileSignals) (*models.VerificationRecord, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}

	release, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := s.records.Execute(ctx, userID, nil, func(rec *models.VerificationRecord) {
		rec.DocsOnFile = signals.DocumentsOnFile
		rec.HistoryAttested = signals.HistoryAttested
		rec.ProfileComplete = signals.ProfileComplete
		rec.PhoneOnFile = signals.PhoneOnFile
		rec.AltDocumentAccepted = signals.AltDocumentAccepted
		s.recompute(rec, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update profile signals")
	}
	return rec, nil
}

// ListOpen returns records awaiting review, for the admin queue.
func (s *Service) ListOpen(ctx context.Context, filters models.ReviewFilters) ([]*models.VerificationRecord, error) {
	if filters.Channel != nil && !filters.Channel.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown verification channel")
	}
	out, err := s.records.ListOpen(ctx, filters)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list open verifications")
	}
	return out, nil
}

// recompute derives the trust score from current state. Called inside every
// mutate block so score and status commit as one unit.
func (s *Service) recompute(rec *models.VerificationRecord, now time.Time) {
	score, _ := scoring.Compute(rec, rec.Signals())
	rec.TrustScore = score
	rec.ScoreUpdatedAt = now
}

func validateSubmission(sub models.Submission) error {
	if sub.UserID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	if !sub.Channel.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown verification channel")
	}
	if sub.Channel == models.ChannelFace && sub.BiometricCaptureRef == "" {
		return dErrors.New(dErrors.CodeValidation, "face submission requires a biometric capture reference")
	}
	if sub.Channel != models.ChannelFace && len(sub.DocumentRefs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "document submission requires at least one document reference")
	}
	return nil
}

func validateDecision(dec models.Decision) error {
	if dec.UserID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	if !dec.Channel.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown verification channel")
	}
	if dec.Outcome != models.DecisionApprove && dec.Outcome != models.DecisionReject {
		return dErrors.New(dErrors.CodeBadRequest, "decision outcome must be approve or reject")
	}
	if dec.ActorID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "decision requires an actor id")
	}
	if dec.SimilarityScore != nil && (*dec.SimilarityScore < 0 || *dec.SimilarityScore > 100) {
		return dErrors.New(dErrors.CodeValidation, "similarity score must be within 0-100")
	}
	return nil
}

// translateTransitionErr maps domain sentinels onto coded errors without
// coercing state machine violations into something softer.
func translateTransitionErr(err error, message string) error {
	switch {
	case errors.Is(err, models.ErrAlreadyFinalized):
		return dErrors.Wrap(err, dErrors.CodeConflict, message+": channel already finalized")
	case errors.Is(err, models.ErrInvalidTransition):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, message+": invalid state transition")
	case dErrors.HasCode(err, dErrors.CodeTimeout):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
