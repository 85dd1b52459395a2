// Package review is the administrator-facing decision workflow: listing open
// submissions, recording approve/reject decisions, and exporting the access
// audit trail for compliance.
package review

import (
	"context"
	"io"
	"log/slog"

	"veristay/internal/audit"
	"veristay/internal/notify"
	"veristay/internal/verification/models"
)

// Decider applies a reviewed decision to a verification record. applied is
// false when the decision was already recorded (idempotent retry).
type Decider interface {
	ApplyDecision(ctx context.Context, dec models.Decision) (rec *models.VerificationRecord, applied bool, err error)
	ListOpen(ctx context.Context, filters models.ReviewFilters) ([]*models.VerificationRecord, error)
}

type Service struct {
	decider  Decider
	recorder *audit.Recorder
	notifier notify.Notifier
	logger   *slog.Logger
}

func New(decider Decider, recorder *audit.Recorder, notifier notify.Notifier, logger *slog.Logger) *Service {
	return &Service{decider: decider, recorder: recorder, notifier: notifier, logger: logger}
}

// ListPending returns open submissions for the review queue, oldest first.
func (s *Service) ListPending(ctx context.Context, filters models.ReviewFilters) ([]*models.VerificationRecord, error) {
	return s.decider.ListOpen(ctx, filters)
}

// Decide applies an admin decision. A fresh decision writes one full_view
// access log entry (the admin examined the target's sensitive data to decide)
// and emits a notification event to the affected user. The entry must be
// persisted before the record snapshot is released; a failed append fails the
// whole call. An idempotent retry short-circuits before audit and notify, so
// retrying never produces a second access log entry.
func (s *Service) Decide(ctx context.Context, dec models.Decision) (*models.VerificationRecord, error) {
	rec, applied, err := s.decider.ApplyDecision(ctx, dec)
	if err != nil {
		return nil, err
	}
	if !applied {
		return rec, nil
	}

	if err := s.recorder.Record(ctx, audit.Access{
		AdminID:      dec.ActorID,
		TargetUserID: dec.UserID,
		Type:         audit.AccessFullView,
	}); err != nil {
		return nil, err
	}

	if notifyErr := s.notifier.Notify(ctx, notify.Event{
		UserID:     dec.UserID,
		Channel:    string(dec.Channel),
		Outcome:    string(dec.Outcome),
		TrustScore: rec.TrustScore,
		OccurredAt: rec.UpdatedAt,
	}); notifyErr != nil {
		// Delivery is best-effort; the decision itself already committed.
		s.logger.WarnContext(ctx, "decision notification failed",
			slog.String("user_id", dec.UserID),
			slog.String("channel", string(dec.Channel)),
			slog.Any("error", notifyErr))
	}

	s.logger.InfoContext(ctx, "review decision recorded",
		slog.String("user_id", dec.UserID),
		slog.String("channel", string(dec.Channel)),
		slog.String("outcome", string(dec.Outcome)),
		slog.String("admin_id", dec.ActorID),
		slog.Int("trust_score", rec.TrustScore))
	return rec, nil
}

// ExportAuditReport streams the access log as CSV for compliance review.
func (s *Service) ExportAuditReport(ctx context.Context, filters audit.Filters, w io.Writer) error {
	return s.recorder.ExportCSV(ctx, filters, w)
}

// QueryAuditLog returns access log entries for compliance review.
func (s *Service) QueryAuditLog(ctx context.Context, filters audit.Filters) ([]audit.Entry, error) {
	return s.recorder.Query(ctx, filters)
}
