// Package guard gates protected actions (rental applications, lease
// signatures) on the caller's identity verification state.
package guard

import (
	"context"
	"log/slog"

	"veristay/internal/verification/metrics"
	"veristay/internal/verification/models"
	dErrors "veristay/pkg/domain-errors"
)

// Decision is the guard verdict for a protected action.
type Decision string

const (
	// Allowed means the action may proceed.
	Allowed Decision = "allowed"
	// Pending means the action may proceed provisionally while identity
	// verification is still in flight. Pending applicants have demonstrated
	// intent; blocking them outright loses the rental to a faster platform.
	Pending Decision = "pending"
	// Blocked means the action must not proceed until the caller starts or
	// retries the verification flow.
	Blocked Decision = "blocked"
)

// Result carries the verdict plus a machine-readable reason clients use to
// route the caller into the right flow.
type Result struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
	Action   string   `json:"action,omitempty"`
}

const (
	ReasonIdentityVerified     = "oneci_verified"
	ReasonAlternateDocument    = "alternate_document_accepted"
	ReasonVerificationInFlight = "verification_in_review"
	ReasonSubmissionRequired   = "submission_required"
	ReasonResubmissionRequired = "resubmission_required"
)

// RecordSource yields the latest verification snapshot for a user. Unknown
// users read as an all-not_submitted record.
type RecordSource interface {
	Record(ctx context.Context, userID string) (*models.VerificationRecord, error)
}

type Guard struct {
	records RecordSource
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Guard)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

func New(records RecordSource, logger *slog.Logger, opts ...Option) *Guard {
	g := &Guard{records: records, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAccess evaluates whether userID may perform action right now. The
// verdict is derived from the live record on every call; verification state
// changes asynchronously (verifier callbacks, admin decisions) between a gate
// check and the protected action, so caching a verdict here would let a
// rejected applicant coast on a stale Allowed.
func (g *Guard) CheckAccess(ctx context.Context, userID, action string) (Result, error) {
	if userID == "" {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}

	rec, err := g.records.Record(ctx, userID)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "guard check failed")
	}

	res := evaluate(rec)
	res.Action = action

	g.logger.InfoContext(ctx, "guard decision",
		slog.String("user_id", userID),
		slog.String("action", action),
		slog.String("decision", string(res.Decision)),
		slog.String("reason", res.Reason))
	if g.metrics != nil {
		g.metrics.GuardDecisions.WithLabelValues(string(res.Decision)).Inc()
	}
	return res, nil
}

func evaluate(rec *models.VerificationRecord) Result {
	switch {
	case rec.ONECI.Status == models.StatusVerified:
		return Result{Decision: Allowed, Reason: ReasonIdentityVerified}
	case rec.AltDocumentAccepted:
		return Result{Decision: Allowed, Reason: ReasonAlternateDocument}
	case rec.ONECI.Status == models.StatusPending, rec.ONECI.Status == models.StatusPendingReview:
		return Result{Decision: Pending, Reason: ReasonVerificationInFlight}
	case rec.ONECI.Status == models.StatusRejected:
		return Result{Decision: Blocked, Reason: ReasonResubmissionRequired}
	default:
		return Result{Decision: Blocked, Reason: ReasonSubmissionRequired}
	}
}
