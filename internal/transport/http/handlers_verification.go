package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veristay/internal/audit"
	"veristay/internal/notify"
	"veristay/internal/verification/models"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/httputil"
	"veristay/pkg/requestcontext"
)

// handleSubmit is the submission intake: documents or a biometric capture
// enter the named channel's review pipeline.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.verification.Submit(ctx, models.Submission{
		UserID:              req.UserID,
		Channel:             models.Channel(chi.URLParam(r, "channel")),
		DocumentRefs:        req.DocumentRefs,
		BiometricCaptureRef: req.BiometricCaptureRef,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submission rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, toRecordResponse(rec))
}

// handleVerifierCallback records an external provider's verdict. The actor is
// the authenticated provider ("system:<provider>"); consuming the provider's
// raw result counts as a channel-data access, so the entry is persisted
// before the updated record is released.
func (h *Handler) handleVerifierCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.ActorID(ctx)

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, applied, err := h.verification.ApplyDecision(ctx, models.Decision{
		UserID:          req.UserID,
		Channel:         models.Channel(req.Channel),
		Outcome:         models.DecisionOutcome(req.Outcome),
		ActorID:         actor,
		SimilarityScore: req.SimilarityScore,
		ExternalRef:     req.ExternalRef,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "verifier callback rejected",
			"request_id", requestcontext.RequestID(ctx),
			"actor", actor,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if applied {
		if err := h.recorder.Record(ctx, audit.Access{
			AdminID:      actor,
			TargetUserID: req.UserID,
			Type:         audit.ForChannel(req.Channel),
		}); err != nil {
			httputil.WriteError(w, err)
			return
		}

		if notifyErr := h.notifier.Notify(ctx, notify.Event{
			UserID:     req.UserID,
			Channel:    req.Channel,
			Outcome:    req.Outcome,
			TrustScore: rec.TrustScore,
			OccurredAt: rec.UpdatedAt,
		}); notifyErr != nil {
			h.logger.WarnContext(ctx, "callback notification failed",
				"user_id", req.UserID,
				"error", notifyErr.Error(),
			)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

// handleScore returns the derived trust score with its component breakdown.
func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	score, breakdown, recommendation, err := h.verification.Score(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, scoreResponse{
		UserID:         userID,
		Score:          score,
		Breakdown:      breakdown,
		Recommendation: string(recommendation),
	})
}

// handleGuard evaluates whether the user may perform a protected action.
func (h *Handler) handleGuard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	action := r.URL.Query().Get("action")
	if action == "" {
		action = "rental_application"
	}

	res, err := h.guard.CheckAccess(ctx, chi.URLParam(r, "userID"), action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
