package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"veristay/internal/audit"
	"veristay/internal/verification/models"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/httputil"
	"veristay/pkg/requestcontext"
)

// handleListReviews returns the open review queue, oldest first.
func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters, err := reviewFiltersFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	recs, err := h.review.ListPending(ctx, filters)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"reviews": toRecordResponses(recs),
	})
}

// handleDecide records an admin approve/reject decision.
func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.review.Decide(ctx, models.Decision{
		UserID:          req.UserID,
		Channel:         models.Channel(req.Channel),
		Outcome:         models.DecisionOutcome(req.Decision),
		Notes:           req.Notes,
		ActorID:         requestcontext.ActorID(ctx),
		SimilarityScore: req.SimilarityScore,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "admin decision rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

// handleFullView returns a user's complete record through the audited
// sensitive reader.
func (h *Handler) handleFullView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.reader.FullView(ctx, requestcontext.ActorID(ctx), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

// handleUpdateSignals replaces the supporting signals owned by the wider
// platform and recomputes the score.
func (h *Handler) handleUpdateSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.verification.UpdateSignals(ctx, chi.URLParam(r, "userID"), models.ProfileSignals{
		DocumentsOnFile:     req.DocumentsOnFile,
		HistoryAttested:     req.HistoryAttested,
		ProfileComplete:     req.ProfileComplete,
		PhoneOnFile:         req.PhoneOnFile,
		AltDocumentAccepted: req.AltDocumentAccepted,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

// handleChannelData returns one channel's raw state through the audited
// sensitive reader.
func (h *Handler) handleChannelData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := h.reader.ChannelData(ctx,
		requestcontext.ActorID(ctx),
		chi.URLParam(r, "userID"),
		models.Channel(chi.URLParam(r, "channel")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toChannelState(*state))
}

// handleAuditLog returns access log entries for compliance review.
func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters, err := auditFiltersFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.review.QueryAuditLog(ctx, filters)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
	})
}

// handleAuditExport streams the access log as CSV.
func (h *Handler) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters, err := auditFiltersFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="access-log.csv"`)
	if err := h.review.ExportAuditReport(ctx, filters, w); err != nil {
		h.logger.ErrorContext(ctx, "audit export failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
}

func reviewFiltersFromQuery(r *http.Request) (models.ReviewFilters, error) {
	q := r.URL.Query()
	var filters models.ReviewFilters

	if raw := q.Get("channel"); raw != "" {
		ch := models.Channel(raw)
		if !ch.Valid() {
			return filters, dErrors.New(dErrors.CodeBadRequest, "unknown verification channel")
		}
		filters.Channel = &ch
	}
	if raw := q.Get("status"); raw != "" {
		st := models.ChannelStatus(raw)
		if !st.Valid() {
			return filters, dErrors.New(dErrors.CodeBadRequest, "unknown channel status")
		}
		filters.Status = &st
	}

	var err error
	if filters.From, err = timeParam(q.Get("from")); err != nil {
		return filters, err
	}
	if filters.To, err = timeParam(q.Get("to")); err != nil {
		return filters, err
	}
	filters.Page = intParam(q.Get("page"))
	filters.PerPage = intParam(q.Get("per_page"))
	return filters, nil
}

func auditFiltersFromQuery(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	filters := audit.Filters{
		AdminID:      q.Get("admin_id"),
		TargetUserID: q.Get("target_user_id"),
	}

	if raw := q.Get("access_type"); raw != "" {
		at := audit.AccessType(raw)
		if !at.Valid() {
			return filters, dErrors.New(dErrors.CodeBadRequest, "unknown access type")
		}
		filters.Type = at
	}

	var err error
	if filters.From, err = timeParam(q.Get("from")); err != nil {
		return filters, err
	}
	if filters.To, err = timeParam(q.Get("to")); err != nil {
		return filters, err
	}
	filters.Page = intParam(q.Get("page"))
	filters.PerPage = intParam(q.Get("per_page"))
	return filters, nil
}

func timeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "timestamps must be RFC3339")
	}
	return &t, nil
}

func intParam(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}
