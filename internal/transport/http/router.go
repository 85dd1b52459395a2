// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services, and encode; business rules live below.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veristay/internal/audit"
	"veristay/internal/guard"
	"veristay/internal/notify"
	"veristay/internal/platform/metrics"
	"veristay/internal/platform/middleware"
	"veristay/internal/review"
	verification "veristay/internal/verification/service"
)

// Deps carries everything the router needs. All fields are required except
// Metrics.
type Deps struct {
	Logger       *slog.Logger
	Verification *verification.Service
	Guard        *guard.Guard
	Review       *review.Service
	Reader       *audit.SensitiveReader
	Recorder     *audit.Recorder
	Notifier     notify.Notifier

	AdminToken        string
	CallbackValidator middleware.CallbackValidator
	Metrics           *metrics.Metrics

	// HealthChecks are pinged by /healthz, keyed by dependency name.
	HealthChecks map[string]func(ctx context.Context) error
}

type Handler struct {
	logger       *slog.Logger
	verification *verification.Service
	guard        *guard.Guard
	review       *review.Service
	reader       *audit.SensitiveReader
	recorder     *audit.Recorder
	notifier     notify.Notifier
	healthChecks map[string]func(ctx context.Context) error
}

// NewRouter wires all endpoints and the middleware chain.
func NewRouter(deps Deps) http.Handler {
	h := &Handler{
		logger:       deps.Logger,
		verification: deps.Verification,
		guard:        deps.Guard,
		review:       deps.Review,
		reader:       deps.Reader,
		recorder:     deps.Recorder,
		notifier:     deps.Notifier,
		healthChecks: deps.HealthChecks,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestMetadata)
	if deps.Metrics != nil {
		r.Use(middleware.Instrument(deps.Metrics))
	}

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/verifications/{channel}", h.handleSubmit)
	r.Get("/verifications/{userID}/score", h.handleScore)
	r.Get("/verifications/{userID}/guard", h.handleGuard)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireVerifierToken(deps.CallbackValidator, deps.Logger))
		r.Post("/callbacks/verifier", h.handleVerifierCallback)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(deps.AdminToken, deps.Logger))
		r.Get("/reviews", h.handleListReviews)
		r.Post("/reviews/decide", h.handleDecide)
		r.Get("/verifications/{userID}", h.handleFullView)
		r.Put("/verifications/{userID}/signals", h.handleUpdateSignals)
		r.Get("/verifications/{userID}/channels/{channel}", h.handleChannelData)
		r.Get("/audit-log", h.handleAuditLog)
		r.Get("/audit-log/export", h.handleAuditExport)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	for name, check := range h.healthChecks {
		if err := check(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "dependency", name, "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
