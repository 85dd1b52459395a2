package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"veristay/pkg/requestcontext"
)

// CallbackValidator validates an external verifier's bearer token and
// returns the provider name it was issued to.
type CallbackValidator interface {
	ValidateCallback(tokenString string) (provider string, err error)
}

// RequireVerifierToken authenticates callbacks from external verification
// providers. The authenticated provider becomes actor "system:<provider>" so
// callback-driven decisions are attributable in the audit trail.
func RequireVerifierToken(validator CallbackValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w, r, logger, "missing bearer token")
				return
			}

			provider, err := validator.ValidateCallback(token)
			if err != nil {
				unauthorized(w, r, logger, "invalid verifier token")
				return
			}

			ctx := requestcontext.WithActorID(r.Context(), "system:"+provider)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	ctx := r.Context()
	logger.WarnContext(ctx, "verifier callback rejected",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"verifier token required"}`))
}
