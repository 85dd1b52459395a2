// Package middleware holds the HTTP middleware chain: request metadata
// capture, admin token gating, verifier callback authentication, and
// request instrumentation.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"veristay/pkg/requestcontext"
)

// RequestMetadata captures client IP, User-Agent, a request id, and a
// request-scoped clock reading, and stores them in the context. Everything
// downstream (audit enrichment, timestamps) reads from requestcontext, so
// this runs first in the chain.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithClientMetadata(ctx, clientIPFromRequest(r), r.Header.Get("User-Agent"))
		ctx = requestcontext.WithTime(ctx, time.Now())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIPFromRequest extracts the real client IP, handling proxies and load
// balancers.
func clientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can list client, proxy1, proxy2; the first entry is
		// the original client.
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	// RemoteAddr is "ip:port" ("[::1]:port" for IPv6); SplitHostPort strips
	// the brackets so audit-log IPs stay uniform across families.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
