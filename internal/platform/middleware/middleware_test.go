package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	callbacktoken "veristay/internal/callback_token"
	"veristay/pkg/requestcontext"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRequestMetadataPopulatesContext(t *testing.T) {
	var gotIP, gotUA, gotRequestID string
	var gotTime time.Time
	handler := RequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		gotIP = requestcontext.ClientIP(ctx)
		gotUA = requestcontext.UserAgent(ctx)
		gotRequestID = requestcontext.RequestID(ctx)
		gotTime = requestcontext.Now(ctx)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "203.0.113.9", gotIP)
	assert.Equal(t, "test-agent", gotUA)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, gotRequestID, rec.Header().Get("X-Request-ID"))
	assert.False(t, gotTime.IsZero())
}

func TestClientIPFromRemoteAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{name: "ipv4", remoteAddr: "203.0.113.9:54321", want: "203.0.113.9"},
		{name: "ipv6 brackets stripped", remoteAddr: "[::1]:8080", want: "::1"},
		{name: "no port", remoteAddr: "203.0.113.9", want: "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			assert.Equal(t, tt.want, clientIPFromRequest(req))
		})
	}
}

func TestRequestMetadataKeepsInboundRequestID(t *testing.T) {
	var got string
	handler := RequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "upstream-id", got)
}

func TestRequireAdminToken(t *testing.T) {
	var actor string
	handler := RequireAdminToken("secret", testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = requestcontext.ActorID(r.Context())
	}))

	t.Run("missing token rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reviews", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/reviews", nil)
		req.Header.Set("X-Admin-Token", "guess")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token sets actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/reviews", nil)
		req.Header.Set("X-Admin-Token", "secret")
		req.Header.Set("X-Admin-ID", "admin-7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "admin-7", actor)
	})
}

func TestRequireVerifierToken(t *testing.T) {
	tokens := callbacktoken.NewService("signing-secret", "veristay", "verifier-callbacks")
	token, err := tokens.GenerateCallbackToken("oneci", time.Minute)
	require.NoError(t, err)

	var actor string
	handler := RequireVerifierToken(tokens, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = requestcontext.ActorID(r.Context())
	}))

	t.Run("valid provider token becomes system actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/callbacks/verifier", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "system:oneci", actor)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callbacks/verifier", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/callbacks/verifier", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
