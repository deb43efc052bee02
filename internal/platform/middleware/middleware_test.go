// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/middleware"
	"github.com/taibuivan/quill/internal/platform/sec"
)

type resolverFunc func(ctx context.Context, token string) (*sec.Principal, error)

func (fn resolverFunc) VerifyAccess(ctx context.Context, token string) (*sec.Principal, error) {
	return fn(ctx, token)
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal := ctxutil.GetPrincipal(request.Context())
		if principal == nil {
			_, _ = writer.Write([]byte("anonymous"))
			return
		}
		_, _ = writer.Write([]byte(principal.UserID))
	})
}

func decodeCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

/*
TestAuthenticate covers the anonymous, accepted and rejected paths.
*/
func TestAuthenticate(t *testing.T) {
	resolver := resolverFunc(func(_ context.Context, token string) (*sec.Principal, error) {
		switch token {
		case "good":
			return &sec.Principal{UserID: "u-1", Role: sec.RoleMember}, nil
		case "db-down":
			return nil, apperr.ServiceUnavailable("store unavailable")
		case "nil-principal":
			return nil, nil
		default:
			return nil, errors.New("bad signature")
		}
	})
	handler := middleware.Authenticate(resolver)(principalEcho())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no_header", "", http.StatusOK, "anonymous"},
		{"valid_token", "Bearer good", http.StatusOK, "u-1"},
		{"lowercase_scheme", "bearer good", http.StatusOK, "u-1"},
		{"wrong_scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"missing_token", "Bearer ", http.StatusUnauthorized, ""},
		{"rejected_token", "Bearer forged", http.StatusUnauthorized, ""},
		{"nil_principal_fails_closed", "Bearer nil-principal", http.StatusUnauthorized, ""},
		{"store_unavailable", "Bearer db-down", http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.status, recorder.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, recorder.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := middleware.RequireRole(sec.RoleModerator)(principalEcho())

	run := func(principal *sec.Principal) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		if principal != nil {
			request = request.WithContext(ctxutil.WithPrincipal(request.Context(), principal))
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	assert.Equal(t, http.StatusUnauthorized, run(nil).Code)

	forbidden := run(&sec.Principal{UserID: "u-1", Role: sec.RoleAuthor})
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.Equal(t, "FORBIDDEN", decodeCode(t, forbidden))

	assert.Equal(t, http.StatusOK, run(&sec.Principal{UserID: "u-2", Role: sec.RoleModerator}).Code)
	assert.Equal(t, http.StatusOK, run(&sec.Principal{UserID: "u-3", Role: sec.RoleAdmin}).Code)
}

func TestRequireAuth(t *testing.T) {
	handler := middleware.RequireAuth(principalEcho())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeCode(t, recorder))
}

func TestRateLimiter_PerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := middleware.NewRateLimiter(ctx, 1, 2)
	handler := limiter.Middleware(principalEcho())

	send := func(ip string) int {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("X-Real-IP", ip)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))

	// Buckets are independent per client.
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "trace-123")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "trace-123", seen)
}

func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeCode(t, recorder))
}

type corsConfig struct {
	development bool
	origins     []string
}

func (cfg corsConfig) IsDevelopment() bool      { return cfg.development }
func (cfg corsConfig) AllowedOrigins() []string { return cfg.origins }

func TestCORS(t *testing.T) {
	handler := middleware.CORS(corsConfig{origins: []string{"https://quill.blog"}})(principalEcho())

	allowed := httptest.NewRequest(http.MethodOptions, "/", nil)
	allowed.Header.Set("Origin", "https://quill.blog")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, allowed)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://quill.blog", recorder.Header().Get("Access-Control-Allow-Origin"))

	denied := httptest.NewRequest(http.MethodGet, "/", nil)
	denied.Header.Set("Origin", "https://evil.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, denied)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}
