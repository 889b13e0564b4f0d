// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/livegrid/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitCustom(t *testing.T) {
	t.Run("limits by ip with JSON body", func(t *testing.T) {
		mw := NewChiMiddleware(DefaultChiMiddlewareConfig())
		h := mw.RateLimitCustom(RateLimitConfig{Requests: 2, Window: time.Minute})(okHandler())

		var last *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			last = httptest.NewRecorder()
			h.ServeHTTP(last, req)
		}
		if last.Code != http.StatusTooManyRequests {
			t.Fatalf("third request status = %d, want 429", last.Code)
		}
		if !strings.Contains(last.Body.String(), "RATE_LIMIT_EXCEEDED") {
			t.Errorf("body = %s", last.Body.String())
		}
	})

	t.Run("disabled", func(t *testing.T) {
		mw := NewChiMiddlewareFromServer(nil, 1, time.Minute, true)
		h := mw.RateLimit()(okHandler())
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d status = %d", i, rec.Code)
			}
		}
	})
}

func TestCORS(t *testing.T) {
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"http://grid.local"},
		CORSAllowedMethods: []string{"GET", "PUT"},
	})
	h := mw.CORS()(okHandler())

	tests := []struct {
		origin    string
		wantAllow string
	}{
		{"http://grid.local", "http://grid.local"},
		{"http://evil.local", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/rows", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestRequestIDWithLogging(t *testing.T) {
	var seen string
	h := RequestIDWithLogging()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		if logging.CorrelationIDFromContext(r.Context()) == "" {
			t.Error("correlation id missing from context")
		}
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" || rec.Header().Get("X-Request-Id") != seen {
			t.Errorf("context id %q, header %q", seen, rec.Header().Get("X-Request-Id"))
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seen != "req-123" {
			t.Errorf("context id = %q, want req-123", seen)
		}
	})
}

func TestAPISecurityHeaders(t *testing.T) {
	h := APISecurityHeaders()(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind TLS proxy")
	}
}

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy originPolicy
		origin string
		want   bool
	}{
		{"browser missing origin", originPolicy{allowed: []string{"*"}}, "", false},
		{"service missing origin", originPolicy{allowMissing: true}, "", true},
		{"wildcard", originPolicy{allowed: []string{"*"}}, "http://any", true},
		{"listed", originPolicy{allowed: []string{"http://a", "http://b"}}, "http://b", true},
		{"not listed", originPolicy{allowed: []string{"http://a"}}, "http://b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := tt.policy.check(req); got != tt.want {
				t.Errorf("check = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	if got := sanitizeLogValue("a\nb\tc"); got != `a\x0ab\x09c` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
	if got := parseCommaSeparated(" A, ,B,"); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("parseCommaSeparated = %v", got)
	}
	if parseCommaSeparated("") != nil {
		t.Error("parseCommaSeparated(\"\") should be nil")
	}
	if generateETag([]byte("x")) == generateETag([]byte("y")) {
		t.Error("ETag collision on different bodies")
	}
}
