// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/livegrid/internal/metrics"
)

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("mwtest"))
	r.Get("/api/v1/rows/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"SYM001", "SYM002"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rows/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	}

	got := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("mwtest", "GET", "/api/v1/rows/{id}", "404"))
	if got != 2 {
		t.Errorf("requests for pattern = %v, want 2", got)
	}
	if active := testutil.ToFloat64(metrics.APIActiveRequests.WithLabelValues("mwtest")); active != 0 {
		t.Errorf("active requests = %v, want 0 after completion", active)
	}
}

func TestPrometheusMetricsUnmatched(t *testing.T) {
	h := PrometheusMetrics("mwtest-raw")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/anything", nil))

	got := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("mwtest-raw", "POST", "unmatched", "200"))
	if got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestCompression(t *testing.T) {
	body := `{"status":"success","data":[]}`
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))

	tests := []struct {
		name     string
		method   string
		headers  map[string]string
		wantGzip bool
		wantBody string
	}{
		{name: "gzip accepted", headers: map[string]string{"Accept-Encoding": "gzip, deflate"}, wantGzip: true, wantBody: body},
		{name: "no accept-encoding", headers: nil, wantBody: body},
		{name: "websocket upgrade", headers: map[string]string{"Accept-Encoding": "gzip", "Upgrade": "websocket"}, wantBody: body},
		{name: "not modified", headers: map[string]string{"Accept-Encoding": "gzip", "If-None-Match": `"abc"`}},
		{name: "head request", method: http.MethodHead, headers: map[string]string{"Accept-Encoding": "gzip"}, wantBody: body},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, "/api/v1/rows", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			gotGzip := rec.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.wantGzip {
				t.Fatalf("Content-Encoding gzip = %v, want %v", gotGzip, tt.wantGzip)
			}

			var got []byte
			if gotGzip {
				zr, err := gzip.NewReader(rec.Body)
				if err != nil {
					t.Fatalf("gzip.NewReader: %v", err)
				}
				got, err = io.ReadAll(zr)
				if err != nil {
					t.Fatalf("read gzip body: %v", err)
				}
			} else {
				got = rec.Body.Bytes()
			}
			if string(got) != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}
