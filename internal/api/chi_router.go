// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/livegrid/internal/middleware"
)

// baseRouter applies the middleware every route on both binaries shares.
func baseRouter(mw *ChiMiddleware, server string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())  // Add X-Request-ID header with logging context
	r.Use(chimiddleware.RealIP)    // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer) // Recover from panics
	r.Use(mw.CORS())               // CORS must be global to handle OPTIONS preflight
	r.Use(middleware.PrometheusMetrics(server))

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}

// NewViewerRouter configures the viewer's HTTP routes.
func NewViewerRouter(h *ViewerHandler, mw *ChiMiddleware) http.Handler {
	r := baseRouter(mw, "viewer")

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())

		r.With(middleware.Compression).Get("/rows", h.Rows)
		r.Get("/rows/{id}", h.Row)
		r.Get("/metrics", h.Metrics)
		r.Get("/connection", h.ConnectionStatus)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimitControl())
			r.Post("/connection/connect", h.Connect)
			r.Post("/connection/disconnect", h.Disconnect)
			r.Post("/subscriptions", h.Subscribe)
			r.Delete("/subscriptions", h.Unsubscribe)
			r.Post("/engine/pause", h.Pause)
			r.Post("/engine/resume", h.Resume)
			r.Put("/render/visible", h.SetVisible)
		})
	})

	r.With(mw.RateLimitWebSocket()).Get("/ws", h.WebSocket)

	return r
}

// NewSimulatorRouter configures the simulator's HTTP routes. The stream
// endpoint is not rate limited: consumers reconnect with their own backoff.
func NewSimulatorRouter(h *SimulatorHandler, mw *ChiMiddleware) http.Handler {
	r := baseRouter(mw, "simulator")

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.With(mw.RateLimitHealth()).Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())
			r.With(middleware.Compression).Get("/rows", h.Rows)
			r.Get("/rate", h.Rate)
			r.With(mw.RateLimitControl()).Put("/rate", h.SetRate)
		})
	})

	r.Get("/ws", h.WebSocket)

	return r
}
