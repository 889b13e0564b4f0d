// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package middleware provides HTTP middleware shared by the viewer and
simulator routers.

Key Components:

  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by server and chi route pattern
  - Compression: gzip for clients that send Accept-Encoding: gzip

Both are chi-style func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.PrometheusMetrics("viewer"))
	r.With(middleware.Compression).Get("/api/v1/rows", h.Rows)
*/
package middleware
