// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/livegrid/internal/models"
)

// Health reports "healthy" while the upstream connection is up and
// "degraded" otherwise. It always returns 200 so dashboards can read it.
func (h *ViewerHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, h.healthStatus(), 0)
}

func (h *ViewerHandler) healthStatus() models.HealthStatus {
	conn := h.conn.Status()
	m := h.engine.Metrics()

	status := "healthy"
	if conn.State != models.StateConnected {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:     status,
		Service:    "viewer",
		Version:    Version,
		Uptime:     time.Since(h.startTime).Seconds(),
		Connection: conn.State.String(),
		Rows:       m.RowCount,
		Clients:    h.hub.ClientCount(),
		Paused:     h.engine.IsPaused(),
		Throttled:  m.IsThrottled,
	}
	if h.snapshot != nil {
		health.Snapshot = h.snapshot.State()
	}
	return health
}

// HealthLive is a Kubernetes-style liveness probe. It only reports that
// the process is serving HTTP.
func (h *ViewerHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, 0)
}

// HealthReady is ready once the Row Cache has been initialized.
func (h *ViewerHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if h.engine.Metrics().RowCount == 0 {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Row cache not initialized", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, 0)
}
