// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/livegrid/internal/models"
)

// Rows returns the Row Cache. ?symbols=A,B limits the result to those rows;
// unknown symbols are skipped.
func (h *ViewerHandler) Rows(w http.ResponseWriter, r *http.Request) {
	rows := h.engine.GetRows()

	if symbols := parseCommaSeparated(r.URL.Query().Get("symbols")); len(symbols) > 0 {
		filtered := make([]models.RowRecord, 0, len(symbols))
		for _, s := range symbols {
			if row, ok := h.engine.GetRow(models.RowID(s)); ok {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	respondSuccess(w, http.StatusOK, rows, len(rows))
}

// Row returns one row by id.
func (h *ViewerHandler) Row(w http.ResponseWriter, r *http.Request) {
	id := models.RowID(chi.URLParam(r, "id"))
	row, ok := h.engine.GetRow(id)
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Row not found: "+sanitizeLogValue(id.String()), nil)
		return
	}
	respondSuccess(w, http.StatusOK, row, 0)
}

// Metrics returns the engine's read-only metrics.
func (h *ViewerHandler) Metrics(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, h.engine.Metrics(), 0)
}

// Pause stops frame application. Updates keep flowing into the cache.
func (h *ViewerHandler) Pause(w http.ResponseWriter, _ *http.Request) {
	h.engine.Pause()
	respondSuccess(w, http.StatusOK, h.engineState(), 0)
}

// Resume restarts frame application.
func (h *ViewerHandler) Resume(w http.ResponseWriter, _ *http.Request) {
	h.engine.Resume()
	respondSuccess(w, http.StatusOK, h.engineState(), 0)
}

func (h *ViewerHandler) engineState() models.EngineState {
	return models.EngineState{
		Paused:    h.engine.IsPaused(),
		Throttled: h.engine.IsThrottled(),
	}
}

// SetVisible replaces the rendered row set. Every id must be a known row.
func (h *ViewerHandler) SetVisible(w http.ResponseWriter, r *http.Request) {
	var req models.VisibleRowsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var unknown []models.RowID
	for _, id := range req.RowIDs {
		if _, ok := h.engine.GetRow(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		respondAPIError(w, http.StatusBadRequest, &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "Unknown row ids",
			Details: map[string]interface{}{"unknown": unknown},
		})
		return
	}

	revealed := h.sink.SetVisible(req.RowIDs, h.engine)
	if revealed == nil {
		revealed = []models.RowID{}
	}
	visible := h.sink.Visible()
	if visible == nil {
		visible = []models.RowID{}
	}
	respondSuccess(w, http.StatusOK, models.VisibleRowsResponse{
		Visible:  visible,
		Revealed: revealed,
	}, len(visible))
}
