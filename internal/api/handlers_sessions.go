// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
	"github.com/tomtom215/corridor/internal/validation"
)

// sessionID returns the {id} URL parameter, or "" after writing a 400.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := chi.URLParam(r, "id")
	if !validation.IsEntityID(id) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid session id", nil)
		return ""
	}
	return id
}

// CreateSession opens a session. The optional body is the geometry filter
// selecting the displayed signals and segments.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var filter models.GeometryFilter
	if err := decodeBody(r, &filter, true); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if apiErr := validateRequest(filter); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	summary, err := h.sessions.Create(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), summary.ID)
	logging.Ctx(ctx).Info().
		Int("signals", summary.Signals).
		Int("segments", summary.Segments).
		Msg("Selection session opened")

	w.Header().Set("Location", "/api/v1/sessions/"+summary.ID)
	respondSuccess(w, http.StatusCreated, summary, start)
}

// GetSession describes a session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	summary, err := h.sessions.Get(id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, summary, start)
}

// DeleteSession closes a session and disconnects its WebSocket clients.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)
	if id == "" {
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSelection returns the selected sets and the derived segment filter.
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	view, err := h.sessions.Selection(id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, view, start)
}

// GetMap returns every displayed signal and segment with its selected flag.
func (h *Handler) GetMap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	view, err := h.sessions.Map(id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, view, start)
}

// ToggleSignal selects or deselects a signal. Unknown signals are accepted
// and simply have no segments.
func (h *Handler) ToggleSignal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	signal := chi.URLParam(r, "signal")
	if !validation.IsEntityID(signal) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid signal id", nil)
		return
	}

	view, err := h.sessions.ToggleSignal(r.Context(), id, selection.SignalID(signal))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, view, start)
}

// ToggleSegment selects or deselects a single segment.
func (h *Handler) ToggleSegment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	segment, err := strconv.ParseInt(chi.URLParam(r, "segment"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Segment id must be an integer", nil)
		return
	}

	view, err := h.sessions.ToggleSegment(r.Context(), id, selection.SegmentID(segment))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, view, start)
}

// ClearSelection empties the selection.
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	view, err := h.sessions.Clear(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, view, start)
}

// SetGeometryFilter changes the displayed entity set. A different filter
// rebuilds the membership index and clears the selection.
func (h *Handler) SetGeometryFilter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	var filter models.GeometryFilter
	if err := decodeBody(r, &filter, false); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if apiErr := validateRequest(filter); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	summary, err := h.sessions.ApplyGeometryFilter(r.Context(), id, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, summary, start)
}

// SetChartFilter stores the date, time-of-day, weekday, anomaly and bucket
// filter used by the chart. The selection is untouched.
func (h *Handler) SetChartFilter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	var filter models.ChartFilter
	if err := decodeBody(r, &filter, false); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if apiErr := validateRequest(filter); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}
	if err := filter.CheckRange(); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	summary, err := h.sessions.ApplyChartFilter(r.Context(), id, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, summary, start)
}

// GetChart runs the travel-time query for the session's current selection.
// A result computed for a superseded selection is returned with stale set.
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := sessionID(w, r)
	if id == "" {
		return
	}

	series, err := h.sessions.ChartData(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, series, start)
}
