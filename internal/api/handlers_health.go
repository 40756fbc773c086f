// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/corridor/internal/models"
)

const readinessTimeout = 2 * time.Second

// HealthLive reports that the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, start)
}

// HealthReady returns 200 when the store answers a ping and 503 otherwise.
// An open chart breaker is reported but does not fail readiness, since
// selection keeps working without chart data.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	dbConnected := h.db != nil && h.db.Ping(ctx) == nil

	data := map[string]interface{}{
		"ready":              dbConnected,
		"database_connected": dbConnected,
	}
	if h.sessions != nil {
		data["sessions"] = h.sessions.Count()
	}
	if h.breaker != nil {
		data["chart_breaker"] = h.breaker.State()
	}
	if h.wsHub != nil {
		data["websocket_clients"] = h.wsHub.GetClientCount()
	}

	if !dbConnected {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status: "error",
			Data:   data,
			Metadata: models.Metadata{
				Timestamp: time.Now(),
			},
			Error: &models.APIError{
				Code:    "SERVICE_UNAVAILABLE",
				Message: "Database is not reachable",
			},
		})
		return
	}
	respondSuccess(w, http.StatusOK, data, start)
}
