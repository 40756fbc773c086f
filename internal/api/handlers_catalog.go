// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor


package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/corridor/internal/logging"
)

// AnomalyTypes lists the anomaly types present in the store. The chart
// filter panel offers them as AnomalyTypes choices.
func (h *Handler) AnomalyTypes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.db == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Store not configured", nil)
		return
	}

	types, err := h.db.AnomalyTypes(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Request cancelled by client")
		return
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "TIMEOUT", "Query timed out", err)
		return
	default:
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list anomaly types", err)
		return
	}

	if types == nil {
		types = []string{}
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"anomaly_types": types,
	}, start)
}
