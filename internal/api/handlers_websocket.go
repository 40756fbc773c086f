// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package api

import (
	"net/http"

	"github.com/tomtom215/corridor/internal/logging"
	ws "github.com/tomtom215/corridor/internal/websocket"
)

// WebSocket upgrades to the live selection channel of the session named by
// the session query parameter. The session must exist before the upgrade.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Live updates are disabled", nil)
		return
	}

	id := r.URL.Query().Get("session")
	if id == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "session query parameter is required", nil)
		return
	}
	if _, err := h.sessions.Get(id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn, id)
	if !h.wsHub.RegisterClient(client) {
		logging.Ctx(r.Context()).Debug().Str("session_id", id).Msg("WebSocket hub stopped, closing connection")
		_ = conn.Close()
		return
	}
	client.Start()
}
