// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/corridor/internal/config"
	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
	ws "github.com/tomtom215/corridor/internal/websocket"
)

// Sessions is the session surface the handlers drive. *session.Manager
// implements it.
type Sessions interface {
	Create(ctx context.Context, f models.GeometryFilter) (models.SessionSummary, error)
	Get(id string) (models.SessionSummary, error)
	Delete(ctx context.Context, id string) error
	Count() int

	Selection(id string) (models.SelectionView, error)
	Map(id string) (models.MapView, error)
	ToggleSignal(ctx context.Context, id string, signal selection.SignalID) (models.SelectionView, error)
	ToggleSegment(ctx context.Context, id string, segment selection.SegmentID) (models.SelectionView, error)
	Clear(ctx context.Context, id string) (models.SelectionView, error)

	ApplyGeometryFilter(ctx context.Context, id string, f models.GeometryFilter) (models.SessionSummary, error)
	ApplyChartFilter(ctx context.Context, id string, f models.ChartFilter) (models.SessionSummary, error)
	ChartData(ctx context.Context, id string) (*models.ChartSeries, error)
}

// Store is the slice of the database the handlers read directly: the
// readiness ping and the anomaly-type catalog.
type Store interface {
	Ping(ctx context.Context) error
	AnomalyTypes(ctx context.Context) ([]string, error)
}

// BreakerState reports the chart circuit breaker state.
type BreakerState interface {
	State() string
}

// Handler serves the API routes.
type Handler struct {
	sessions  Sessions
	db        Store
	breaker   BreakerState
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a Handler. breaker and wsHub may be nil.
func NewHandler(sessions Sessions, db Store, breaker BreakerState, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		sessions:  sessions,
		db:        db,
		breaker:   breaker,
		wsHub:     wsHub,
		config:    cfg,
		startTime: time.Now(),
	}
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
}

// checkWebSocketOrigin accepts the request's own host and the configured
// CORS origins. Browsers always send Origin on WebSocket handshakes, so a
// missing header is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Str("remote_addr", r.RemoteAddr).Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	if h.config != nil {
		for _, allowed := range h.config.Security.CORSOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
	}

	logging.Warn().
		Str("origin", sanitizeLogValue(origin)).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection rejected: origin not allowed")
	return false
}
