// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/corridor/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil mw uses the default middleware config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight
	r.Use(middleware.AccessLog)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		// The upgrade needs the raw connection, so /ws skips the metrics
		// and compression wrappers.
		r.Get("/ws", router.handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.PrometheusMetrics)
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Get("/anomaly-types", router.handler.AnomalyTypes)

			r.Post("/sessions", router.handler.CreateSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", router.handler.GetSession)
				r.Delete("/", router.handler.DeleteSession)

				r.Get("/selection", router.handler.GetSelection)
				r.Post("/selection/clear", router.handler.ClearSelection)
				r.Get("/map", router.handler.GetMap)
				r.Post("/signals/{signal}/toggle", router.handler.ToggleSignal)
				r.Post("/segments/{segment}/toggle", router.handler.ToggleSegment)

				r.Put("/filters/geometry", router.handler.SetGeometryFilter)
				r.Put("/filters/chart", router.handler.SetChartFilter)
				r.Get("/chart", router.handler.GetChart)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
