// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package api exposes selection sessions over HTTP.
//
// Routes live under /api/v1 and are served by a chi router:
//
//	GET    /health/live
//	GET    /health/ready
//	GET    /anomaly-types
//	POST   /sessions
//	GET    /sessions/{id}
//	DELETE /sessions/{id}
//	GET    /sessions/{id}/selection
//	POST   /sessions/{id}/selection/clear
//	GET    /sessions/{id}/map
//	POST   /sessions/{id}/signals/{signal}/toggle
//	POST   /sessions/{id}/segments/{segment}/toggle
//	PUT    /sessions/{id}/filters/geometry
//	PUT    /sessions/{id}/filters/chart
//	GET    /sessions/{id}/chart
//	GET    /ws?session={id}
//
// Prometheus metrics are served at /metrics outside the API prefix.
//
// Every JSON response uses the models.APIResponse envelope. Errors carry a
// stable code (NOT_FOUND, SESSION_LIMIT, VALIDATION_ERROR,
// TOO_MANY_SEGMENTS, SERVICE_UNAVAILABLE, DATABASE_ERROR, INTERNAL_ERROR)
// next to a human readable message.
package api
