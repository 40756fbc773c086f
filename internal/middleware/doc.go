// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package middleware holds the HTTP middleware shared by every route:
// request ids that flow into the zerolog context, Prometheus request
// metrics keyed by route pattern, and a debug access log.
//
// All middleware uses the standard func(http.Handler) http.Handler shape so
// it plugs directly into chi's r.Use.
package middleware
