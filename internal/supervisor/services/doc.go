// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package services adapts Corridor components to suture.Service.
//
// HTTPServerService drives an *http.Server through ListenAndServe and a
// bounded graceful Shutdown. WebSocketHubService runs the hub loop.
// JanitorService runs a periodic cleanup task, used for idle session
// expiry and dimension cache pruning. The event forwarder already
// implements suture.Service and is added to the tree directly.
package services
