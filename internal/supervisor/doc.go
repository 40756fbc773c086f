// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

/*
Package supervisor runs the long-lived parts of Corridor under a suture v4
tree.

Services are grouped into three layers so a failure in one restarts only
that layer:

	RootSupervisor ("corridor")
	├── DataSupervisor ("data-layer")
	│   ├── JanitorService "session-janitor" (expires idle sessions)
	│   └── JanitorService "dimension-janitor" (drops expired snapshots)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   └── events.Forwarder (bus -> hub)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (starts, failures, backoff) are logged through sutureslog
into the zerolog-backed slog handler from the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh
*/
package supervisor
