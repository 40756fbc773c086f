// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

/*
Package websocket pushes live selection changes to map clients and accepts
selection commands from them.

Each Client is bound to one selection session. The Hub receives events from
the event bus (it implements events.Sink) and forwards each one only to the
clients of the session it belongs to.

Outbound message types:

  - selection_changed: a toggle or clear changed the selection
  - index_replaced: a geometry filter rebuilt the membership index
  - refetch: a chart-only filter changed; reload chart data
  - session_closed: the session was deleted or expired
  - error: a command failed
  - pong: reply to ping

Inbound commands:

	{"type": "toggle_signal", "signal": "1001"}
	{"type": "toggle_segment", "segment": 1236890001}
	{"type": "clear"}
	{"type": "ping"}

Commands are rate limited per client with golang.org/x/time/rate. Command
results are not sent directly: the resulting selection_changed event reaches
every client of the session, the sender included.
*/
package websocket
