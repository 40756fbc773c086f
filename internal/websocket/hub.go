// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/corridor/internal/config"
	"github.com/tomtom215/corridor/internal/events"
	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types.
const (
	MessageTypeSelectionChanged = events.KindSelectionChanged
	MessageTypeIndexReplaced    = events.KindIndexReplaced
	MessageTypeRefetch          = events.KindRefetch
	MessageTypeSessionClosed    = events.KindSessionClosed
	MessageTypeError            = "error"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"

	CommandToggleSignal  = "toggle_signal"
	CommandToggleSegment = "toggle_segment"
	CommandClear         = "clear"
)

// Message is an outbound frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Command is an inbound frame.
type Command struct {
	Type    string              `json:"type"`
	Signal  selection.SignalID  `json:"signal,omitempty"`
	Segment selection.SegmentID `json:"segment,omitempty"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Command string `json:"command,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CommandHandler applies client commands to a session.
// session.Manager implements it.
type CommandHandler interface {
	ToggleSignal(ctx context.Context, id string, signal selection.SignalID) (models.SelectionView, error)
	ToggleSegment(ctx context.Context, id string, segment selection.SegmentID) (models.SelectionView, error)
	Clear(ctx context.Context, id string) (models.SelectionView, error)
}

// routed is a message addressed to one session's clients.
type routed struct {
	sessionID string
	message   Message
}

// Hub tracks clients by session and routes events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan routed
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// done is closed when RunWithContext returns, releasing clients that
	// would otherwise block handing themselves to a stopped hub.
	done     chan struct{}
	stopOnce sync.Once

	commands CommandHandler
	cfg      config.WebSocketConfig
}

// NewHub creates a Hub. commands may be nil, in which case selection
// commands are answered with an error.
func NewHub(commands CommandHandler, cfg config.WebSocketConfig) *Hub {
	return &Hub{
		broadcast:  make(chan routed, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		commands:   commands,
		cfg:        cfg,
	}
}

// RunWithContext runs the hub until ctx is cancelled, then closes every
// client. Cancellation is checked first, then client lifecycle, then
// broadcasts, so client state is settled before messages are routed.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case r := <-h.broadcast:
			h.broadcastToSession(r)
		}
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// RegisterClient hands client to the hub. It reports false when the hub has
// already stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient removes client from the hub. After the hub has stopped it
// returns at once; shutdown has already closed every client.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("session_id", client.sessionID).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("session_id", client.sessionID).Int("total_clients", total).Msg("websocket client disconnected")
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// broadcastToSession sends to the session's clients in id order. Clients
// whose buffer is full are dropped, and session_closed disconnects every
// client of the session after it is queued.
func (h *Hub) broadcastToSession(r routed) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client.sessionID == r.sessionID {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	closing := r.message.Type == events.KindSessionClosed
	for _, client := range clients {
		if !client.trySend(r.message) {
			metrics.WSErrors.WithLabelValues("slow_client").Inc()
			client.closeSend()
			delete(h.clients, client)
			continue
		}
		if closing {
			client.closeSend()
			delete(h.clients, client)
		}
	}
	metrics.WSConnections.Set(float64(len(h.clients)))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		client.closeSend()
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// Deliver routes a bus event to its session's clients. It never blocks; when
// the hub is saturated the event is dropped.
func (h *Hub) Deliver(e events.Event) {
	r := routed{sessionID: e.SessionID, message: Message{Type: e.Kind, Data: e}}
	select {
	case h.broadcast <- r:
	default:
		metrics.WSErrors.WithLabelValues("hub_saturated").Inc()
		logging.Warn().Str("session_id", e.SessionID).Str("kind", e.Kind).Msg("broadcast channel full, dropping selection event")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients bound to sessionID.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.sessionID == sessionID {
			n++
		}
	}
	return n
}

// MarshalMessage converts a message to JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
