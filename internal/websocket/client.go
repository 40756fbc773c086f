// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	commandTimeout = 5 * time.Second
)

var clientIDCounter atomic.Uint64

// Client is one websocket connection bound to a selection session.
type Client struct {
	id        uint64
	sessionID string
	hub       *Hub
	conn      *websocket.Conn
	limiter   *rate.Limiter

	// send is closed by the hub; sendMu guards it against replies from
	// readPump racing the close.
	sendMu sync.Mutex
	send   chan Message
	closed bool
}

// NewClient creates a client for sessionID. Commands are limited to the
// hub's configured rate.
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	perSecond := hub.cfg.CommandsPerSecond
	if perSecond <= 0 {
		perSecond = 20
	}
	burst := hub.cfg.CommandBurst
	if burst <= 0 {
		burst = 40
	}
	return &Client{
		id:        clientIDCounter.Add(1),
		sessionID: sessionID,
		hub:       hub,
		conn:      conn,
		send:      make(chan Message, 256),
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// ID returns the client's ordering id.
func (c *Client) ID() uint64 {
	return c.id
}

// SessionID returns the session the client is bound to.
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(Message{Type: MessageTypeError, Data: ErrorData{Code: "BAD_MESSAGE", Message: "message is not valid JSON"}})
			continue
		}
		c.handle(cmd)
	}
}

// handle applies one command. Errors go back to this client only.
func (c *Client) handle(cmd Command) {
	if cmd.Type == MessageTypePing {
		c.reply(Message{Type: MessageTypePong})
		return
	}
	if !c.limiter.Allow() {
		metrics.WSErrors.WithLabelValues("rate_limited").Inc()
		c.reply(Message{Type: MessageTypeError, Data: ErrorData{Command: cmd.Type, Code: "RATE_LIMITED", Message: "too many commands"}})
		return
	}
	if c.hub.commands == nil {
		c.reply(Message{Type: MessageTypeError, Data: ErrorData{Command: cmd.Type, Code: "SERVICE_UNAVAILABLE", Message: "commands are not accepted"}})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	ctx = logging.ContextWithSessionID(ctx, c.sessionID)

	var err error
	switch cmd.Type {
	case CommandToggleSignal:
		if cmd.Signal == "" {
			err = errMissingTarget
			break
		}
		_, err = c.hub.commands.ToggleSignal(ctx, c.sessionID, cmd.Signal)
	case CommandToggleSegment:
		_, err = c.hub.commands.ToggleSegment(ctx, c.sessionID, cmd.Segment)
	case CommandClear:
		_, err = c.hub.commands.Clear(ctx, c.sessionID)
	default:
		c.reply(Message{Type: MessageTypeError, Data: ErrorData{Command: cmd.Type, Code: "UNKNOWN_COMMAND", Message: "unknown command"}})
		return
	}
	if err != nil {
		code := "COMMAND_FAILED"
		if errors.Is(err, errMissingTarget) {
			code = "VALIDATION_ERROR"
		}
		logging.Ctx(ctx).Debug().Err(err).Str("command", cmd.Type).Msg("websocket command failed")
		c.reply(Message{Type: MessageTypeError, Data: ErrorData{Command: cmd.Type, Code: code, Message: err.Error()}})
	}
}

var errMissingTarget = errors.New("command target is required")

// reply queues a message for this client without blocking.
func (c *Client) reply(msg Message) {
	if !c.trySend(msg) {
		metrics.WSErrors.WithLabelValues("reply_dropped").Inc()
	}
}

// trySend queues msg unless the buffer is full or the client is closed.
func (c *Client) trySend(msg Message) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Debug().Err(err).Msg("failed to write close message")
				}
				return
			}

			data, err := MarshalMessage(message)
			if err != nil {
				logging.Error().Err(err).Str("type", message.Type).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Debug().Err(err).Msg("failed to write websocket message")
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
