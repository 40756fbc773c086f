// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package events carries selection changes from sessions to live listeners
// over an in-process watermill Pub/Sub.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

// Topic is the single topic selection events travel on.
const Topic = "selection.events"

// Event kinds.
const (
	KindSelectionChanged = "selection_changed"
	KindIndexReplaced    = "index_replaced"
	KindRefetch          = "refetch"
	KindSessionClosed    = "session_closed"
)

// Event is one session-scoped notification.
type Event struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`

	// Change describes the operation behind a selection_changed event.
	Change *Change `json:"change,omitempty"`

	Selection *selection.Snapshot    `json:"selection,omitempty"`
	Geometry  *models.GeometryFilter `json:"geometry,omitempty"`
	Chart     *models.ChartFilter    `json:"chart,omitempty"`
}

// Change is the operation that produced a selection event.
type Change struct {
	Kind     selection.ChangeKind `json:"kind"`
	Signal   selection.SignalID   `json:"signal,omitempty"`
	Segment  selection.SegmentID  `json:"segment,omitempty"`
	Selected bool                 `json:"selected"`
}

// New returns an event with a fresh id and timestamp.
func New(sessionID, kind string, generation uint64) Event {
	return Event{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Kind:       kind,
		Generation: generation,
		Timestamp:  time.Now().UTC(),
	}
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Bus is the in-process Pub/Sub.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.Mutex
	closed bool
}

// NewBus creates a Bus logging through logger.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
			// Waiting for the ack keeps per-session events in publish order.
			BlockPublishUntilSubscriberAck: true,
		}, logger),
	}
}

// Publish encodes e and publishes it on Topic, returning once every
// subscriber has acknowledged it. Events published with no subscriber are
// dropped.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("event bus closed")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(e.ID, data)
	msg.Metadata.Set("session_id", e.SessionID)
	msg.Metadata.Set("kind", e.Kind)
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", e.ID, err)
	}
	metrics.EventsPublished.WithLabelValues(e.Kind).Inc()
	return nil
}

// Subscribe returns the message stream for Topic until ctx is done.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close shuts the Pub/Sub down and closes every subscription.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// Decode parses a message payload.
func Decode(msg *message.Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return Event{}, fmt.Errorf("deserialize event %s: %w", msg.UUID, err)
	}
	return e, nil
}
