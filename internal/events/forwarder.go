// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package events

import (
	"context"
	"fmt"

	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/metrics"
)

// Sink receives decoded events.
type Sink interface {
	Deliver(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Deliver implements Sink.
func (f SinkFunc) Deliver(e Event) { f(e) }

// Forwarder drains the bus into a sink. It implements suture.Service.
type Forwarder struct {
	bus  *Bus
	sink Sink
}

// NewForwarder creates a forwarder from bus to sink.
func NewForwarder(bus *Bus, sink Sink) *Forwarder {
	return &Forwarder{bus: bus, sink: sink}
}

// Serve subscribes and forwards until ctx is cancelled. Undecodable messages
// are logged and acknowledged so they do not block the stream.
func (f *Forwarder) Serve(ctx context.Context) error {
	messages, err := f.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", Topic, err)
	}
	logging.Debug().Str("topic", Topic).Msg("Event forwarder subscribed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			e, err := Decode(msg)
			if err != nil {
				logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable event")
				msg.Ack()
				continue
			}
			f.sink.Deliver(e)
			metrics.EventsForwarded.Inc()
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (f *Forwarder) String() string {
	return "event-forwarder"
}
