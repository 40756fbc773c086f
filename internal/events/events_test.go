// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/selection"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	received := make(chan *message.Message, 1)
	go func() {
		select {
		case msg := <-messages:
			msg.Ack()
			received <- msg
		case <-ctx.Done():
		}
	}()

	before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(KindSelectionChanged))

	e := New("session-1", KindSelectionChanged, 3)
	e.Change = &Change{Kind: selection.ChangeSignalToggled, Signal: "A", Selected: true}
	e.Selection = &selection.Snapshot{Generation: 3, Signals: []selection.SignalID{"A"}, Segments: []selection.SegmentID{1, 2}}
	if err := bus.Publish(ctx, e); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var msg *message.Message
	select {
	case msg = <-received:
	case <-ctx.Done():
		t.Fatal("no message received")
	}

	if msg.Metadata.Get("session_id") != "session-1" || msg.Metadata.Get("kind") != KindSelectionChanged {
		t.Errorf("metadata = %v", msg.Metadata)
	}
	got, err := Decode(msg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != e.ID || got.Generation != 3 || got.Change.Signal != "A" || len(got.Selection.Segments) != 2 {
		t.Errorf("decoded = %+v", got)
	}
	if delta := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(KindSelectionChanged)) - before; delta != 1 {
		t.Errorf("published delta = %v, want 1", delta)
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus(nil)
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := bus.Publish(context.Background(), New("s", KindRefetch, 0)); err == nil {
		t.Error("Publish after Close should fail")
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode(message.NewMessage("x", []byte("{not json"))); err == nil {
		t.Error("expected decode error")
	}
}

func TestForwarder_DeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	received := make(chan Event, 8)
	fwd := NewForwarder(bus, SinkFunc(func(e Event) { received <- e }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fwd.Serve(ctx) }()

	// Subscription happens inside Serve; publish until the first event lands.
	deadline := time.After(5 * time.Second)
	var first Event
waitFirst:
	for {
		if err := bus.Publish(context.Background(), New("s", KindRefetch, 0)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		select {
		case first = <-received:
			break waitFirst
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("forwarder never delivered")
		}
	}
	if first.Kind != KindRefetch {
		t.Errorf("first kind = %s", first.Kind)
	}
	// Drain probe duplicates that may still be in flight.
	time.Sleep(50 * time.Millisecond)
	for len(received) > 0 {
		<-received
	}

	for gen := uint64(1); gen <= 3; gen++ {
		if err := bus.Publish(context.Background(), New("s", KindSelectionChanged, gen)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	for gen := uint64(1); gen <= 3; gen++ {
		select {
		case e := <-received:
			if e.Generation != gen {
				t.Errorf("generation = %d, want %d", e.Generation, gen)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("event %d not delivered", gen)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if fwd.String() != "event-forwarder" {
		t.Errorf("String = %q", fwd.String())
	}
}
