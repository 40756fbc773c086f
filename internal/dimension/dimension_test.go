// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package dimension

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

type fakeSource struct {
	calls   atomic.Int32
	err     error
	delay   time.Duration
	records []selection.MembershipRecord
}

func (f *fakeSource) MembershipRecords(ctx context.Context, _ models.GeometryFilter) ([]selection.MembershipRecord, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func corridorRecords() []selection.MembershipRecord {
	return []selection.MembershipRecord{
		{Signal: "A", Segment: selection.Seg(1)},
		{Signal: "A", Segment: selection.Seg(2)},
		{Signal: "B", Segment: selection.Seg(2)},
		{Signal: "C"},
	}
}

func TestCache_LoadBuildsIndex(t *testing.T) {
	src := &fakeSource{records: corridorRecords()}
	c := New(src, 4, time.Minute)

	snap, err := c.Load(context.Background(), models.GeometryFilter{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Records) != 4 {
		t.Errorf("records = %d, want 4", len(snap.Records))
	}
	if snap.Index.SignalCount() != 2 || snap.Index.SegmentCount() != 2 || snap.Index.PairCount() != 3 {
		t.Errorf("index signals=%d segments=%d pairs=%d",
			snap.Index.SignalCount(), snap.Index.SegmentCount(), snap.Index.PairCount())
	}
	if snap.LoadedAt.IsZero() {
		t.Error("LoadedAt not set")
	}
}

func TestCache_MemoizesByKey(t *testing.T) {
	src := &fakeSource{records: corridorRecords()}
	c := New(src, 4, time.Minute)
	ctx := context.Background()

	hitsBefore := testutil.ToFloat64(metrics.DimensionCacheHits)

	first, err := c.Load(ctx, models.GeometryFilter{Signals: []string{"B", "A"}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Load(ctx, models.GeometryFilter{Signals: []string{"A", "B", "A"}})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("equivalent filters should share a snapshot")
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DimensionCacheHits) - hitsBefore; got != 1 {
		t.Errorf("cache hits delta = %v, want 1", got)
	}

	if _, err := c.Load(ctx, models.GeometryFilter{Signals: []string{"A"}}); err != nil {
		t.Fatal(err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2 after a new key", got)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	c := New(src, 4, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.Load(context.Background(), models.GeometryFilter{}); !errors.Is(err, ErrLoad) {
			t.Fatalf("Load error = %v, want ErrLoad", err)
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestCache_Invalidate(t *testing.T) {
	src := &fakeSource{records: corridorRecords()}
	c := New(src, 4, time.Minute)
	ctx := context.Background()

	if _, err := c.Load(ctx, models.GeometryFilter{}); err != nil {
		t.Fatal(err)
	}
	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("Len after Invalidate = %d", c.Len())
	}
	if _, err := c.Load(ctx, models.GeometryFilter{}); err != nil {
		t.Fatal(err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
}

func TestCache_EvictionCounted(t *testing.T) {
	src := &fakeSource{records: corridorRecords()}
	c := New(src, 1, time.Minute)
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.DimensionCacheEvictions)
	for _, sig := range []string{"A", "B", "C"} {
		if _, err := c.Load(ctx, models.GeometryFilter{Signals: []string{sig}}); err != nil {
			t.Fatal(err)
		}
	}
	if got := testutil.ToFloat64(metrics.DimensionCacheEvictions) - before; got != 2 {
		t.Errorf("evictions delta = %v, want 2", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCache_ConcurrentLoadsCollapse(t *testing.T) {
	src := &fakeSource{records: corridorRecords(), delay: 50 * time.Millisecond}
	c := New(src, 4, time.Minute)

	var wg sync.WaitGroup
	snaps := make([]*Snapshot, 8)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := c.Load(context.Background(), models.GeometryFilter{})
			if err != nil {
				t.Errorf("Load: %v", err)
				return
			}
			snaps[i] = snap
		}(i)
	}
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i] != snaps[0] {
			t.Errorf("goroutine %d got a different snapshot", i)
		}
	}
}

func TestCache_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	src := &fakeSource{records: corridorRecords(), delay: 200 * time.Millisecond}
	c := New(src, 4, time.Minute)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()

	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Load(firstCtx, models.GeometryFilter{})
		firstErr <- err
	}()

	deadline := time.Now().Add(time.Second)
	for src.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("build never started")
		}
		time.Sleep(time.Millisecond)
	}

	waiterErr := make(chan error, 1)
	var waiterSnap *Snapshot
	go func() {
		snap, err := c.Load(context.Background(), models.GeometryFilter{})
		waiterSnap = snap
		waiterErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller err = %v, want context.Canceled", err)
	}
	if err := <-waiterErr; err != nil {
		t.Fatalf("waiter err = %v, want nil", err)
	}
	if waiterSnap == nil || waiterSnap.Index.SignalCount() != 2 {
		t.Errorf("waiter snapshot = %+v", waiterSnap)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
}

func TestCache_AbandonedBuildStillCached(t *testing.T) {
	src := &fakeSource{records: corridorRecords(), delay: 50 * time.Millisecond}
	c := New(src, 4, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := c.Load(ctx, models.GeometryFilter{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Load err = %v, want DeadlineExceeded", err)
	}

	deadline := time.Now().Add(time.Second)
	for c.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("abandoned build was not cached")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := c.Load(context.Background(), models.GeometryFilter{}); err != nil {
		t.Fatal(err)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
}
