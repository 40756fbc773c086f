// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package dimension loads signal/segment membership for a geometry filter and
// memoizes the built index.
package dimension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/corridor/internal/cache"
	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

// ErrLoad wraps failures of the underlying membership source.
var ErrLoad = errors.New("membership load failed")

// Source provides membership records for a geometry filter.
type Source interface {
	MembershipRecords(ctx context.Context, f models.GeometryFilter) ([]selection.MembershipRecord, error)
}

// Snapshot is the displayed entity set for one geometry filter. It is shared
// between sessions and must not be mutated.
type Snapshot struct {
	Filter   models.GeometryFilter
	Key      string
	Records  []selection.MembershipRecord
	Index    *selection.Index
	LoadedAt time.Time
}

// buildTimeout bounds one membership build. Builds run detached from the
// caller that started them.
const buildTimeout = 30 * time.Second

// Cache memoizes snapshots by filter key.
type Cache struct {
	source Source
	lru    *cache.LRU[*Snapshot]
	flight singleflight.Group
}

// New creates a Cache over source holding at most size snapshots for ttl.
func New(source Source, size int, ttl time.Duration) *Cache {
	c := &Cache{source: source}
	c.lru = cache.NewLRU[*Snapshot](size, ttl, cache.WithEvictHook(func(key string, _ *Snapshot) {
		metrics.DimensionCacheEvictions.Inc()
		logging.Debug().Str("key", key).Msg("Membership snapshot evicted")
	}))
	return c
}

// Load returns the snapshot for f, querying the source on a miss. Concurrent
// misses for one key share a single build; a caller that gives up does not
// cancel the build for the others.
func (c *Cache) Load(ctx context.Context, f models.GeometryFilter) (*Snapshot, error) {
	key := f.Key()

	if snap, ok := c.lru.Get(key); ok {
		metrics.DimensionCacheHits.Inc()
		return snap, nil
	}
	metrics.DimensionCacheMisses.Inc()

	ch := c.flight.DoChan(key, func() (interface{}, error) {
		if snap, ok := c.lru.Get(key); ok {
			return snap, nil
		}
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()

		snap, err := c.build(buildCtx, f, key)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, snap)
		metrics.DimensionCacheEntries.Set(float64(c.lru.Len()))
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) build(ctx context.Context, f models.GeometryFilter, key string) (*Snapshot, error) {
	start := time.Now()
	records, err := c.source.MembershipRecords(ctx, f.Normalized())
	if err != nil {
		return nil, fmt.Errorf("%w for %q: %w", ErrLoad, key, err)
	}

	idx := selection.BuildIndex(records)
	elapsed := time.Since(start)
	metrics.RecordIndexBuild("load", elapsed, idx.PairCount())

	logging.Debug().
		Str("key", key).
		Int("records", len(records)).
		Int("signals", idx.SignalCount()).
		Int("segments", idx.SegmentCount()).
		Dur("duration", elapsed).
		Msg("Membership index built")

	return &Snapshot{
		Filter:   f.Normalized(),
		Key:      key,
		Records:  records,
		Index:    idx,
		LoadedAt: time.Now(),
	}, nil
}

// Invalidate drops every cached snapshot.
func (c *Cache) Invalidate() {
	c.lru.Clear()
	metrics.DimensionCacheEntries.Set(0)
	logging.Info().Msg("Membership snapshot cache invalidated")
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Cleanup evicts expired snapshots.
func (c *Cache) Cleanup() int {
	n := c.lru.CleanupExpired()
	metrics.DimensionCacheEntries.Set(float64(c.lru.Len()))
	return n
}
