// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package session hosts selection engines, one per map view, and routes
// toggles, filter changes and chart loads to them.
package session

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/corridor/internal/dimension"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

// Session is one map view with its own selection engine. Every access to the
// engine happens under mu, so operations on a session never interleave.
type Session struct {
	id        string
	createdAt time.Time

	// lastActive is unix nanoseconds, readable without mu.
	lastActive atomic.Int64

	mu       sync.Mutex
	engine   *selection.Engine
	snapshot *dimension.Snapshot
	geometry models.GeometryFilter
	chart    models.ChartFilter
	closed   bool

	// pending collects engine changes during one operation.
	pending []selection.Change
}

func newSession(id string, snap *dimension.Snapshot, now time.Time) *Session {
	s := &Session{
		id:        id,
		createdAt: now,
		snapshot:  snap,
		geometry:  snap.Filter,
	}
	s.lastActive.Store(now.UnixNano())
	s.engine = selection.New(snap.Index, selection.WithListener(func(c selection.Change) {
		s.pending = append(s.pending, c)
	}))
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) touch(now time.Time) {
	s.lastActive.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// takePending returns and resets the changes collected so far. Caller holds mu.
func (s *Session) takePending() []selection.Change {
	out := s.pending
	s.pending = nil
	return out
}

// summary describes the session. Caller holds mu.
func (s *Session) summary() models.SessionSummary {
	idx := s.engine.Index()
	signals := make(map[selection.SignalID]struct{})
	for _, rec := range s.snapshot.Records {
		signals[rec.Signal] = struct{}{}
	}
	return models.SessionSummary{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		LastActive: s.idleSince(),
		Geometry:   s.geometry,
		Chart:      s.chart,
		Signals:    len(signals),
		Segments:   idx.SegmentCount(),
		Pairs:      idx.PairCount(),
		Selection:  s.engine.Snapshot(),
	}
}

// selectionView returns the selection with projector outputs. Caller holds mu.
func (s *Session) selectionView() models.SelectionView {
	return models.SelectionView{
		Snapshot:            s.engine.Snapshot(),
		ActiveSegmentFilter: s.engine.ActiveSegmentFilter(),
		HasActiveSelection:  s.engine.HasActiveSelection(),
	}
}

// mapView renders every displayed signal and segment with its selected flag.
// Caller holds mu.
func (s *Session) mapView() models.MapView {
	idx := s.engine.Index()
	view := models.MapView{
		Generation: s.engine.Generation(),
		Signals:    []models.MapSignal{},
		Segments:   []models.MapSegment{},
	}

	seenSignal := make(map[selection.SignalID]bool)
	seenSegment := make(map[selection.SegmentID]bool)
	for _, rec := range s.snapshot.Records {
		attrs, _ := rec.Attributes.(models.SegmentAttributes)

		if !seenSignal[rec.Signal] {
			seenSignal[rec.Signal] = true
			view.Signals = append(view.Signals, models.MapSignal{
				ID:           rec.Signal,
				Name:         attrs.SignalName,
				MaintainedBy: attrs.MaintainedBy,
				Latitude:     attrs.Latitude,
				Longitude:    attrs.Longitude,
				Selected:     s.engine.IsSignalSelected(rec.Signal),
				Segments:     idx.SegmentsFor(rec.Signal),
			})
		}

		if rec.Segment == nil || seenSegment[*rec.Segment] {
			continue
		}
		seg := *rec.Segment
		seenSegment[seg] = true
		view.Segments = append(view.Segments, models.MapSegment{
			ID:            seg,
			Bearing:       attrs.Bearing,
			RoadName:      attrs.RoadName,
			Miles:         attrs.Miles,
			Approach:      attrs.Approach,
			ValidGeometry: attrs.ValidGeometry,
			Selected:      s.engine.IsSegmentSelected(seg),
			Signals:       idx.SignalsFor(seg),
		})
	}
	slices.SortFunc(view.Segments, func(a, b models.MapSegment) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return view
}
