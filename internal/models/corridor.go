// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package models

import (
	"time"

	"github.com/tomtom215/corridor/internal/selection"
)

// SegmentAttributes is the descriptive payload attached to a membership
// record. The selection engine never reads it; it is passed through to map
// rendering.
type SegmentAttributes struct {
	SignalName   string  `json:"signal_name"`
	MaintainedBy string  `json:"maintained_by"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`

	// Segment fields are zero for signals without assigned segments.
	Bearing       string  `json:"bearing,omitempty"`
	RoadName      string  `json:"road_name,omitempty"`
	Miles         float64 `json:"miles,omitempty"`
	Approach      bool    `json:"approach,omitempty"`
	ValidGeometry bool    `json:"valid_geometry,omitempty"`
}

// SeriesPoint is one time bucket of aggregated travel times.
type SeriesPoint struct {
	Bucket            time.Time `json:"bucket"`
	TravelTimeSeconds float64   `json:"travel_time_seconds"`
	SpeedMPH          float64   `json:"speed_mph"`
	Samples           int64     `json:"samples"`
	Segments          int64     `json:"segments"`
	Anomalies         int64     `json:"anomalies"`
}

// ChartSeries is the chart payload for one session.
type ChartSeries struct {
	SessionID string `json:"session_id"`

	// Generation is the selection generation the series was computed for.
	Generation uint64 `json:"generation"`

	// Stale is set when the selection changed while the query ran.
	Stale bool `json:"stale"`

	// Scoped is false when no selection was active and the query covered
	// every displayed segment.
	Scoped       bool          `json:"scoped"`
	SegmentCount int           `json:"segment_count"`
	Filter       ChartFilter   `json:"filter"`
	Points       []SeriesPoint `json:"points"`
}

// SessionSummary describes a selection session.
type SessionSummary struct {
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	LastActive time.Time          `json:"last_active"`
	Geometry   GeometryFilter     `json:"geometry"`
	Chart      ChartFilter        `json:"chart"`
	Signals    int                `json:"signals"`
	Segments   int                `json:"segments"`
	Pairs      int                `json:"pairs"`
	Selection  selection.Snapshot `json:"selection"`
}

// SelectionView is the selection with the projector's outputs.
type SelectionView struct {
	selection.Snapshot
	ActiveSegmentFilter []selection.SegmentID `json:"active_segment_filter"`
	HasActiveSelection  bool                  `json:"has_active_selection"`
}

// MapSignal is a signal marker with its highlight state.
type MapSignal struct {
	ID           selection.SignalID    `json:"id"`
	Name         string                `json:"name"`
	MaintainedBy string                `json:"maintained_by"`
	Latitude     float64               `json:"latitude"`
	Longitude    float64               `json:"longitude"`
	Selected     bool                  `json:"selected"`
	Segments     []selection.SegmentID `json:"segments"`
}

// MapSegment is a road segment with its highlight state.
type MapSegment struct {
	ID            selection.SegmentID  `json:"id"`
	Bearing       string               `json:"bearing"`
	RoadName      string               `json:"road_name"`
	Miles         float64              `json:"miles"`
	Approach      bool                 `json:"approach"`
	ValidGeometry bool                 `json:"valid_geometry"`
	Selected      bool                 `json:"selected"`
	Signals       []selection.SignalID `json:"signals"`
}

// MapView is everything the map needs to render one session.
type MapView struct {
	Generation uint64       `json:"generation"`
	Signals    []MapSignal  `json:"signals"`
	Segments   []MapSegment `json:"segments"`
}
