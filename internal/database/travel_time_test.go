// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

func insertObservation(t *testing.T, db *DB, xd int64, ts string, travelTime float64, anomaly interface{}) {
	t.Helper()
	_, err := db.conn.Exec(
		`INSERT INTO travel_times (xd, ts, travel_time_seconds, speed_mph, anomaly_type) VALUES (?, CAST(? AS TIMESTAMP), ?, ?, ?)`,
		xd, ts, travelTime, 1800/travelTime, anomaly)
	if err != nil {
		t.Fatalf("insert observation: %v", err)
	}
}

// setupObservations loads a small fixed set spanning a Monday, a Tuesday
// night and a Sunday.
func setupObservations(t *testing.T) *DB {
	t.Helper()
	db := setupTestDB(t)
	insertObservation(t, db, 1, "2025-01-06 08:00:00", 60, nil)
	insertObservation(t, db, 1, "2025-01-06 08:15:00", 40, nil)
	insertObservation(t, db, 2, "2025-01-06 08:30:00", 50, "incident")
	insertObservation(t, db, 1, "2025-01-06 23:30:00", 30, nil)
	insertObservation(t, db, 3, "2025-01-07 01:00:00", 20, nil)
	insertObservation(t, db, 2, "2025-01-12 12:00:00", 80, "construction")
	return db
}

func TestTravelTimeSeries(t *testing.T) {
	db := setupObservations(t)
	jan7 := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		query       ChartQuery
		wantPoints  int
		wantSamples int64
	}{
		{"unscoped hourly", ChartQuery{}, 4, 6},
		{"scoped", ChartQuery{Restrict: true, Segments: []selection.SegmentID{1}}, 2, 3},
		{"scoped to nothing", ChartQuery{Restrict: true}, 0, 0},
		{"daily", ChartQuery{Filter: models.ChartFilter{Bucket: models.BucketDay}}, 3, 6},
		{"quarter hour", ChartQuery{Filter: models.ChartFilter{Bucket: models.Bucket15Min}}, 6, 6},
		{"sunday only", ChartQuery{Filter: models.ChartFilter{DaysOfWeek: []int{0}}}, 1, 1},
		{"morning window", ChartQuery{Filter: models.ChartFilter{TimeOfDayStart: "08:00", TimeOfDayEnd: "09:00"}}, 1, 3},
		{"overnight window", ChartQuery{Filter: models.ChartFilter{TimeOfDayStart: "23:00", TimeOfDayEnd: "02:00"}}, 2, 2},
		{"empty window", ChartQuery{Filter: models.ChartFilter{TimeOfDayStart: "08:00", TimeOfDayEnd: "08:00"}}, 4, 6},
		{"incidents", ChartQuery{Filter: models.ChartFilter{AnomalyTypes: []string{"incident"}}}, 1, 1},
		{"from date", ChartQuery{Filter: models.ChartFilter{Start: &jan7}}, 2, 2},
		{"until date", ChartQuery{Filter: models.ChartFilter{End: &jan7}}, 2, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := db.TravelTimeSeries(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("TravelTimeSeries: %v", err)
			}
			if len(points) != tt.wantPoints {
				t.Fatalf("points = %d, want %d: %+v", len(points), tt.wantPoints, points)
			}
			var samples int64
			for i, p := range points {
				samples += p.Samples
				if i > 0 && !points[i-1].Bucket.Before(p.Bucket) {
					t.Errorf("buckets not ascending at %d", i)
				}
			}
			if samples != tt.wantSamples {
				t.Errorf("samples = %d, want %d", samples, tt.wantSamples)
			}
		})
	}
}

func TestTravelTimeSeries_Aggregates(t *testing.T) {
	db := setupObservations(t)

	points, err := db.TravelTimeSeries(context.Background(), ChartQuery{})
	if err != nil {
		t.Fatalf("TravelTimeSeries: %v", err)
	}
	first := points[0]
	if want := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC); !first.Bucket.Equal(want) {
		t.Errorf("bucket = %v, want %v", first.Bucket, want)
	}
	if first.TravelTimeSeconds != 50 {
		t.Errorf("avg travel time = %v, want 50", first.TravelTimeSeconds)
	}
	if first.Segments != 2 {
		t.Errorf("segments = %d, want 2", first.Segments)
	}
	if first.Anomalies != 1 {
		t.Errorf("anomalies = %d, want 1", first.Anomalies)
	}
}

func TestTravelTimeSeries_InvalidFilter(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name   string
		filter models.ChartFilter
	}{
		{"bucket", models.ChartFilter{Bucket: "5m"}},
		{"time of day", models.ChartFilter{TimeOfDayStart: "25:00", TimeOfDayEnd: "01:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.TravelTimeSeries(context.Background(), ChartQuery{Filter: tt.filter}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTravelTimeSeries_SeededCorridor(t *testing.T) {
	db := setupSeededDB(t, 7)

	points, err := db.TravelTimeSeries(context.Background(), ChartQuery{
		Restrict: true,
		Segments: []selection.SegmentID{selection.SegmentID(SeedXD(0, 1))},
		Filter:   models.ChartFilter{Bucket: models.BucketDay},
	})
	if err != nil {
		t.Fatalf("TravelTimeSeries: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("points = %d, want 7", len(points))
	}
	for _, p := range points {
		if p.Samples != 96 || p.Segments != 1 {
			t.Errorf("%v: samples=%d segments=%d", p.Bucket, p.Samples, p.Segments)
		}
	}
	// Weekday peaks make Monday slower than Sunday.
	if points[0].TravelTimeSeconds <= points[6].TravelTimeSeconds {
		t.Errorf("monday avg %v not above sunday avg %v", points[0].TravelTimeSeconds, points[6].TravelTimeSeconds)
	}
}

func TestTravelTimeSeries_GeometryRestriction(t *testing.T) {
	db := setupSeededDB(t, 1)

	tests := []struct {
		name         string
		geometry     models.GeometryFilter
		wantSegments int64
	}{
		{"unfiltered", models.GeometryFilter{}, 34},
		{"maintainer", models.GeometryFilter{MaintainedBy: []string{"ODOT"}}, 12},
		{"without approaches", models.GeometryFilter{ApproachOnly: boolPtr(false)}, 22},
		{"unknown signal", models.GeometryFilter{Signals: []string{"9999"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geometry := tt.geometry
			points, err := db.TravelTimeSeries(context.Background(), ChartQuery{
				Geometry: &geometry,
				Filter:   models.ChartFilter{Bucket: models.BucketDay},
			})
			if err != nil {
				t.Fatalf("TravelTimeSeries: %v", err)
			}
			if tt.wantSegments == 0 {
				if len(points) != 0 {
					t.Errorf("points = %+v, want none", points)
				}
				return
			}
			if len(points) != 1 {
				t.Fatalf("points = %d, want 1", len(points))
			}
			if points[0].Segments != tt.wantSegments {
				t.Errorf("segments = %d, want %d", points[0].Segments, tt.wantSegments)
			}
		})
	}
}

func TestAnomalyTypes(t *testing.T) {
	db := setupObservations(t)

	types, err := db.AnomalyTypes(context.Background())
	if err != nil {
		t.Fatalf("AnomalyTypes: %v", err)
	}
	if len(types) != 2 || types[0] != "construction" || types[1] != "incident" {
		t.Errorf("types = %v", types)
	}
}
