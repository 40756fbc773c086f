// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordToggle(t *testing.T) {
	before := testutil.ToFloat64(SelectionToggles.WithLabelValues("signal"))

	RecordToggle("signal", 3)
	RecordToggle("signal", 0)

	if got := testutil.ToFloat64(SelectionToggles.WithLabelValues("signal")) - before; got != 2 {
		t.Errorf("signal toggles increased by %v, want 2", got)
	}
}

func TestRecordIndexBuild(t *testing.T) {
	before := testutil.ToFloat64(IndexRebuilds.WithLabelValues("geometry_filter"))

	RecordIndexBuild("geometry_filter", time.Millisecond, 42)

	if got := testutil.ToFloat64(IndexRebuilds.WithLabelValues("geometry_filter")) - before; got != 1 {
		t.Errorf("rebuilds increased by %v, want 1", got)
	}
	if got := testutil.ToFloat64(IndexPairs); got != 42 {
		t.Errorf("IndexPairs = %v, want 42", got)
	}
}

func TestRecordChartLoad(t *testing.T) {
	tests := []struct {
		outcome string
		scoped  bool
	}{
		{"ok", true},
		{"stale", true},
		{"unavailable", false},
	}
	for _, tt := range tests {
		before := testutil.ToFloat64(ChartLoads.WithLabelValues(tt.outcome))
		RecordChartLoad(tt.outcome, tt.scoped, 10*time.Millisecond)
		if got := testutil.ToFloat64(ChartLoads.WithLabelValues(tt.outcome)) - before; got != 1 {
			t.Errorf("%s loads increased by %v, want 1", tt.outcome, got)
		}
	}
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "travel_times"))

	RecordDBQuery("SELECT", "travel_times", 5*time.Millisecond, nil)
	RecordDBQuery("SELECT", "travel_times", 5*time.Millisecond, errors.New("connection refused"))

	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "travel_times")) - before; got != 1 {
		t.Errorf("query errors increased by %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/sessions", "201"))

	RecordAPIRequest("POST", "/api/v1/sessions", "201", 3*time.Millisecond)

	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/sessions", "201")) - before; got != 1 {
		t.Errorf("requests increased by %v, want 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)

	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active requests changed by %v, want 1", got)
	}
}
