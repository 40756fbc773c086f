// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package models

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

func TestGeometryFilter_Key(t *testing.T) {
	a := GeometryFilter{Signals: []string{"7", "3", "3", " "}, MaintainedBy: []string{"ODOT"}}
	b := GeometryFilter{Signals: []string{"3", "7"}, MaintainedBy: []string{"ODOT", "ODOT"}}
	if a.Key() != b.Key() {
		t.Errorf("equivalent filters have different keys: %q vs %q", a.Key(), b.Key())
	}

	tests := []struct {
		name string
		f    GeometryFilter
	}{
		{"empty", GeometryFilter{}},
		{"approach true", GeometryFilter{ApproachOnly: boolPtr(true)}},
		{"approach false", GeometryFilter{ApproachOnly: boolPtr(false)}},
		{"valid geometry", GeometryFilter{ValidGeometryOnly: boolPtr(true)}},
		{"signals", GeometryFilter{Signals: []string{"3"}}},
	}
	seen := map[string]string{}
	for _, tt := range tests {
		key := tt.f.Key()
		if other, dup := seen[key]; dup {
			t.Errorf("%s and %s share key %q", tt.name, other, key)
		}
		seen[key] = tt.name
	}
}

func TestGeometryFilter_NormalizedDoesNotMutate(t *testing.T) {
	in := GeometryFilter{Signals: []string{"b", "a"}}
	out := in.Normalized()

	if !slices.Equal(in.Signals, []string{"b", "a"}) {
		t.Errorf("input mutated: %v", in.Signals)
	}
	if !slices.Equal(out.Signals, []string{"a", "b"}) {
		t.Errorf("Normalized = %v", out.Signals)
	}
}

func TestChartFilter_CheckRange(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	tests := []struct {
		name    string
		f       ChartFilter
		wantErr bool
	}{
		{"empty", ChartFilter{}, false},
		{"ordered dates", ChartFilter{Start: &start, End: &end}, false},
		{"inverted dates", ChartFilter{Start: &end, End: &start}, true},
		{"open start", ChartFilter{End: &end}, false},
		{"overnight window", ChartFilter{TimeOfDayStart: "22:00", TimeOfDayEnd: "06:00"}, false},
		{"half window", ChartFilter{TimeOfDayStart: "07:00"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.CheckRange()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckRange() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRange) {
				t.Errorf("error %v does not wrap ErrInvalidRange", err)
			}
		})
	}
}

func TestChartFilter_BucketOrDefault(t *testing.T) {
	if got := (ChartFilter{}).BucketOrDefault(); got != BucketHour {
		t.Errorf("default bucket = %q, want %q", got, BucketHour)
	}
	if got := (ChartFilter{Bucket: BucketDay}).BucketOrDefault(); got != BucketDay {
		t.Errorf("bucket = %q, want %q", got, BucketDay)
	}
}
