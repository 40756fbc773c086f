// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package models

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"
)

// GeometryFilter holds the filters that change which signals and segments
// are displayed. Any change to it invalidates the membership index and the
// held selection.
type GeometryFilter struct {
	// Signals limits the map to these signal ids. Empty means all signals.
	Signals []string `json:"signals,omitempty" validate:"omitempty,max=2000,dive,required,max=64"`

	// MaintainedBy limits the map to signals maintained by these authorities.
	MaintainedBy []string `json:"maintained_by,omitempty" validate:"omitempty,max=64,dive,required,max=128"`

	// ApproachOnly keeps (true) or drops (false) approach segments; nil keeps both.
	ApproachOnly *bool `json:"approach_only,omitempty"`

	// ValidGeometryOnly drops segments without usable geometry when true.
	ValidGeometryOnly *bool `json:"valid_geometry_only,omitempty"`
}

// Normalized returns a copy with list fields sorted and deduplicated.
func (f GeometryFilter) Normalized() GeometryFilter {
	f.Signals = normalizeStrings(f.Signals)
	f.MaintainedBy = normalizeStrings(f.MaintainedBy)
	return f
}

// Key returns a canonical string identifying the displayed entity set the
// filter selects. Filters that differ only in list order share a key.
func (f GeometryFilter) Key() string {
	n := f.Normalized()
	var b strings.Builder
	b.WriteString("signals=")
	b.WriteString(strings.Join(n.Signals, ","))
	b.WriteString("|maintained_by=")
	b.WriteString(strings.Join(n.MaintainedBy, ","))
	b.WriteString("|approach=")
	b.WriteString(tristate(n.ApproachOnly))
	b.WriteString("|valid=")
	b.WriteString(tristate(n.ValidGeometryOnly))
	return b.String()
}

func tristate(v *bool) string {
	if v == nil {
		return "*"
	}
	return strconv.FormatBool(*v)
}

func normalizeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Chart bucket widths.
const (
	Bucket15Min = "15m"
	BucketHour  = "1h"
	BucketDay   = "1d"
)

// ChartFilter holds the filters that only affect chart data. Changing it
// triggers a refetch but leaves the selection and index untouched.
type ChartFilter struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`

	// TimeOfDayStart and TimeOfDayEnd bound a daily window as "HH:MM". A
	// start later than the end wraps past midnight.
	TimeOfDayStart string `json:"time_of_day_start,omitempty" validate:"omitempty,timeofday"`
	TimeOfDayEnd   string `json:"time_of_day_end,omitempty" validate:"omitempty,timeofday"`

	// DaysOfWeek uses 0 for Sunday through 6 for Saturday.
	DaysOfWeek []int `json:"days_of_week,omitempty" validate:"omitempty,max=7,dive,min=0,max=6"`

	AnomalyTypes []string `json:"anomaly_types,omitempty" validate:"omitempty,max=16,dive,required,max=64"`

	Bucket string `json:"bucket,omitempty" validate:"omitempty,oneof=15m 1h 1d"`
}

// ErrInvalidRange is returned by CheckRange for inverted date ranges and for
// a time-of-day window with only one bound.
var ErrInvalidRange = errors.New("invalid range")

// CheckRange validates relationships between fields that tag validation
// cannot express.
func (f ChartFilter) CheckRange() error {
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return errors.Join(ErrInvalidRange, errors.New("end is before start"))
	}
	if (f.TimeOfDayStart == "") != (f.TimeOfDayEnd == "") {
		return errors.Join(ErrInvalidRange, errors.New("time-of-day window needs both bounds"))
	}
	return nil
}

// BucketOrDefault returns Bucket, or hourly when unset.
func (f ChartFilter) BucketOrDefault() string {
	if f.Bucket == "" {
		return BucketHour
	}
	return f.Bucket
}
