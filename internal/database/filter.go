// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/validation"
)

// bucketIntervals whitelists the interval literals time_bucket accepts.
var bucketIntervals = map[string]string{
	models.Bucket15Min: "INTERVAL 15 MINUTE",
	models.BucketHour:  "INTERVAL 1 HOUR",
	models.BucketDay:   "INTERVAL 1 DAY",
}

// appendInClause adds "column IN (?, ...)" with one placeholder per value.
// Empty value lists add nothing.
func appendInClause[T any](conditions []string, args []interface{}, column string, values []T) ([]string, []interface{}) {
	if len(values) == 0 {
		return conditions, args
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args = append(args, v)
	}
	conditions = append(conditions, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return conditions, args
}

// joinWhere renders conditions as a WHERE body, anchored on 1=1 so an empty
// list stays valid SQL.
func joinWhere(conditions []string) string {
	if len(conditions) == 0 {
		return "1=1"
	}
	return "1=1 AND " + strings.Join(conditions, " AND ")
}

// buildSignalConditions returns the signal-level predicates of a geometry
// filter, written against the alias s.
func buildSignalConditions(f models.GeometryFilter) ([]string, []interface{}) {
	f = f.Normalized()
	var conditions []string
	var args []interface{}
	conditions, args = appendInClause(conditions, args, "s.signal_id", f.Signals)
	conditions, args = appendInClause(conditions, args, "s.maintained_by", f.MaintainedBy)
	return conditions, args
}

// buildSegmentConditions returns the segment-level predicates of a geometry
// filter, written against the alias x.
func buildSegmentConditions(f models.GeometryFilter) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	if f.ApproachOnly != nil {
		conditions = append(conditions, "x.approach = ?")
		args = append(args, *f.ApproachOnly)
	}
	if f.ValidGeometryOnly != nil && *f.ValidGeometryOnly {
		conditions = append(conditions, "x.valid_geometry = TRUE")
	}
	return conditions, args
}

// geometrySegmentsClause restricts t.xd to the segments a geometry filter
// displays, matching the segment side of MembershipRecords.
func geometrySegmentsClause(f models.GeometryFilter, args []interface{}) (string, []interface{}) {
	segConds, segArgs := buildSegmentConditions(f)
	sigConds, sigArgs := buildSignalConditions(f)
	args = append(args, segArgs...)
	args = append(args, sigArgs...)
	return fmt.Sprintf(`t.xd IN (
		SELECT sx.xd
		FROM signal_xd sx
		JOIN xd_segments x ON x.xd = sx.xd
		JOIN signals s ON s.signal_id = sx.signal_id
		WHERE %s AND %s)`, joinWhere(segConds), joinWhere(sigConds)), args
}

// buildChartConditions returns the travel_times predicates for a chart
// query, written against the alias t.
func buildChartConditions(q ChartQuery) ([]string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	switch {
	case q.Restrict && len(q.Segments) == 0:
		conditions = append(conditions, "1=0")
	case q.Restrict:
		ids := make([]int64, len(q.Segments))
		for i, id := range q.Segments {
			ids[i] = int64(id)
		}
		conditions, args = appendInClause(conditions, args, "t.xd", ids)
	case q.Geometry != nil:
		var cond string
		cond, args = geometrySegmentsClause(*q.Geometry, args)
		conditions = append(conditions, cond)
	}

	f := q.Filter
	if f.Start != nil {
		conditions = append(conditions, "t.ts >= CAST(? AS TIMESTAMP)")
		args = append(args, timestampLiteral(*f.Start))
	}
	if f.End != nil {
		conditions = append(conditions, "t.ts <= CAST(? AS TIMESTAMP)")
		args = append(args, timestampLiteral(*f.End))
	}

	conditions, args = appendInClause(conditions, args, "dayofweek(t.ts)", f.DaysOfWeek)

	if f.TimeOfDayStart != "" && f.TimeOfDayEnd != "" {
		start, err := validation.ParseTimeOfDay(f.TimeOfDayStart)
		if err != nil {
			return nil, nil, err
		}
		end, err := validation.ParseTimeOfDay(f.TimeOfDayEnd)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case start < end:
			conditions = append(conditions, "(CAST(t.ts AS TIME) >= CAST(? AS TIME) AND CAST(t.ts AS TIME) < CAST(? AS TIME))")
			args = append(args, clock(start), clock(end))
		case start > end:
			// Window wraps past midnight.
			conditions = append(conditions, "(CAST(t.ts AS TIME) >= CAST(? AS TIME) OR CAST(t.ts AS TIME) < CAST(? AS TIME))")
			args = append(args, clock(start), clock(end))
		}
	}

	conditions, args = appendInClause(conditions, args, "t.anomaly_type", f.AnomalyTypes)
	return conditions, args, nil
}

// clock renders an offset from midnight as a TIME literal.
func clock(d time.Duration) string {
	m := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d:00", m/60, m%60)
}

// timestampLiteral renders t in UTC for CAST(? AS TIMESTAMP). Timestamps are
// stored without zone, as UTC.
func timestampLiteral(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
