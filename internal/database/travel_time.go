// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

// ChartQuery describes one travel-time aggregation.
type ChartQuery struct {
	// Segments restricts the query when Restrict is set. An empty list with
	// Restrict set matches nothing.
	Segments []selection.SegmentID
	Restrict bool

	// Geometry, when set and Restrict is not, limits the query to the
	// segments the geometry filter displays.
	Geometry *models.GeometryFilter

	Filter models.ChartFilter
}

// TravelTimeSeries aggregates travel times into time buckets.
func (db *DB) TravelTimeSeries(ctx context.Context, q ChartQuery) (points []models.SeriesPoint, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("aggregate", "travel_times", time.Since(start), err) }()

	interval, ok := bucketIntervals[q.Filter.BucketOrDefault()]
	if !ok {
		return nil, fmt.Errorf("unsupported bucket %q", q.Filter.Bucket)
	}
	conditions, args, err := buildChartConditions(q)
	if err != nil {
		return nil, fmt.Errorf("invalid chart filter: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT time_bucket(%s, t.ts) AS bucket,
		       avg(t.travel_time_seconds),
		       COALESCE(avg(t.speed_mph), 0),
		       count(*),
		       count(DISTINCT t.xd),
		       count(t.anomaly_type)
		FROM travel_times t
		WHERE %s
		GROUP BY bucket
		ORDER BY bucket`, interval, joinWhere(conditions))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query travel times: %w", err)
	}
	defer closeWithLog(rows, "rows")

	points = make([]models.SeriesPoint, 0, 64)
	for rows.Next() {
		var p models.SeriesPoint
		if err := rows.Scan(&p.Bucket, &p.TravelTimeSeconds, &p.SpeedMPH, &p.Samples, &p.Segments, &p.Anomalies); err != nil {
			return nil, fmt.Errorf("failed to scan travel time row: %w", err)
		}
		p.Bucket = p.Bucket.UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("travel time rows: %w", err)
	}
	return points, nil
}

// AnomalyTypes lists the distinct anomaly labels present in the data.
func (db *DB) AnomalyTypes(ctx context.Context) (types []string, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "travel_times", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT anomaly_type FROM travel_times WHERE anomaly_type IS NOT NULL ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomaly types: %w", err)
	}
	defer closeWithLog(rows, "rows")

	types = []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
