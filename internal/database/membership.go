// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

// MembershipRecords returns the signal/segment membership of every signal
// the geometry filter displays. Signals without a surviving segment produce a
// single record with a nil Segment so they still appear on the map.
// Attributes carry a models.SegmentAttributes.
func (db *DB) MembershipRecords(ctx context.Context, f models.GeometryFilter) (records []selection.MembershipRecord, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "signal_xd", time.Since(start), err) }()

	segConds, segArgs := buildSegmentConditions(f)
	sigConds, sigArgs := buildSignalConditions(f)

	query := fmt.Sprintf(`
		SELECT s.signal_id, s.name, s.maintained_by,
		       COALESCE(s.latitude, 0), COALESCE(s.longitude, 0),
		       m.xd, m.bearing, m.roadname, m.miles, m.approach, m.valid_geometry
		FROM signals s
		LEFT JOIN (
			SELECT sx.signal_id, x.xd, x.bearing, x.roadname, x.miles, x.approach, x.valid_geometry
			FROM signal_xd sx
			JOIN xd_segments x ON x.xd = sx.xd
			WHERE %s
		) m ON m.signal_id = s.signal_id
		WHERE %s
		ORDER BY s.signal_id, m.xd`, joinWhere(segConds), joinWhere(sigConds))

	args := make([]interface{}, 0, len(segArgs)+len(sigArgs))
	args = append(args, segArgs...)
	args = append(args, sigArgs...)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query membership: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			signalID string
			attrs    models.SegmentAttributes
			xd       sql.NullInt64
			bearing  sql.NullString
			roadname sql.NullString
			miles    sql.NullFloat64
			approach sql.NullBool
			valid    sql.NullBool
		)
		if err := rows.Scan(&signalID, &attrs.SignalName, &attrs.MaintainedBy,
			&attrs.Latitude, &attrs.Longitude,
			&xd, &bearing, &roadname, &miles, &approach, &valid); err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}

		rec := selection.MembershipRecord{Signal: selection.SignalID(signalID)}
		if xd.Valid {
			rec.Segment = selection.Seg(selection.SegmentID(xd.Int64))
			attrs.Bearing = bearing.String
			attrs.RoadName = roadname.String
			attrs.Miles = miles.Float64
			attrs.Approach = approach.Bool
			attrs.ValidGeometry = valid.Bool
		}
		rec.Attributes = attrs
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("membership rows: %w", err)
	}
	return records, nil
}
