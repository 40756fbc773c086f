// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package database

import (
	"context"
	"fmt"
)

// Tables:
//   - signals: one row per traffic signal
//   - xd_segments: one row per XD road segment with its geometry flags
//   - signal_xd: many-to-many membership; a NULL xd marks a signal with no
//     assigned segments
//   - travel_times: per-segment observations used by charts
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS signals (
		signal_id     VARCHAR PRIMARY KEY,
		name          VARCHAR NOT NULL DEFAULT '',
		maintained_by VARCHAR NOT NULL DEFAULT '',
		latitude      DOUBLE,
		longitude     DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS xd_segments (
		xd             BIGINT PRIMARY KEY,
		bearing        VARCHAR NOT NULL DEFAULT '',
		roadname       VARCHAR NOT NULL DEFAULT '',
		miles          DOUBLE NOT NULL DEFAULT 0,
		approach       BOOLEAN NOT NULL DEFAULT FALSE,
		valid_geometry BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS signal_xd (
		signal_id VARCHAR NOT NULL,
		xd        BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS travel_times (
		xd                  BIGINT NOT NULL,
		ts                  TIMESTAMP NOT NULL,
		travel_time_seconds DOUBLE NOT NULL,
		speed_mph           DOUBLE,
		anomaly_type        VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signal_xd_signal ON signal_xd (signal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_travel_times_xd_ts ON travel_times (xd, ts)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
