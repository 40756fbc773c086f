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

	"github.com/tomtom215/corridor/internal/logging"
)

// Demo corridor layout: twelve signals along one arterial, each adjacent pair
// sharing a northbound and a southbound segment, each signal owning one
// approach segment. Two extra signals cover the no-segment cases.
const (
	seedFirstSignal = 1001
	seedCorridorLen = 12
	seedXDBase      = int64(1236890000)
	seedRoad        = "High St"
)

// SeedOptions controls the generated travel-time window.
type SeedOptions struct {
	Start time.Time
	Days  int
}

// SeedXD returns the demo segment id for a corridor position. Boundary
// segments use offsets 1 (NB) and 2 (SB), approach segments offset 5.
func SeedXD(position, offset int) int64 {
	return seedXDBase + int64(position)*10 + int64(offset)
}

// Seed writes the demo corridor when the store holds no signals. It reports
// whether anything was written.
func (db *DB) Seed(ctx context.Context, opts SeedOptions) (bool, error) {
	var existing int64
	if err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM signals").Scan(&existing); err != nil {
		return false, fmt.Errorf("failed to count signals: %w", err)
	}
	if existing > 0 {
		logging.Debug().Int64("signals", existing).Msg("Store already populated, skipping seed")
		return false, nil
	}

	if opts.Days <= 0 {
		opts.Days = 14
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -opts.Days)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin seed transaction: %w", err)
	}

	if err := seedDimensions(ctx, tx); err != nil {
		rollbackQuietly(tx)
		return false, err
	}

	end := opts.Start.AddDate(0, 0, opts.Days).Add(-15 * time.Minute)
	if _, err := tx.ExecContext(ctx, seedTravelTimesSQL, timestampLiteral(opts.Start), timestampLiteral(end)); err != nil {
		rollbackQuietly(tx)
		return false, fmt.Errorf("failed to generate travel times: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}

	logging.Info().
		Time("start", opts.Start).
		Int("days", opts.Days).
		Msg("Seeded demo corridor")
	return true, nil
}

func seedDimensions(ctx context.Context, tx *sql.Tx) error {
	for i := 0; i < seedCorridorLen; i++ {
		id := fmt.Sprintf("%d", seedFirstSignal+i)
		maintainer := "City of Columbus"
		if i >= 8 {
			maintainer = "ODOT"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO signals (signal_id, name, maintained_by, latitude, longitude) VALUES (?, ?, ?, ?, ?)`,
			id, fmt.Sprintf("%s & Cross St %d", seedRoad, i+1), maintainer,
			39.95+float64(i)*0.005, -83.0); err != nil {
			return fmt.Errorf("failed to insert signal %s: %w", id, err)
		}

		approach := SeedXD(i, 5)
		if err := insertSegment(ctx, tx, approach, "EB", fmt.Sprintf("Cross St %d", i+1), 0.12, true, i != 7); err != nil {
			return err
		}
		if err := linkSegment(ctx, tx, id, approach); err != nil {
			return err
		}

		if i == seedCorridorLen-1 {
			continue
		}
		next := fmt.Sprintf("%d", seedFirstSignal+i+1)
		for offset, bearing := range map[int]string{1: "NB", 2: "SB"} {
			xd := SeedXD(i, offset)
			if err := insertSegment(ctx, tx, xd, bearing, seedRoad, 0.35, false, true); err != nil {
				return err
			}
			if err := linkSegment(ctx, tx, id, xd); err != nil {
				return err
			}
			if err := linkSegment(ctx, tx, next, xd); err != nil {
				return err
			}
		}
	}

	// 1013 is mapped with no segment; 1014 has no membership rows at all.
	for _, id := range []string{"1013", "1014"} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO signals (signal_id, name, maintained_by, latitude, longitude) VALUES (?, ?, 'ODOT', 40.02, -83.01)`,
			id, "Unmapped "+id); err != nil {
			return fmt.Errorf("failed to insert signal %s: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO signal_xd (signal_id, xd) VALUES ('1013', NULL)`); err != nil {
		return fmt.Errorf("failed to link signal 1013: %w", err)
	}
	return nil
}

func insertSegment(ctx context.Context, tx *sql.Tx, xd int64, bearing, road string, miles float64, approach, valid bool) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO xd_segments (xd, bearing, roadname, miles, approach, valid_geometry) VALUES (?, ?, ?, ?, ?, ?)`,
		xd, bearing, road, miles, approach, valid)
	if err != nil {
		return fmt.Errorf("failed to insert segment %d: %w", xd, err)
	}
	return nil
}

func linkSegment(ctx context.Context, tx *sql.Tx, signalID string, xd int64) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO signal_xd (signal_id, xd) VALUES (?, ?)`, signalID, xd); err != nil {
		return fmt.Errorf("failed to link %s to %d: %w", signalID, xd, err)
	}
	return nil
}

// seedTravelTimesSQL fills every segment at 15-minute resolution. Weekday
// peaks add 20 seconds; anomalies land on a fixed modulus of the slot.
const seedTravelTimesSQL = `
INSERT INTO travel_times (xd, ts, travel_time_seconds, speed_mph, anomaly_type)
SELECT xd, ts, tt, round(3600.0 * miles / tt, 2),
       CASE WHEN (slot + xd) % 97 = 0 THEN 'incident'
            WHEN (slot + xd) % 61 = 0 THEN 'construction'
            ELSE NULL END
FROM (
	SELECT x.xd, x.miles, g.ts,
	       CAST(epoch(g.ts) AS BIGINT) // 900 AS slot,
	       30.0 + (x.xd % 7) * 4
	         + CASE WHEN dayofweek(g.ts) BETWEEN 1 AND 5
	                 AND (hour(g.ts) BETWEEN 7 AND 8 OR hour(g.ts) BETWEEN 16 AND 17)
	                THEN 20 ELSE 0 END AS tt
	FROM xd_segments x,
	     generate_series(CAST(? AS TIMESTAMP), CAST(? AS TIMESTAMP), INTERVAL 15 MINUTE) AS g(ts)
)`
