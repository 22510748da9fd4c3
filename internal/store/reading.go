// LOCATION: internal/store/reading.go
//
// Reading persistence and the window queries that feed the analytics
// engine. Inserts use multi-row VALUES in chunks to keep collector
// flushes cheap on large batches.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// maxReadingsPerInsert bounds parameters per statement.
// 8 columns * 100 rows = 800 parameters, conservative for DuckDB.
const maxReadingsPerInsert = 100

// InsertReading inserts a single reading.
func (s *Store) InsertReading(ctx context.Context, r *model.Sample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (sensor_id, timestamp, value, hvac_action,
		                      hvac_mode, setpoint_heat, setpoint_cool, fan_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.SensorID, r.Timestamp, r.Value, r.HVACAction,
		r.HVACMode, r.SetpointHeat, r.SetpointCool, r.FanMode)
	return err
}

// InsertReadingsBatch inserts multiple readings efficiently using
// multi-row INSERT, chunked inside one transaction for large batches.
func (s *Store) InsertReadingsBatch(ctx context.Context, readings []model.Sample) error {
	if len(readings) == 0 {
		return nil
	}

	if len(readings) <= maxReadingsPerInsert {
		query, args := buildReadingsInsert(readings)
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	}

	return s.TransactionContext(ctx, func(tx *sql.Tx) error {
		for i := 0; i < len(readings); i += maxReadingsPerInsert {
			end := i + maxReadingsPerInsert
			if end > len(readings) {
				end = len(readings)
			}
			query, args := buildReadingsInsert(readings[i:end])
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

// buildReadingsInsert builds the multi-row INSERT statement.
func buildReadingsInsert(readings []model.Sample) (string, []interface{}) {
	const columnsPerRow = 8

	args := make([]interface{}, 0, len(readings)*columnsPerRow)

	var query strings.Builder
	query.Grow(160 + len(readings)*20)
	query.WriteString(`INSERT INTO readings (sensor_id, timestamp, value, hvac_action,
		hvac_mode, setpoint_heat, setpoint_cool, fan_mode) VALUES `)

	for i := range readings {
		if i > 0 {
			query.WriteByte(',')
		}
		query.WriteString("(?,?,?,?,?,?,?,?)")

		r := &readings[i]
		args = append(args,
			r.SensorID,
			r.Timestamp,
			r.Value,
			r.HVACAction,
			r.HVACMode,
			r.SetpointHeat,
			r.SetpointCool,
			r.FanMode,
		)
	}

	return query.String(), args
}

// =============================================================================
// Window Queries
// =============================================================================

// Readings returns the sensor's readings in [start, end], ascending by
// timestamp. Implements the engine's SampleSource contract.
func (s *Store) Readings(ctx context.Context, sensorID int64, start, end time.Time) ([]model.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sensor_id, timestamp, value, hvac_action,
		       hvac_mode, setpoint_heat, setpoint_cool, fan_mode
		FROM readings
		WHERE sensor_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp
	`, sensorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// LatestReading returns the sensor's most recent reading, nil when the
// sensor has no readings. Implements the engine's LatestSource contract.
func (s *Store) LatestReading(ctx context.Context, sensorID int64) (*model.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sensor_id, timestamp, value, hvac_action,
		       hvac_mode, setpoint_heat, setpoint_cool, fan_mode
		FROM readings
		WHERE sensor_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, sensorID)
	if err != nil {
		return nil, fmt.Errorf("query latest reading: %w", err)
	}
	defer rows.Close()

	readings, err := scanReadings(rows)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

// scanReadings converts rows to samples, mapping SQL NULLs to nil
// optionals.
func scanReadings(rows *sql.Rows) ([]model.Sample, error) {
	var out []model.Sample
	for rows.Next() {
		var r model.Sample
		var value, spHeat, spCool sql.NullFloat64
		var action, mode, fan sql.NullString

		if err := rows.Scan(
			&r.SensorID, &r.Timestamp, &value, &action,
			&mode, &spHeat, &spCool, &fan,
		); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}

		if value.Valid {
			r.Value = &value.Float64
		}
		if action.Valid {
			r.HVACAction = &action.String
		}
		if mode.Valid {
			r.HVACMode = &mode.String
		}
		if spHeat.Valid {
			r.SetpointHeat = &spHeat.Float64
		}
		if spCool.Valid {
			r.SetpointCool = &spCool.Float64
		}
		if fan.Valid {
			r.FanMode = &fan.String
		}

		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// Housekeeping
// =============================================================================

// CountReadings returns the number of readings for a sensor. sensorID 0
// counts all readings.
func (s *Store) CountReadings(ctx context.Context, sensorID int64) (int64, error) {
	var count int64
	var err error
	if sensorID > 0 {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM readings WHERE sensor_id = ?`, sensorID).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count)
	}
	return count, err
}

// ReadingRange returns the oldest and newest reading timestamps across
// all sensors. Zero times when the table is empty.
func (s *Store) ReadingRange(ctx context.Context) (oldest, newest time.Time, err error) {
	var o, n sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT MIN(timestamp), MAX(timestamp) FROM readings`).Scan(&o, &n)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if o.Valid {
		oldest = o.Time
	}
	if n.Valid {
		newest = n.Time
	}
	return oldest, newest, nil
}

// ReadingsBefore returns all readings older than the cutoff, ascending
// by timestamp. Used by retention to archive before deleting.
func (s *Store) ReadingsBefore(ctx context.Context, cutoff time.Time) ([]model.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sensor_id, timestamp, value, hvac_action,
		       hvac_mode, setpoint_heat, setpoint_cool, fan_mode
		FROM readings
		WHERE timestamp < ?
		ORDER BY timestamp
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query readings before: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// DeleteReadingsBefore deletes readings older than the cutoff, returning
// the number of rows removed. Used by retention after archiving.
func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM readings WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
