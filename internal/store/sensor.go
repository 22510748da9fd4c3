// LOCATION: internal/store/sensor.go
//
// Sensor bookkeeping: discovery upserts, tracking flags, zone
// assignment.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/model"
)

const sensorColumns = `id, entity_id, friendly_name, domain, device_class, unit, zone_id, is_outdoor, is_tracked`

// CreateSensor inserts a sensor and fills in its assigned ID.
func (s *Store) CreateSensor(ctx context.Context, sensor *model.Sensor) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sensors (entity_id, friendly_name, domain, device_class, unit, zone_id, is_outdoor, is_tracked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, sensor.EntityID, sensor.FriendlyName, sensor.Domain, sensor.DeviceClass,
		sensor.Unit, sensor.ZoneID, sensor.IsOutdoor, sensor.IsTracked).Scan(&sensor.ID)
	if err != nil {
		return fmt.Errorf("insert sensor: %w", err)
	}
	return nil
}

// GetSensor retrieves a sensor by ID.
func (s *Store) GetSensor(ctx context.Context, id int64) (*model.Sensor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE id = ?`, id)
	sensor, err := scanSensor(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("sensor", id)
	}
	return sensor, err
}

// GetSensorByEntityID retrieves a sensor by its Home Assistant entity ID.
func (s *Store) GetSensorByEntityID(ctx context.Context, entityID string) (*model.Sensor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE entity_id = ?`, entityID)
	sensor, err := scanSensor(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("sensor", entityID)
	}
	return sensor, err
}

// ListSensors returns all sensors ordered by entity ID.
func (s *Store) ListSensors(ctx context.Context) ([]model.Sensor, error) {
	return s.querySensors(ctx,
		`SELECT `+sensorColumns+` FROM sensors ORDER BY entity_id`)
}

// TrackedSensors returns all sensors the collector should sample.
func (s *Store) TrackedSensors(ctx context.Context) ([]model.Sensor, error) {
	return s.querySensors(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE is_tracked ORDER BY entity_id`)
}

// SensorsInZone returns the zone's member sensors.
func (s *Store) SensorsInZone(ctx context.Context, zoneID int64) ([]model.Sensor, error) {
	return s.querySensors(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE zone_id = ? ORDER BY entity_id`, zoneID)
}

// FirstTrackedClimateSensor returns the default sensor for metric
// endpoints when no sensor_id was given: the first tracked thermostat.
// Nil when none exists.
func (s *Store) FirstTrackedClimateSensor(ctx context.Context) (*model.Sensor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sensorColumns+` FROM sensors
		WHERE domain = ? AND is_tracked
		ORDER BY id
		LIMIT 1
	`, model.DomainClimate)
	sensor, err := scanSensor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sensor, err
}

// UpdateSensor updates the mutable sensor fields: friendly name, zone
// assignment, outdoor and tracking flags.
func (s *Store) UpdateSensor(ctx context.Context, sensor *model.Sensor) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sensors
		SET friendly_name = ?, zone_id = ?, is_outdoor = ?, is_tracked = ?
		WHERE id = ?
	`, sensor.FriendlyName, sensor.ZoneID, sensor.IsOutdoor, sensor.IsTracked, sensor.ID)
	if err != nil {
		return fmt.Errorf("update sensor: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("sensor", sensor.ID)
	}
	return nil
}

// UpsertDiscoveredSensor inserts a newly discovered sensor or refreshes
// the friendly name of an existing one. Returns true when the sensor
// was new.
func (s *Store) UpsertDiscoveredSensor(ctx context.Context, sensor *model.Sensor) (bool, error) {
	existing, err := s.GetSensorByEntityID(ctx, sensor.EntityID)
	if err != nil && !errors.IsNotFound(err) {
		return false, err
	}

	if existing != nil {
		_, err := s.db.ExecContext(ctx,
			`UPDATE sensors SET friendly_name = ? WHERE id = ?`,
			sensor.FriendlyName, existing.ID)
		if err != nil {
			return false, fmt.Errorf("refresh sensor: %w", err)
		}
		sensor.ID = existing.ID
		return false, nil
	}

	if err := s.CreateSensor(ctx, sensor); err != nil {
		return false, err
	}
	return true, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSensor(row rowScanner) (*model.Sensor, error) {
	var sensor model.Sensor
	var deviceClass, unit sql.NullString
	var zoneID sql.NullInt64

	err := row.Scan(
		&sensor.ID, &sensor.EntityID, &sensor.FriendlyName, &sensor.Domain,
		&deviceClass, &unit, &zoneID, &sensor.IsOutdoor, &sensor.IsTracked,
	)
	if err != nil {
		return nil, err
	}

	if deviceClass.Valid {
		sensor.DeviceClass = &deviceClass.String
	}
	if unit.Valid {
		sensor.Unit = &unit.String
	}
	if zoneID.Valid {
		sensor.ZoneID = &zoneID.Int64
	}
	return &sensor, nil
}

func (s *Store) querySensors(ctx context.Context, query string, args ...interface{}) ([]model.Sensor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sensors: %w", err)
	}
	defer rows.Close()

	var out []model.Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}
		out = append(out, *sensor)
	}
	return out, rows.Err()
}
