// LOCATION: internal/store/weather.go
//
// Weather observation persistence. One independent series, not tied to
// any sensor; the engine joins it by nearest-prior instant or by
// calendar day.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// InsertWeather inserts one observation.
func (s *Store) InsertWeather(ctx context.Context, o *model.WeatherObservation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_observations (timestamp, source, temperature, humidity,
		                                  wind_speed, condition, pressure, dewpoint, heat_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.Timestamp, o.Source, o.Temperature, o.Humidity,
		o.WindSpeed, o.Condition, o.Pressure, o.Dewpoint, o.HeatIndex)
	return err
}

// Weather returns observations in [start, end], ascending by timestamp.
// Implements the engine's WeatherSource contract.
func (s *Store) Weather(ctx context.Context, start, end time.Time) ([]model.WeatherObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, source, temperature, humidity,
		       wind_speed, condition, pressure, dewpoint, heat_index
		FROM weather_observations
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query weather: %w", err)
	}
	defer rows.Close()

	return scanWeather(rows)
}

// LatestWeatherAtOrBefore returns the most recent observation at or
// before t, nil when none exists.
func (s *Store) LatestWeatherAtOrBefore(ctx context.Context, t time.Time) (*model.WeatherObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, source, temperature, humidity,
		       wind_speed, condition, pressure, dewpoint, heat_index
		FROM weather_observations
		WHERE timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, t)
	if err != nil {
		return nil, fmt.Errorf("query latest weather: %w", err)
	}
	defer rows.Close()

	obs, err := scanWeather(rows)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, nil
	}
	return &obs[0], nil
}

// LatestWeather returns the newest observation, nil when none exists.
func (s *Store) LatestWeather(ctx context.Context) (*model.WeatherObservation, error) {
	return s.LatestWeatherAtOrBefore(ctx, time.Now().UTC().Add(24*time.Hour))
}

func scanWeather(rows *sql.Rows) ([]model.WeatherObservation, error) {
	var out []model.WeatherObservation
	for rows.Next() {
		var o model.WeatherObservation
		var temp, hum, wind, press, dew, heat sql.NullFloat64
		var cond sql.NullString

		if err := rows.Scan(
			&o.Timestamp, &o.Source, &temp, &hum,
			&wind, &cond, &press, &dew, &heat,
		); err != nil {
			return nil, fmt.Errorf("scan weather: %w", err)
		}

		if temp.Valid {
			o.Temperature = &temp.Float64
		}
		if hum.Valid {
			o.Humidity = &hum.Float64
		}
		if wind.Valid {
			o.WindSpeed = &wind.Float64
		}
		if cond.Valid {
			o.Condition = &cond.String
		}
		if press.Valid {
			o.Pressure = &press.Float64
		}
		if dew.Valid {
			o.Dewpoint = &dew.Float64
		}
		if heat.Valid {
			o.HeatIndex = &heat.Float64
		}

		out = append(out, o)
	}
	return out, rows.Err()
}

// CountWeather returns the number of stored observations.
func (s *Store) CountWeather(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM weather_observations`).Scan(&count)
	return count, err
}

// DeleteWeatherBefore deletes observations older than the cutoff.
func (s *Store) DeleteWeatherBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM weather_observations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
