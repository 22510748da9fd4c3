// LOCATION: internal/store/setting.go
//
// Key/value app settings. Runtime-changeable configuration (provider
// URLs, tokens, resolved station IDs) lives here; file config only
// seeds defaults.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/77degrees/climate-analyzer/internal/errors"
)

// Well-known setting keys.
const (
	SettingHAURL         = "ha_url"
	SettingHAToken       = "ha_token"
	SettingNWSLat        = "nws_lat"
	SettingNWSLon        = "nws_lon"
	SettingNWSStationID  = "nws_station_id"
	SettingHeatmapOffset = "heatmap_utc_offset"
)

// GetSetting returns a setting's value, or errors.ErrSettingNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%s: %w", key, errors.ErrSettingNotFound)
	}
	return value, err
}

// GetSettingOr returns a setting's value or the fallback when unset.
func (s *Store) GetSettingOr(ctx context.Context, key, fallback string) string {
	value, err := s.GetSetting(ctx, key)
	if err != nil {
		return fallback
	}
	return value
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// AllSettings returns every stored setting.
func (s *Store) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}
