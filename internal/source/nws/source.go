// LOCATION: internal/source/nws/source.go
//
// Collector source for NWS observations. The station ID is resolved
// once from coordinates and persisted as a setting so later polls skip
// resolution.

package nws

import (
	"context"
	"strconv"
	"time"

	"github.com/77degrees/climate-analyzer/internal/logging"
	"github.com/77degrees/climate-analyzer/internal/model"
	"github.com/77degrees/climate-analyzer/internal/store"
)

var log = logging.Component("nws")

// Store is the slice of the database the source needs.
type Store interface {
	GetSettingOr(ctx context.Context, key, fallback string) string
	SetSetting(ctx context.Context, key, value string) error
	InsertWeather(ctx context.Context, obs *model.WeatherObservation) error
	LatestWeather(ctx context.Context) (*model.WeatherObservation, error)
}

// WeatherSource polls the configured station for observations.
type WeatherSource struct {
	store    Store
	client   *Client
	interval time.Duration

	// Fallback coordinates when no setting overrides them.
	lat, lon float64
}

// NewWeatherSource creates the weather poll source.
func NewWeatherSource(st Store, client *Client, interval time.Duration, lat, lon float64) *WeatherSource {
	return &WeatherSource{
		store:    st,
		client:   client,
		interval: interval,
		lat:      lat,
		lon:      lon,
	}
}

func (s *WeatherSource) Name() string            { return "nws-weather" }
func (s *WeatherSource) Interval() time.Duration { return s.interval }

// Poll fetches the latest observation and stores it, skipping
// duplicates when the station hasn't published a new one since the
// last poll.
func (s *WeatherSource) Poll(ctx context.Context) (int, error) {
	stationID, err := s.stationID(ctx)
	if err != nil {
		return 0, err
	}

	obs, err := s.client.LatestObservation(ctx, stationID)
	if err != nil {
		return 0, err
	}
	if obs == nil {
		log.Debug("station has no observations", "station", stationID)
		return 0, nil
	}

	// Stations publish roughly every 20 minutes; polls in between see
	// the same observation again.
	last, err := s.store.LatestWeather(ctx)
	if err != nil {
		return 0, err
	}
	if last != nil && last.Timestamp.Equal(obs.Timestamp) {
		return 0, nil
	}

	if err := s.store.InsertWeather(ctx, obs); err != nil {
		return 0, err
	}

	temp := 0.0
	if obs.Temperature != nil {
		temp = *obs.Temperature
	}
	log.Info("collected observation", "station", stationID, "temperature", temp)
	return 1, nil
}

// stationID returns the configured station, resolving and persisting it
// from coordinates on first use.
func (s *WeatherSource) stationID(ctx context.Context) (string, error) {
	if id := s.store.GetSettingOr(ctx, store.SettingNWSStationID, ""); id != "" {
		return id, nil
	}

	lat := s.coordSetting(ctx, store.SettingNWSLat, s.lat)
	lon := s.coordSetting(ctx, store.SettingNWSLon, s.lon)

	id, err := s.client.ResolveStation(ctx, lat, lon)
	if err != nil {
		return "", err
	}

	if err := s.store.SetSetting(ctx, store.SettingNWSStationID, id); err != nil {
		return "", err
	}
	log.Info("resolved station", "station", id, "lat", lat, "lon", lon)
	return id, nil
}

func (s *WeatherSource) coordSetting(ctx context.Context, key string, fallback float64) float64 {
	raw := s.store.GetSettingOr(ctx, key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
