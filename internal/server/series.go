// LOCATION: internal/server/series.go
//
// Raw series access: readings grouped per sensor and the outdoor
// observation history.

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/model"
)

// SensorReadings is one sensor's slice of the readings response.
type SensorReadings struct {
	SensorID     int64          `json:"sensor_id"`
	EntityID     string         `json:"entity_id"`
	FriendlyName string         `json:"friendly_name"`
	ZoneID       *int64         `json:"zone_id"`
	ZoneColor    *string        `json:"zone_color"`
	IsOutdoor    bool           `json:"is_outdoor"`
	Readings     []model.Sample `json:"readings"`
}

// handleReadings returns readings for tracked sensors in a window,
// optionally filtered by sensor_ids (comma-separated) or device_class.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, end, err := timeWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}

	sensors, err := s.store.TrackedSensors(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	if raw := r.URL.Query().Get("sensor_ids"); raw != "" {
		wanted := make(map[int64]bool)
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				respondError(w, errors.NewValidation("sensor_ids", "must be comma-separated integers"))
				return
			}
			wanted[id] = true
		}
		sensors = filterSensors(sensors, func(sn *model.Sensor) bool { return wanted[sn.ID] })
	}
	if dc := r.URL.Query().Get("device_class"); dc != "" {
		sensors = filterSensors(sensors, func(sn *model.Sensor) bool {
			return sn.DeviceClass != nil && *sn.DeviceClass == dc
		})
	}

	// Zone colors are shared across sensors in a zone; fetch once.
	zoneColors := make(map[int64]string)
	zones, err := s.store.ListZones(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	for _, z := range zones {
		zoneColors[z.ID] = z.Color
	}

	out := make([]SensorReadings, 0, len(sensors))
	for i := range sensors {
		sensor := &sensors[i]
		readings, err := s.store.Readings(ctx, sensor.ID, start, end)
		if err != nil {
			respondError(w, err)
			return
		}

		sr := SensorReadings{
			SensorID:     sensor.ID,
			EntityID:     sensor.EntityID,
			FriendlyName: sensor.FriendlyName,
			ZoneID:       sensor.ZoneID,
			IsOutdoor:    sensor.IsOutdoor,
			Readings:     readings,
		}
		if sensor.ZoneID != nil {
			if color, ok := zoneColors[*sensor.ZoneID]; ok {
				sr.ZoneColor = &color
			}
		}
		out = append(out, sr)
	}

	respondJSON(w, http.StatusOK, out)
}

// LatestReading is one row of the latest-readings response.
type LatestReading struct {
	SensorID     int64   `json:"sensor_id"`
	EntityID     string  `json:"entity_id"`
	FriendlyName string  `json:"friendly_name"`
	Domain       string  `json:"domain"`
	ZoneID       *int64  `json:"zone_id"`
	IsOutdoor    bool    `json:"is_outdoor"`
	model.Sample         // timestamp, value, hvac fields
}

// handleLatestReadings returns the newest reading per tracked sensor.
// Sensors with no readings yet are omitted.
func (s *Server) handleLatestReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sensors, err := s.store.TrackedSensors(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]LatestReading, 0, len(sensors))
	for i := range sensors {
		sensor := &sensors[i]
		reading, err := s.store.LatestReading(ctx, sensor.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		if reading == nil {
			continue
		}
		out = append(out, LatestReading{
			SensorID:     sensor.ID,
			EntityID:     sensor.EntityID,
			FriendlyName: sensor.FriendlyName,
			Domain:       sensor.Domain,
			ZoneID:       sensor.ZoneID,
			IsOutdoor:    sensor.IsOutdoor,
			Sample:       *reading,
		})
	}

	respondJSON(w, http.StatusOK, out)
}

// handleCurrentWeather returns the most recent observation, or null.
func (s *Server) handleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	obs, err := s.store.LatestWeather(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, obs)
}

// handleWeatherHistory returns observations in a window.
func (s *Server) handleWeatherHistory(w http.ResponseWriter, r *http.Request) {
	start, end, err := timeWindow(r)
	if err != nil {
		respondError(w, err)
		return
	}

	obs, err := s.store.Weather(r.Context(), start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	if obs == nil {
		obs = []model.WeatherObservation{}
	}
	respondJSON(w, http.StatusOK, obs)
}

func filterSensors(in []model.Sensor, keep func(*model.Sensor) bool) []model.Sensor {
	out := in[:0:0]
	for i := range in {
		if keep(&in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}
