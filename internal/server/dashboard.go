// LOCATION: internal/server/dashboard.go
//
// The dashboard endpoint aggregates current conditions: latest outdoor
// observation, per-thermostat status rows, and per-zone rollup cards.

package server

import (
	"math"
	"net/http"

	"github.com/77degrees/climate-analyzer/internal/engine"
	"github.com/77degrees/climate-analyzer/internal/model"
)

// DashboardStats is the headline numbers card.
type DashboardStats struct {
	IndoorTemp  *float64 `json:"indoor_temp"`
	OutdoorTemp *float64 `json:"outdoor_temp"`
	Delta       *float64 `json:"delta"`
	Humidity    *float64 `json:"humidity"`
	FeelsLike   *float64 `json:"feels_like"`
}

// HVACStatus is one thermostat's current state row.
type HVACStatus struct {
	EntityID     string   `json:"entity_id"`
	FriendlyName string   `json:"friendly_name"`
	ZoneName     *string  `json:"zone_name"`
	ZoneColor    *string  `json:"zone_color"`
	HVACMode     *string  `json:"hvac_mode"`
	HVACAction   *string  `json:"hvac_action"`
	CurrentTemp  *float64 `json:"current_temp"`
	SetpointHeat *float64 `json:"setpoint_heat"`
	SetpointCool *float64 `json:"setpoint_cool"`
	FanMode      *string  `json:"fan_mode"`
}

// ZoneCard is one zone's rollup card.
type ZoneCard struct {
	ZoneID   int64  `json:"zone_id"`
	ZoneName string `json:"zone_name"`
	ZoneColor string `json:"zone_color"`
	engine.ZoneSnapshot
}

// DashboardData is the full dashboard response.
type DashboardData struct {
	Stats        DashboardStats `json:"stats"`
	HVACStatuses []HVACStatus   `json:"hvac_statuses"`
	ZoneCards    []ZoneCard     `json:"zone_cards"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	weather, err := s.store.LatestWeather(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	var outdoorTemp, outdoorHumidity, feelsLike *float64
	if weather != nil {
		outdoorTemp = weather.Temperature
		outdoorHumidity = weather.Humidity
		feelsLike = weather.HeatIndex
	}

	tracked, err := s.store.TrackedSensors(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	zones, err := s.store.ListZones(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	zoneByID := make(map[int64]*model.Zone, len(zones))
	for i := range zones {
		zoneByID[zones[i].ID] = &zones[i]
	}

	statuses := make([]HVACStatus, 0)
	var indoorTemps, indoorHumidities []float64

	for i := range tracked {
		sensor := &tracked[i]
		switch {
		case sensor.Domain == model.DomainClimate:
			reading, err := s.store.LatestReading(ctx, sensor.ID)
			if err != nil {
				respondError(w, err)
				return
			}

			status := HVACStatus{
				EntityID:     sensor.EntityID,
				FriendlyName: sensor.FriendlyName,
			}
			if sensor.ZoneID != nil {
				if z, ok := zoneByID[*sensor.ZoneID]; ok {
					status.ZoneName = &z.Name
					status.ZoneColor = &z.Color
				}
			}
			if reading != nil {
				status.HVACMode = reading.HVACMode
				status.HVACAction = reading.HVACAction
				status.CurrentTemp = reading.Value
				status.SetpointHeat = reading.SetpointHeat
				status.SetpointCool = reading.SetpointCool
				status.FanMode = reading.FanMode
				if reading.Value != nil {
					indoorTemps = append(indoorTemps, *reading.Value)
				}
			}
			statuses = append(statuses, status)

		case sensor.DeviceClass != nil && *sensor.DeviceClass == "humidity" && !sensor.IsOutdoor:
			reading, err := s.store.LatestReading(ctx, sensor.ID)
			if err != nil {
				respondError(w, err)
				return
			}
			if reading != nil && reading.Value != nil {
				indoorHumidities = append(indoorHumidities, *reading.Value)
			}
		}
	}

	stats := DashboardStats{
		OutdoorTemp: outdoorTemp,
		FeelsLike:   feelsLike,
	}
	if len(indoorTemps) > 0 {
		avg := round1(avgOf(indoorTemps))
		stats.IndoorTemp = &avg
	}
	if len(indoorHumidities) > 0 {
		avg := round1(avgOf(indoorHumidities))
		stats.Humidity = &avg
	} else {
		stats.Humidity = outdoorHumidity
	}
	if stats.IndoorTemp != nil && outdoorTemp != nil {
		delta := round1(*stats.IndoorTemp - *outdoorTemp)
		stats.Delta = &delta
	}

	cards := make([]ZoneCard, 0, len(zones))
	for i := range zones {
		zone := &zones[i]
		members, err := s.store.SensorsInZone(ctx, zone.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		snapshot, err := engine.ZoneCurrent(ctx, s.store, members)
		if err != nil {
			respondError(w, err)
			return
		}
		cards = append(cards, ZoneCard{
			ZoneID:       zone.ID,
			ZoneName:     zone.Name,
			ZoneColor:    zone.Color,
			ZoneSnapshot: snapshot,
		})
	}

	respondJSON(w, http.StatusOK, DashboardData{
		Stats:        stats,
		HVACStatuses: statuses,
		ZoneCards:    cards,
	})
}

func avgOf(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
