// Zone rollup: current conditions averaged across a zone's members.
//
// Not a time-series computation; it shares the engine's
// aggregate-across-entities pattern and its external-data dependency,
// nothing else.

package engine

import (
	"context"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// ZoneSnapshot is the averaged latest state across a zone's member
// sensors. Nil fields mean no member contributed a value.
type ZoneSnapshot struct {
	AvgTemp     *float64 `json:"avg_temp"`
	AvgHumidity *float64 `json:"avg_humidity"`
	HVACMode    *string  `json:"hvac_mode"`
	HVACAction  *string  `json:"hvac_action"`
}

// ZoneCurrent averages the latest available readings across the given
// member sensors: temperature from climate and temperature sensors,
// humidity from humidity sensors. The mode/action of the zone is taken
// from its climate member. An empty member set yields an empty snapshot.
func ZoneCurrent(ctx context.Context, latest LatestSource, members []model.Sensor) (ZoneSnapshot, error) {
	var snap ZoneSnapshot
	var temps, humidities []float64

	for i := range members {
		s := &members[i]
		r, err := latest.LatestReading(ctx, s.ID)
		if err != nil {
			return ZoneSnapshot{}, err
		}
		if r == nil {
			continue
		}

		if r.Value != nil {
			switch {
			case s.Domain == model.DomainClimate:
				temps = append(temps, *r.Value)
			case s.DeviceClass != nil && *s.DeviceClass == "temperature":
				temps = append(temps, *r.Value)
			case s.DeviceClass != nil && *s.DeviceClass == "humidity":
				humidities = append(humidities, *r.Value)
			}
		}
		if s.Domain == model.DomainClimate {
			snap.HVACMode = r.HVACMode
			snap.HVACAction = r.HVACAction
		}
	}

	if len(temps) > 0 {
		snap.AvgTemp = model.Float(round1(mean(temps)))
	}
	if len(humidities) > 0 {
		snap.AvgHumidity = model.Float(round1(mean(humidities)))
	}
	return snap, nil
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
