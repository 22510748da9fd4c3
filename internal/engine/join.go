// Weather join strategies.
//
// Two distinct joins with different correctness requirements:
//
//   - nearest-prior: point-in-time enrichment (recovery events want the
//     outdoor temperature as it was when the run started)
//   - calendar-day: bucket aggregation (daily profiles want the mean or
//     high across every observation that day)
//
// Kept as separate named utilities so neither gets silently reused for
// the other.

package engine

import "github.com/77degrees/climate-analyzer/internal/model"

// dayWeather holds per-day outdoor temperature aggregates.
type dayWeather struct {
	sum   float64
	max   float64
	count int
}

// avg returns the day's mean temperature.
func (d dayWeather) avg() float64 {
	return d.sum / float64(d.count)
}

// dailyWeather groups observations by calendar day, skipping those with
// no temperature. Only days with at least one temperature appear.
func dailyWeather(obs []model.WeatherObservation) map[string]dayWeather {
	days := make(map[string]dayWeather)
	for _, o := range obs {
		if o.Temperature == nil {
			continue
		}
		key := dayKey(o.Timestamp)
		d, ok := days[key]
		if !ok {
			d = dayWeather{max: *o.Temperature}
		}
		d.sum += *o.Temperature
		d.count++
		if *o.Temperature > d.max {
			d.max = *o.Temperature
		}
		days[key] = d
	}
	return days
}

// dailyAvgTemps reduces observations to a day -> mean temperature map,
// rounded to 1 decimal.
func dailyAvgTemps(obs []model.WeatherObservation) map[string]float64 {
	out := make(map[string]float64)
	for key, d := range dailyWeather(obs) {
		out[key] = round1(d.avg())
	}
	return out
}

// monthlyAvgTemps reduces observations to a month -> mean temperature
// map, rounded to 1 decimal.
func monthlyAvgTemps(obs []model.WeatherObservation) map[string]float64 {
	type acc struct {
		sum   float64
		count int
	}
	months := make(map[string]acc)
	for _, o := range obs {
		if o.Temperature == nil {
			continue
		}
		key := monthKey(o.Timestamp)
		a := months[key]
		a.sum += *o.Temperature
		a.count++
		months[key] = a
	}
	out := make(map[string]float64, len(months))
	for key, a := range months {
		out[key] = round1(a.sum / float64(a.count))
	}
	return out
}
