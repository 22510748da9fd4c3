// AC struggle scoring: per-day overshoot analysis of cooling samples
// against the target the system was fighting toward.

package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// Sensor-sanity bounds for cooling samples. Indoor readings outside
// (30, 110)°F are sensor glitches and are silently dropped rather than
// raised; this is the engine's only domain-specific input filter.
const (
	struggleMinTemp = 30.0
	struggleMaxTemp = 110.0
)

// Struggle score weighting: up to 60 points for overshoot severity
// (capped at a 5°F overshoot) plus up to 40 points for the fraction of
// time spent struggling.
const (
	overshootCap       = 5.0
	overshootMaxPoints = 60.0
	fractionMaxPoints  = 40.0
)

// StruggleDay summarizes one day the AC ran: how far and how long the
// indoor temperature overshot the effective target, scored 0-100.
type StruggleDay struct {
	Date          string   `json:"date"`
	OutdoorHigh   *float64 `json:"outdoor_high"`
	OutdoorAvg    *float64 `json:"outdoor_avg"`
	HoursCooling  float64  `json:"hours_cooling"`
	MaxOvershoot  float64  `json:"max_overshoot"`
	AvgOvershoot  float64  `json:"avg_overshoot"`
	StruggleHours float64  `json:"struggle_hours"`
	StruggleScore float64  `json:"struggle_score"`
}

// ACStruggle finds days when the AC was running but indoor temperature
// exceeded its target. The per-day target is the mean of recorded
// setpoints; when no setpoint was recorded it falls back to the day's
// 25th-percentile temperature, a proxy for the temperature the system
// was fighting toward.
func (e *Engine) ACStruggle(ctx context.Context, sensorID int64, start, end time.Time) ([]StruggleDay, error) {
	all, err := e.samples.Readings(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}

	type dayAcc struct {
		temps     []float64
		setpoints []float64
	}
	days := make(map[string]*dayAcc)

	for i := range all {
		s := &all[i]
		if s.Action() != model.ActionCooling || s.Value == nil {
			continue
		}
		if *s.Value <= struggleMinTemp || *s.Value >= struggleMaxTemp {
			continue
		}
		key := dayKey(s.Timestamp)
		d, ok := days[key]
		if !ok {
			d = &dayAcc{}
			days[key] = d
		}
		d.temps = append(d.temps, *s.Value)

		sp := s.SetpointCool
		if sp == nil {
			sp = s.SetpointHeat
		}
		if sp != nil {
			d.setpoints = append(d.setpoints, *sp)
		}
	}

	if len(days) == 0 {
		return []StruggleDay{}, nil
	}

	obs, err := e.weather.Weather(ctx, start, end)
	if err != nil {
		return nil, err
	}
	outdoor := dailyWeather(obs)

	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]StruggleDay, 0, len(keys))
	for _, key := range keys {
		d := days[key]
		target := dayTarget(d.temps, d.setpoints)

		n := len(d.temps)
		maxOv := math.Inf(-1)
		var sumOv float64
		var struggleN int
		for _, t := range d.temps {
			ov := t - target
			sumOv += ov
			if ov > maxOv {
				maxOv = ov
			}
			if ov > e.params.StruggleThreshold {
				struggleN++
			}
		}
		maxOv = round2(maxOv)

		overshootScore := math.Min(math.Max(maxOv, 0)/overshootCap*overshootMaxPoints, overshootMaxPoints)
		pctScore := float64(struggleN) / float64(n) * fractionMaxPoints

		day := StruggleDay{
			Date:          key,
			HoursCooling:  round1(float64(n) / e.params.SamplesPerHour),
			MaxOvershoot:  maxOv,
			AvgOvershoot:  round2(sumOv / float64(n)),
			StruggleHours: round1(float64(struggleN) / e.params.SamplesPerHour),
			StruggleScore: round1(math.Min(overshootScore+pctScore, 100)),
		}
		if w, ok := outdoor[key]; ok {
			day.OutdoorHigh = model.Float(round1(w.max))
			day.OutdoorAvg = model.Float(round1(w.avg()))
		}
		out = append(out, day)
	}

	return out, nil
}

// dayTarget estimates the temperature the AC was driving toward: the
// mean of recorded setpoints, or the 25th-percentile rank of the day's
// sorted temperatures when none were recorded.
func dayTarget(temps, setpoints []float64) float64 {
	if len(setpoints) > 0 {
		var sum float64
		for _, sp := range setpoints {
			sum += sp
		}
		return sum / float64(len(setpoints))
	}

	sorted := make([]float64, len(temps))
	copy(sorted, temps)
	sort.Float64s(sorted)
	return sorted[len(sorted)/4]
}
