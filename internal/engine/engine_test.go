package engine

import (
	"context"
	"sort"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// memSource is an in-memory SampleSource/WeatherSource/LatestSource for
// engine tests.
type memSource struct {
	samples []model.Sample
	weather []model.WeatherObservation
}

func (m *memSource) Readings(_ context.Context, sensorID int64, start, end time.Time) ([]model.Sample, error) {
	var out []model.Sample
	for _, s := range m.samples {
		if s.SensorID != sensorID {
			continue
		}
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *memSource) Weather(_ context.Context, start, end time.Time) ([]model.WeatherObservation, error) {
	var out []model.WeatherObservation
	for _, o := range m.weather {
		if o.Timestamp.Before(start) || o.Timestamp.After(end) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *memSource) LatestWeatherAtOrBefore(_ context.Context, t time.Time) (*model.WeatherObservation, error) {
	var best *model.WeatherObservation
	for i := range m.weather {
		o := &m.weather[i]
		if o.Timestamp.After(t) {
			continue
		}
		if best == nil || o.Timestamp.After(best.Timestamp) {
			best = o
		}
	}
	return best, nil
}

func (m *memSource) LatestReading(_ context.Context, sensorID int64) (*model.Sample, error) {
	var best *model.Sample
	for i := range m.samples {
		s := &m.samples[i]
		if s.SensorID != sensorID {
			continue
		}
		if best == nil || s.Timestamp.After(best.Timestamp) {
			best = s
		}
	}
	return best, nil
}

// t0 is an arbitrary fixed origin for test streams.
var t0 = time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)

// hvacSample builds a climate sample. Pass nil for unset optionals.
func hvacSample(sensorID int64, ts time.Time, value *float64, action string, spHeat, spCool *float64) model.Sample {
	s := model.Sample{
		SensorID:     sensorID,
		Timestamp:    ts,
		Value:        value,
		SetpointHeat: spHeat,
		SetpointCool: spCool,
	}
	if action != "" {
		s.HVACAction = model.String(action)
	}
	return s
}

func weatherAt(ts time.Time, temp float64) model.WeatherObservation {
	return model.WeatherObservation{Timestamp: ts, Source: "nws", Temperature: model.Float(temp)}
}

func newTestEngine(src *memSource) *Engine {
	return New(src, src, DefaultParams())
}
