// Package engine implements the time-series analytics core: it turns a
// raw, irregularly-sampled reading stream into segmented recovery runs,
// duty cycles, runtime profiles, and efficiency scores.
//
// The engine is pure-function style. Every computation takes a bounded
// window, reads through the source interfaces, and returns derived
// structures; no mutable state survives between calls, so independent
// computations over the same window are safe to run concurrently.
// Absence of data is the normal degenerate case: empty windows yield
// empty collections, never errors.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/77degrees/climate-analyzer/config"
	"github.com/77degrees/climate-analyzer/internal/model"
)

// =============================================================================
// Source Contracts
// =============================================================================

// SampleSource supplies time-bounded, sensor-scoped reading sequences.
// Implementations must return samples ordered ascending by timestamp,
// bounds inclusive.
type SampleSource interface {
	Readings(ctx context.Context, sensorID int64, start, end time.Time) ([]model.Sample, error)
}

// WeatherSource supplies the outdoor observation series.
type WeatherSource interface {
	// Weather returns observations in [start, end], ascending.
	Weather(ctx context.Context, start, end time.Time) ([]model.WeatherObservation, error)

	// LatestWeatherAtOrBefore returns the most recent observation at or
	// before t, or nil when none exists.
	LatestWeatherAtOrBefore(ctx context.Context, t time.Time) (*model.WeatherObservation, error)
}

// LatestSource supplies the most recent reading per sensor, used by the
// zone rollup. nil means the sensor has no readings yet.
type LatestSource interface {
	LatestReading(ctx context.Context, sensorID int64) (*model.Sample, error)
}

// =============================================================================
// Parameters
// =============================================================================

// Params holds the engine's tunables. The zero value is not usable;
// start from DefaultParams.
type Params struct {
	// SamplesPerHour is the assumed sampling cadence used wherever
	// sample counts convert to hours without a per-bucket density
	// estimate (monthly trends, struggle hours).
	SamplesPerHour float64

	// RecoveryTimeout is the duration threshold that judges a recovery
	// run successful when no setpoint was recorded.
	RecoveryTimeout time.Duration

	// StruggleThreshold is the overshoot above target (°F) beyond which
	// a cooling sample counts as struggling.
	StruggleThreshold float64

	// HeatmapUTCOffset shifts timestamps into local time for the 7x24
	// activity grid. Fixed offset, not DST-aware.
	HeatmapUTCOffset time.Duration

	// TempBinSize is the default outdoor-temperature bin width (°F).
	TempBinSize float64
}

// DefaultParams returns the production parameter set.
func DefaultParams() Params {
	return Params{
		SamplesPerHour:    config.DefaultSamplesPerHour,
		RecoveryTimeout:   config.DefaultRecoveryTimeoutMin * time.Minute,
		StruggleThreshold: config.DefaultStruggleThreshold,
		HeatmapUTCOffset:  config.DefaultHeatmapUTCOffset,
		TempBinSize:       config.DefaultTempBinSize,
	}
}

// =============================================================================
// Engine
// =============================================================================

// Engine computes analytics over one sensor's reading series joined
// against the outdoor observation series.
//
// Engine is safe for concurrent use.
type Engine struct {
	samples SampleSource
	weather WeatherSource
	params  Params
}

// New creates an Engine reading through the given sources.
func New(samples SampleSource, weather WeatherSource, params Params) *Engine {
	return &Engine{
		samples: samples,
		weather: weather,
		params:  params,
	}
}

// Params returns the engine's parameter set.
func (e *Engine) Params() Params {
	return e.params
}

// hvacReadings returns the window's samples restricted to those with a
// non-null hvac_action, the input every bucketed computation shares.
func (e *Engine) hvacReadings(ctx context.Context, sensorID int64, start, end time.Time) ([]model.Sample, error) {
	all, err := e.samples.Readings(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]model.Sample, 0, len(all))
	for _, s := range all {
		if s.HVACAction != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// =============================================================================
// Rounding Helpers
// =============================================================================

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// dayKey returns the calendar-day bucket key for a timestamp. The day
// component is taken as stored, without timezone conversion.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// monthKey returns the calendar-month bucket key for a timestamp.
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}
