// Runtime-hour aggregations: daily energy profile, monthly trends, and
// outdoor-temperature bins.
//
// The daily profile corrects for variable sampling density by deriving
// samples-per-hour from the day's own total; the monthly rollup keeps
// the fixed-cadence assumption, matching how the two charts are read
// (per-day precision vs. long-range trend).

package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// EnergyDay holds one day's estimated HVAC runtime joined with the
// day's mean outdoor temperature.
type EnergyDay struct {
	Date              string   `json:"date"`
	OutdoorAvgTemp    *float64 `json:"outdoor_avg_temp"`
	HeatingHours      float64  `json:"heating_hours"`
	CoolingHours      float64  `json:"cooling_hours"`
	TotalRuntimeHours float64  `json:"total_runtime_hours"`
}

// MonthlyTrend holds one month's runtime rollup.
type MonthlyTrend struct {
	Month             string   `json:"month"`
	HeatingHours      float64  `json:"heating_hours"`
	CoolingHours      float64  `json:"cooling_hours"`
	TotalRuntimeHours float64  `json:"total_runtime_hours"`
	AvgOutdoorTemp    *float64 `json:"avg_outdoor_temp"`
	SampleDays        int      `json:"sample_days"`
}

// TempBin sums runtime hours across days whose outdoor average fell in
// one temperature band.
type TempBin struct {
	RangeLabel   string  `json:"range_label"`
	MinTemp      float64 `json:"min_temp"`
	MaxTemp      float64 `json:"max_temp"`
	HeatingHours float64 `json:"heating_hours"`
	CoolingHours float64 `json:"cooling_hours"`
	DayCount     int     `json:"day_count"`
}

// dayRuntime accumulates one day's per-action sample counts.
type dayRuntime struct {
	heating int
	cooling int
	total   int
}

// EnergyProfile estimates per-day heating/cooling runtime hours with the
// day's own sampling density, joined with the day's mean outdoor
// temperature (nil when no observation carried a temperature that day).
func (e *Engine) EnergyProfile(ctx context.Context, sensorID int64, start, end time.Time) ([]EnergyDay, error) {
	readings, err := e.hvacReadings(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}

	days := make(map[string]*dayRuntime)
	for i := range readings {
		key := dayKey(readings[i].Timestamp)
		d, ok := days[key]
		if !ok {
			d = &dayRuntime{}
			days[key] = d
		}
		switch readings[i].Action() {
		case model.ActionHeating:
			d.heating++
		case model.ActionCooling:
			d.cooling++
		}
		d.total++
	}

	obs, err := e.weather.Weather(ctx, start, end)
	if err != nil {
		return nil, err
	}
	outdoor := dailyAvgTemps(obs)

	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	profile := make([]EnergyDay, 0, len(keys))
	for _, key := range keys {
		d := days[key]

		// Effective sampling density for this day. Partial days scale
		// down to at worst one hour per sample; a zero estimate falls
		// back to the configured cadence assumption.
		samplesPerHour := float64(d.total) / 24
		scale := 1 / e.params.SamplesPerHour
		if samplesPerHour > 0 {
			scale = 1 / math.Max(samplesPerHour, 1)
		}

		heatingH := round1(float64(d.heating) * scale)
		coolingH := round1(float64(d.cooling) * scale)

		day := EnergyDay{
			Date:              key,
			HeatingHours:      heatingH,
			CoolingHours:      coolingH,
			TotalRuntimeHours: round1(heatingH + coolingH),
		}
		if temp, ok := outdoor[key]; ok {
			day.OutdoorAvgTemp = model.Float(temp)
		}
		profile = append(profile, day)
	}

	return profile, nil
}

// MonthlyTrends rolls runtime up by calendar month with the fixed
// cadence assumption, reporting how many distinct days contributed.
func (e *Engine) MonthlyTrends(ctx context.Context, sensorID int64, start, end time.Time) ([]MonthlyTrend, error) {
	readings, err := e.hvacReadings(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}

	type monthRuntime struct {
		heating int
		cooling int
		days    map[string]struct{}
	}
	months := make(map[string]*monthRuntime)

	for i := range readings {
		key := monthKey(readings[i].Timestamp)
		m, ok := months[key]
		if !ok {
			m = &monthRuntime{days: make(map[string]struct{})}
			months[key] = m
		}
		switch readings[i].Action() {
		case model.ActionHeating:
			m.heating++
		case model.ActionCooling:
			m.cooling++
		}
		m.days[dayKey(readings[i].Timestamp)] = struct{}{}
	}

	obs, err := e.weather.Weather(ctx, start, end)
	if err != nil {
		return nil, err
	}
	outdoor := monthlyAvgTemps(obs)

	keys := make([]string, 0, len(months))
	for key := range months {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	trends := make([]MonthlyTrend, 0, len(keys))
	for _, key := range keys {
		m := months[key]
		heatingH := round1(float64(m.heating) / e.params.SamplesPerHour)
		coolingH := round1(float64(m.cooling) / e.params.SamplesPerHour)

		trend := MonthlyTrend{
			Month:             key,
			HeatingHours:      heatingH,
			CoolingHours:      coolingH,
			TotalRuntimeHours: round1(heatingH + coolingH),
			SampleDays:        len(m.days),
		}
		if temp, ok := outdoor[key]; ok {
			trend.AvgOutdoorTemp = model.Float(temp)
		}
		trends = append(trends, trend)
	}

	return trends, nil
}

// TempBins floors each profile day's outdoor average to a bin of the
// given width and sums runtime hours per bin, ascending. Days without a
// known outdoor temperature are skipped. binSize <= 0 uses the default.
func (e *Engine) TempBins(ctx context.Context, sensorID int64, start, end time.Time, binSize float64) ([]TempBin, error) {
	if binSize <= 0 {
		binSize = e.params.TempBinSize
	}

	profile, err := e.EnergyProfile(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}

	type binAcc struct {
		heating float64
		cooling float64
		days    int
	}
	bins := make(map[float64]*binAcc)

	for i := range profile {
		if profile[i].OutdoorAvgTemp == nil {
			continue
		}
		floor := math.Floor(*profile[i].OutdoorAvgTemp/binSize) * binSize
		b, ok := bins[floor]
		if !ok {
			b = &binAcc{}
			bins[floor] = b
		}
		b.heating += profile[i].HeatingHours
		b.cooling += profile[i].CoolingHours
		b.days++
	}

	floors := make([]float64, 0, len(bins))
	for floor := range bins {
		floors = append(floors, floor)
	}
	sort.Float64s(floors)

	out := make([]TempBin, 0, len(floors))
	for _, floor := range floors {
		b := bins[floor]
		out = append(out, TempBin{
			RangeLabel:   rangeLabel(floor, binSize),
			MinTemp:      floor,
			MaxTemp:      floor + binSize,
			HeatingHours: round1(b.heating),
			CoolingHours: round1(b.cooling),
			DayCount:     b.days,
		})
	}

	return out, nil
}

// rangeLabel formats a bin's display label, e.g. "60–65°F".
func rangeLabel(floor, size float64) string {
	return fmt.Sprintf("%d–%d°F", int(floor), int(floor+size))
}
