// Daily duty cycle: fraction of time (by sample count) a sensor spends
// in each HVAC action state.

package engine

import (
	"context"
	"sort"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// DutyCycleDay holds one day's action percentages. Percentages sum to
// 100 (modulo rounding) across the four reported buckets.
type DutyCycleDay struct {
	Date       string  `json:"date"`
	HeatingPct float64 `json:"heating_pct"`
	CoolingPct float64 `json:"cooling_pct"`
	IdlePct    float64 `json:"idle_pct"`
	OffPct     float64 `json:"off_pct"`
}

// DutyCycle groups the window's samples by calendar day and reduces
// per-action counts to percentages. Days with no samples are absent,
// which structurally avoids dividing by zero.
func (e *Engine) DutyCycle(ctx context.Context, sensorID int64, start, end time.Time) ([]DutyCycleDay, error) {
	readings, err := e.hvacReadings(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}

	type counts struct {
		byAction map[string]int
		total    int
	}
	days := make(map[string]*counts)

	for i := range readings {
		key := dayKey(readings[i].Timestamp)
		c, ok := days[key]
		if !ok {
			c = &counts{byAction: make(map[string]int)}
			days[key] = c
		}
		// Unknown action values still count toward the day's total but
		// only the four standard buckets are reported.
		c.byAction[readings[i].Action()]++
		c.total++
	}

	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]DutyCycleDay, 0, len(keys))
	for _, key := range keys {
		c := days[key]
		total := float64(c.total)
		out = append(out, DutyCycleDay{
			Date:       key,
			HeatingPct: round1(float64(c.byAction[model.ActionHeating]) / total * 100),
			CoolingPct: round1(float64(c.byAction[model.ActionCooling]) / total * 100),
			IdlePct:    round1(float64(c.byAction[model.ActionIdle]) / total * 100),
			OffPct:     round1(float64(c.byAction[model.ActionOff]) / total * 100),
		})
	}

	return out, nil
}
