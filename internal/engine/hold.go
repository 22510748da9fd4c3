// Hold efficiency: average absolute deviation from setpoint while the
// system is idle. A measure of temperature stability.

package engine

import (
	"context"
	"math"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// HoldEfficiency returns the mean |value - setpoint| over idle samples
// in the window, rounded to 1 decimal. Samples contribute only when a
// temperature and at least one setpoint are present; the heat setpoint
// is preferred when both are set. Returns exactly 0.0 when no sample
// qualifies.
func (e *Engine) HoldEfficiency(ctx context.Context, sensorID int64, start, end time.Time) (float64, error) {
	readings, err := e.samples.Readings(ctx, sensorID, start, end)
	if err != nil {
		return 0, err
	}

	var sum float64
	var count int

	for i := range readings {
		s := &readings[i]
		if s.Action() != model.ActionIdle || s.Value == nil {
			continue
		}
		sp := s.SetpointHeat
		if sp == nil {
			sp = s.SetpointCool
		}
		if sp == nil {
			continue
		}
		sum += math.Abs(*s.Value - *sp)
		count++
	}

	if count == 0 {
		return 0.0, nil
	}
	return round1(sum / float64(count)), nil
}
