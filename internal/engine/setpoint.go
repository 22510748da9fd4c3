// Setpoint change extraction: a sparse series of state-change events.

package engine

import (
	"context"
	"time"
)

// SetpointPoint is emitted when either setpoint changes (or for the
// window's first sample unconditionally). It carries both setpoints and
// the action as observed at that instant, not necessarily the field that
// changed.
type SetpointPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	SetpointHeat *float64  `json:"setpoint_heat"`
	SetpointCool *float64  `json:"setpoint_cool"`
	HVACAction   *string   `json:"hvac_action"`
}

// SetpointHistory emits a point whenever setpoint_heat or setpoint_cool
// differs from the last non-null value seen for that field. A null
// setpoint never resets the last-known value, so transient gaps in
// reporting do not fabricate change events.
func (e *Engine) SetpointHistory(ctx context.Context, sensorID int64, start, end time.Time) ([]SetpointPoint, error) {
	readings, err := e.hvacReadings(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}

	points := []SetpointPoint{}
	var lastHeat, lastCool *float64

	for i := range readings {
		s := &readings[i]

		heatChanged := s.SetpointHeat != nil && (lastHeat == nil || *s.SetpointHeat != *lastHeat)
		coolChanged := s.SetpointCool != nil && (lastCool == nil || *s.SetpointCool != *lastCool)

		if heatChanged || coolChanged || len(points) == 0 {
			points = append(points, SetpointPoint{
				Timestamp:    s.Timestamp,
				SetpointHeat: s.SetpointHeat,
				SetpointCool: s.SetpointCool,
				HVACAction:   s.HVACAction,
			})
			if s.SetpointHeat != nil {
				lastHeat = s.SetpointHeat
			}
			if s.SetpointCool != nil {
				lastCool = s.SetpointCool
			}
		}
	}

	return points, nil
}
