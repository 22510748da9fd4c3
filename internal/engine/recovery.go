// Recovery run segmentation.
//
// Scans one sensor's ordered samples and emits closed heating/cooling
// runs. The segmenter is an explicit two-state machine (no open run /
// one open run) so the close-on-flip, close-on-idle, and
// close-on-exhaustion transitions are exhaustive and testable without
// I/O.

package engine

import (
	"context"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// RecoveryEvent is a closed run of heating or cooling with a computed
// success/failure outcome relative to its setpoint. Never mutated after
// closing.
type RecoveryEvent struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Action          string    `json:"action"`
	StartTemp       *float64  `json:"start_temp"`
	EndTemp         *float64  `json:"end_temp"`
	Setpoint        *float64  `json:"setpoint"`
	OutdoorTemp     *float64  `json:"outdoor_temp"`
	DurationMinutes float64   `json:"duration_minutes"`
	Success         bool      `json:"success"`
}

// RecoveryEvents segments the sensor's window into closed recovery runs,
// each enriched with the outdoor temperature at or before its start.
func (e *Engine) RecoveryEvents(ctx context.Context, sensorID int64, start, end time.Time) ([]RecoveryEvent, error) {
	readings, err := e.hvacReadings(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return []RecoveryEvent{}, nil
	}

	seg := newSegmenter(e.params.RecoveryTimeout)
	for i := range readings {
		seg.feed(&readings[i])
	}
	events := seg.finish(&readings[len(readings)-1])

	// Point-in-time join: outdoor temperature as it was when the run
	// started, not the day's average.
	for i := range events {
		obs, err := e.weather.LatestWeatherAtOrBefore(ctx, events[i].StartTime)
		if err != nil {
			return nil, err
		}
		if obs != nil {
			events[i].OutdoorTemp = obs.Temperature
		}
	}

	return events, nil
}

// =============================================================================
// Segmenter State Machine
// =============================================================================

// segmenter holds at most one open run while scanning samples in
// timestamp order.
type segmenter struct {
	timeout time.Duration
	open    *openRun
	events  []RecoveryEvent
}

// openRun is the segmenter's single piece of state: an in-progress run
// of one action, carrying the opening sample's temperature and setpoint.
type openRun struct {
	startTime time.Time
	action    string
	startTemp *float64
	setpoint  *float64
}

func newSegmenter(timeout time.Duration) *segmenter {
	return &segmenter{timeout: timeout}
}

// feed advances the state machine by one sample.
//
// Transitions:
//   - heating/cooling sample, no open run        -> open
//   - heating/cooling sample, open run flips     -> close with current, open
//   - idle/off sample, open run                  -> close with current
//   - anything else                              -> no-op
func (g *segmenter) feed(s *model.Sample) {
	action := s.Action()

	if model.IsActiveAction(action) {
		if g.open == nil || g.open.action != action {
			g.close(s)
			g.openWith(s, action)
		}
		return
	}

	if (action == model.ActionIdle || action == model.ActionOff) && g.open != nil {
		g.close(s)
	}
}

// finish closes any still-open run using the stream's last sample. This
// is the "unterminated" close: the closing sample's action is still
// heating/cooling.
func (g *segmenter) finish(last *model.Sample) []RecoveryEvent {
	g.close(last)
	if g.events == nil {
		return []RecoveryEvent{}
	}
	return g.events
}

// openWith opens a new run from the current sample. The setpoint is
// taken from the opening sample: heat setpoint for heating runs, cool
// setpoint for cooling runs.
func (g *segmenter) openWith(s *model.Sample, action string) {
	sp := s.SetpointHeat
	if action == model.ActionCooling {
		sp = s.SetpointCool
	}
	g.open = &openRun{
		startTime: s.Timestamp,
		action:    action,
		startTemp: s.Value,
		setpoint:  sp,
	}
}

// close finalizes the open run (if any) against the closing sample and
// clears the state.
func (g *segmenter) close(s *model.Sample) {
	if g.open == nil {
		return
	}

	duration := s.Timestamp.Sub(g.open.startTime).Minutes()

	evt := RecoveryEvent{
		StartTime:       g.open.startTime,
		EndTime:         s.Timestamp,
		Action:          g.open.action,
		StartTemp:       g.open.startTemp,
		EndTemp:         s.Value,
		Setpoint:        g.open.setpoint,
		DurationMinutes: round1(duration),
	}

	// Success: setpoint reached when both setpoint and end temperature
	// are known, otherwise a run that closed inside the timeout.
	switch {
	case evt.Setpoint != nil && evt.EndTemp != nil && evt.Action == model.ActionHeating:
		evt.Success = *evt.EndTemp >= *evt.Setpoint
	case evt.Setpoint != nil && evt.EndTemp != nil && evt.Action == model.ActionCooling:
		evt.Success = *evt.EndTemp <= *evt.Setpoint
	default:
		evt.Success = duration < g.timeout.Minutes()
	}

	g.events = append(g.events, evt)
	g.open = nil
}
