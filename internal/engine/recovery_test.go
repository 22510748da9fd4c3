package engine

import (
	"context"
	"testing"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

func TestEngine_RecoveryEvents_HeatingRun(t *testing.T) {
	// heating at t0 (70°F toward 72), still heating at +30m, idle at
	// +61m having reached 72. One event, successful.
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(70), model.ActionHeating, model.Float(72), nil),
			hvacSample(1, t0.Add(30*time.Minute), model.Float(71), model.ActionHeating, model.Float(72), nil),
			hvacSample(1, t0.Add(61*time.Minute), model.Float(72), model.ActionIdle, nil, nil),
		},
	}
	e := newTestEngine(src)

	events, err := e.RecoveryEvents(context.Background(), 1, t0, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("RecoveryEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	evt := events[0]
	if evt.Action != model.ActionHeating {
		t.Errorf("expected heating, got %s", evt.Action)
	}
	if !evt.StartTime.Equal(t0) {
		t.Errorf("start: got %v", evt.StartTime)
	}
	if !evt.EndTime.Equal(t0.Add(61 * time.Minute)) {
		t.Errorf("end: got %v", evt.EndTime)
	}
	if evt.DurationMinutes != 61.0 {
		t.Errorf("expected duration=61.0, got %f", evt.DurationMinutes)
	}
	if evt.StartTemp == nil || *evt.StartTemp != 70 {
		t.Errorf("start temp: got %v", evt.StartTemp)
	}
	if evt.EndTemp == nil || *evt.EndTemp != 72 {
		t.Errorf("end temp: got %v", evt.EndTemp)
	}
	if evt.Setpoint == nil || *evt.Setpoint != 72 {
		t.Errorf("setpoint: got %v", evt.Setpoint)
	}
	if !evt.Success {
		t.Error("expected success (72 >= 72)")
	}
}

func TestEngine_RecoveryEvents_CloseOnFlip(t *testing.T) {
	// heating flips straight to cooling: the heating run closes on the
	// flip sample and a cooling run opens from it.
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(68), model.ActionHeating, model.Float(70), nil),
			hvacSample(1, t0.Add(10*time.Minute), model.Float(74), model.ActionCooling, nil, model.Float(72)),
			hvacSample(1, t0.Add(20*time.Minute), model.Float(72), model.ActionIdle, nil, nil),
		},
	}
	e := newTestEngine(src)

	events, err := e.RecoveryEvents(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecoveryEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	if events[0].Action != model.ActionHeating {
		t.Errorf("first event action: %s", events[0].Action)
	}
	if !events[0].EndTime.Equal(t0.Add(10 * time.Minute)) {
		t.Errorf("heating run should close on the flip sample, got end=%v", events[0].EndTime)
	}
	if events[1].Action != model.ActionCooling {
		t.Errorf("second event action: %s", events[1].Action)
	}
	if events[1].Setpoint == nil || *events[1].Setpoint != 72 {
		t.Errorf("cooling setpoint from opening sample: got %v", events[1].Setpoint)
	}
	if !events[1].Success {
		t.Error("cooling run reached 72 <= 72, expected success")
	}
}

func TestEngine_RecoveryEvents_UnterminatedClose(t *testing.T) {
	// Stream ends while still cooling: close with the last sample even
	// though its action is still active. No setpoint, so success falls
	// back to the timeout check.
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(78), model.ActionCooling, nil, nil),
			hvacSample(1, t0.Add(45*time.Minute), model.Float(76), model.ActionCooling, nil, nil),
		},
	}
	e := newTestEngine(src)

	events, err := e.RecoveryEvents(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecoveryEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].DurationMinutes != 45.0 {
		t.Errorf("duration: got %f", events[0].DurationMinutes)
	}
	if !events[0].Success {
		t.Error("45 min < 120 min timeout, expected success")
	}
}

func TestEngine_RecoveryEvents_TimeoutFailure(t *testing.T) {
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(78), model.ActionCooling, nil, nil),
			hvacSample(1, t0.Add(150*time.Minute), model.Float(77), model.ActionCooling, nil, nil),
		},
	}
	e := newTestEngine(src)

	events, err := e.RecoveryEvents(context.Background(), 1, t0, t0.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("RecoveryEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Success {
		t.Error("150 min >= 120 min timeout, expected failure")
	}
}

func TestEngine_RecoveryEvents_IdleNeverOpens(t *testing.T) {
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(71), model.ActionIdle, model.Float(70), nil),
			hvacSample(1, t0.Add(5*time.Minute), model.Float(71), model.ActionOff, nil, nil),
		},
	}
	e := newTestEngine(src)

	events, err := e.RecoveryEvents(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecoveryEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("idle/off must never open events, got %d", len(events))
	}
}

func TestEngine_RecoveryEvents_EmptyWindow(t *testing.T) {
	e := newTestEngine(&memSource{})

	events, err := e.RecoveryEvents(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecoveryEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty result, got %d events", len(events))
	}
}

func TestEngine_RecoveryEvents_OutdoorEnrichment(t *testing.T) {
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(70), model.ActionHeating, model.Float(72), nil),
			hvacSample(1, t0.Add(20*time.Minute), model.Float(72), model.ActionIdle, nil, nil),
		},
		weather: []model.WeatherObservation{
			weatherAt(t0.Add(-30*time.Minute), 41.5), // nearest prior
			weatherAt(t0.Add(10*time.Minute), 43.0),  // after start, ignored
		},
	}
	e := newTestEngine(src)

	events, err := e.RecoveryEvents(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecoveryEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].OutdoorTemp == nil || *events[0].OutdoorTemp != 41.5 {
		t.Errorf("expected outdoor_temp=41.5 from nearest-prior join, got %v", events[0].OutdoorTemp)
	}
}

func TestEngine_RecoveryEvents_Invariants(t *testing.T) {
	// Mixed stream: every emitted event must have end >= start and an
	// active action.
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(70), model.ActionHeating, model.Float(72), nil),
			hvacSample(1, t0.Add(5*time.Minute), model.Float(70), model.ActionIdle, nil, nil),
			hvacSample(1, t0.Add(10*time.Minute), model.Float(75), model.ActionCooling, nil, model.Float(73)),
			hvacSample(1, t0.Add(15*time.Minute), model.Float(74), model.ActionHeating, model.Float(72), nil),
			hvacSample(1, t0.Add(20*time.Minute), nil, model.ActionOff, nil, nil),
		},
	}
	e := newTestEngine(src)

	events, err := e.RecoveryEvents(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecoveryEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, evt := range events {
		if evt.EndTime.Before(evt.StartTime) {
			t.Errorf("event %d: end before start", i)
		}
		if !model.IsActiveAction(evt.Action) {
			t.Errorf("event %d: action %q not heating/cooling", i, evt.Action)
		}
	}
}
