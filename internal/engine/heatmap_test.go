package engine

import (
	"context"
	"testing"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

func TestEngine_ActivityHeatmap_OffsetBucketing(t *testing.T) {
	// 2025-07-14 is a Monday. 03:00 UTC with a -6h offset lands on
	// Sunday 21:00 local.
	ts := time.Date(2025, 7, 14, 3, 0, 0, 0, time.UTC)
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, ts, model.Float(75), model.ActionCooling, nil, nil),
			hvacSample(1, ts.Add(5*time.Minute), model.Float(75), model.ActionIdle, nil, nil),
		},
	}
	e := newTestEngine(src)

	cells, err := e.ActivityHeatmap(context.Background(), 1, ts.Add(-time.Hour), ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("ActivityHeatmap: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("expected 1 cell, got %d", len(cells))
	}

	c := cells[0]
	if c.DayOfWeek != 6 {
		t.Errorf("expected Sunday (6), got %d", c.DayOfWeek)
	}
	if c.Hour != 21 {
		t.Errorf("expected hour 21, got %d", c.Hour)
	}
	if c.SampleCount != 2 {
		t.Errorf("expected 2 samples, got %d", c.SampleCount)
	}
	if c.CoolingPct != 50.0 || c.HeatingPct != 0.0 || c.ActivePct != 50.0 {
		t.Errorf("percentages: heating=%f cooling=%f active=%f", c.HeatingPct, c.CoolingPct, c.ActivePct)
	}
}

func TestEngine_ActivityHeatmap_CustomOffset(t *testing.T) {
	ts := time.Date(2025, 7, 14, 3, 0, 0, 0, time.UTC)
	params := DefaultParams()
	params.HeatmapUTCOffset = 0
	src := &memSource{
		samples: []model.Sample{hvacSample(1, ts, model.Float(75), model.ActionCooling, nil, nil)},
	}
	e := New(src, src, params)

	cells, err := e.ActivityHeatmap(context.Background(), 1, ts.Add(-time.Hour), ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("ActivityHeatmap: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("expected 1 cell, got %d", len(cells))
	}
	if cells[0].DayOfWeek != 0 || cells[0].Hour != 3 {
		t.Errorf("expected Monday 03:00 with zero offset, got dow=%d hour=%d", cells[0].DayOfWeek, cells[0].Hour)
	}
}

func TestEngine_ActivityHeatmap_EmptyCellsOmitted(t *testing.T) {
	e := newTestEngine(&memSource{})
	cells, err := e.ActivityHeatmap(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("ActivityHeatmap: %v", err)
	}
	if len(cells) != 0 {
		t.Fatalf("expected no cells, got %d", len(cells))
	}
}

func TestEngine_SetpointHistory(t *testing.T) {
	// First sample emits unconditionally; unchanged setpoint is
	// suppressed; a change emits.
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(69), model.ActionHeating, model.Float(70), nil),
			hvacSample(1, t0.Add(5*time.Minute), model.Float(69), model.ActionHeating, model.Float(70), nil),
			hvacSample(1, t0.Add(10*time.Minute), model.Float(70), model.ActionHeating, model.Float(72), nil),
		},
	}
	e := newTestEngine(src)

	points, err := e.SetpointHistory(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("SetpointHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if !points[0].Timestamp.Equal(t0) {
		t.Errorf("first point should be the first sample, got %v", points[0].Timestamp)
	}
	if !points[1].Timestamp.Equal(t0.Add(10 * time.Minute)) {
		t.Errorf("second point should be the change at +10m, got %v", points[1].Timestamp)
	}
	if points[1].SetpointHeat == nil || *points[1].SetpointHeat != 72 {
		t.Errorf("second point setpoint_heat: got %v", points[1].SetpointHeat)
	}
}

func TestEngine_SetpointHistory_NullNeverResets(t *testing.T) {
	// A sample with a nil setpoint between two identical values must not
	// fabricate a change event.
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(69), model.ActionHeating, model.Float(70), nil),
			hvacSample(1, t0.Add(5*time.Minute), model.Float(69), model.ActionIdle, nil, nil),
			hvacSample(1, t0.Add(10*time.Minute), model.Float(69), model.ActionHeating, model.Float(70), nil),
		},
	}
	e := newTestEngine(src)

	points, err := e.SetpointHistory(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("SetpointHistory: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected only the first point, got %d", len(points))
	}
}
