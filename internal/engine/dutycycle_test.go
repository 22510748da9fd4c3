package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

func TestEngine_DutyCycle_Percentages(t *testing.T) {
	// 4 samples one day: 1 heating, 1 cooling, 2 idle.
	src := &memSource{
		samples: []model.Sample{
			hvacSample(1, t0, model.Float(70), model.ActionHeating, nil, nil),
			hvacSample(1, t0.Add(5*time.Minute), model.Float(71), model.ActionCooling, nil, nil),
			hvacSample(1, t0.Add(10*time.Minute), model.Float(71), model.ActionIdle, nil, nil),
			hvacSample(1, t0.Add(15*time.Minute), model.Float(71), model.ActionIdle, nil, nil),
		},
	}
	e := newTestEngine(src)

	days, err := e.DutyCycle(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("DutyCycle: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}

	d := days[0]
	if d.Date != t0.Format("2006-01-02") {
		t.Errorf("date: got %s", d.Date)
	}
	if d.HeatingPct != 25.0 || d.CoolingPct != 25.0 || d.IdlePct != 50.0 || d.OffPct != 0.0 {
		t.Errorf("got heating=%f cooling=%f idle=%f off=%f", d.HeatingPct, d.CoolingPct, d.IdlePct, d.OffPct)
	}
}

func TestEngine_DutyCycle_SumsTo100(t *testing.T) {
	// Uneven counts across two days; each emitted day must sum to 100
	// within rounding.
	var samples []model.Sample
	actions := []string{
		model.ActionHeating, model.ActionHeating, model.ActionHeating,
		model.ActionIdle, model.ActionIdle, model.ActionOff, model.ActionCooling,
	}
	for i, a := range actions {
		samples = append(samples, hvacSample(1, t0.Add(time.Duration(i)*5*time.Minute), model.Float(70), a, nil, nil))
	}
	for i, a := range actions[:3] {
		samples = append(samples, hvacSample(1, t0.Add(24*time.Hour).Add(time.Duration(i)*5*time.Minute), model.Float(70), a, nil, nil))
	}
	e := newTestEngine(&memSource{samples: samples})

	days, err := e.DutyCycle(context.Background(), 1, t0, t0.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("DutyCycle: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	for _, d := range days {
		sum := d.HeatingPct + d.CoolingPct + d.IdlePct + d.OffPct
		if math.Abs(sum-100) > 0.3 {
			t.Errorf("day %s: percentages sum to %f", d.Date, sum)
		}
	}
}

func TestEngine_DutyCycle_EmptyWindow(t *testing.T) {
	e := newTestEngine(&memSource{})
	days, err := e.DutyCycle(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("DutyCycle: %v", err)
	}
	if len(days) != 0 {
		t.Fatalf("expected no days, got %d", len(days))
	}
}

func TestEngine_HoldEfficiency(t *testing.T) {
	src := &memSource{
		samples: []model.Sample{
			// drift 1.0 from heat setpoint
			hvacSample(1, t0, model.Float(71), model.ActionIdle, model.Float(70), nil),
			// drift 2.0, heat setpoint preferred over cool
			hvacSample(1, t0.Add(5*time.Minute), model.Float(72), model.ActionIdle, model.Float(70), model.Float(75)),
			// not idle: ignored
			hvacSample(1, t0.Add(10*time.Minute), model.Float(80), model.ActionHeating, model.Float(70), nil),
			// no setpoint: ignored
			hvacSample(1, t0.Add(15*time.Minute), model.Float(73), model.ActionIdle, nil, nil),
		},
	}
	e := newTestEngine(src)

	eff, err := e.HoldEfficiency(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("HoldEfficiency: %v", err)
	}
	if eff != 1.5 {
		t.Errorf("expected 1.5, got %f", eff)
	}
}

func TestEngine_HoldEfficiency_Empty(t *testing.T) {
	e := newTestEngine(&memSource{})
	eff, err := e.HoldEfficiency(context.Background(), 1, t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("HoldEfficiency: %v", err)
	}
	if eff != 0.0 {
		t.Errorf("expected exactly 0.0 on empty set, got %f", eff)
	}
}
