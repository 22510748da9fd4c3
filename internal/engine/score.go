// Composite efficiency scoring and the window summary that feeds it.

package engine

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// Component weights for the composite score. Fast recoveries earn up to
// 40 points, tight setpoint holds up to 35, and a duty cycle inside the
// ideal band the remaining 25.
const (
	recoveryMaxPoints  = 40.0
	recoveryZeroAtMin  = 60.0 // recoveries averaging >= 60 min score 0
	holdMaxPoints      = 35.0
	holdZeroAtDrift    = 3.0 // drift >= 3°F scores 0
	dutyMaxPoints      = 25.0
	dutyIdealLow       = 30.0
	dutyIdealHigh      = 60.0
	dutyZeroAboveDelta = 40.0 // duty% at ideal-high + 40 scores 0
)

// EfficiencyScore combines average recovery duration (minutes), hold
// efficiency (°F drift), and average active duty-cycle percentage into
// one 0-100 scalar, rounded to the nearest integer. No component can go
// negative, so the score is monotonically non-increasing in recovery
// time and drift.
func EfficiencyScore(avgRecoveryMin, holdEfficiency, dutyCyclePct float64) float64 {
	recoveryScore := math.Max(0, recoveryMaxPoints-(avgRecoveryMin/recoveryZeroAtMin*recoveryMaxPoints))

	holdScore := math.Max(0, holdMaxPoints-(holdEfficiency/holdZeroAtDrift*holdMaxPoints))

	var dutyScore float64
	switch {
	case dutyCyclePct >= dutyIdealLow && dutyCyclePct <= dutyIdealHigh:
		dutyScore = dutyMaxPoints
	case dutyCyclePct < dutyIdealLow:
		dutyScore = dutyCyclePct / dutyIdealLow * dutyMaxPoints
	default:
		dutyScore = math.Max(0, dutyMaxPoints-((dutyCyclePct-dutyIdealHigh)/dutyZeroAboveDelta*dutyMaxPoints))
	}

	return math.Round(recoveryScore + holdScore + dutyScore)
}

// Summary holds the window's headline metrics.
type Summary struct {
	AvgRecoveryMinutes float64 `json:"avg_recovery_minutes"`
	DutyCyclePct       float64 `json:"duty_cycle_pct"`
	HoldEfficiency     float64 `json:"hold_efficiency"`
	EfficiencyScore    float64 `json:"efficiency_score"`
}

// ComputeSummary derives the three composite-score inputs over the same
// window and combines them. The inputs are independent read-only
// computations, so they run concurrently.
func (e *Engine) ComputeSummary(ctx context.Context, sensorID int64, start, end time.Time) (Summary, error) {
	var (
		events   []RecoveryEvent
		dutyDays []DutyCycleDay
		holdEff  float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = e.RecoveryEvents(gctx, sensorID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		dutyDays, err = e.DutyCycle(gctx, sensorID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		holdEff, err = e.HoldEfficiency(gctx, sensorID, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var avgRecovery float64
	if len(events) > 0 {
		var sum float64
		for i := range events {
			sum += events[i].DurationMinutes
		}
		avgRecovery = sum / float64(len(events))
	}

	var avgDuty float64
	if len(dutyDays) > 0 {
		var sum float64
		for i := range dutyDays {
			sum += dutyDays[i].HeatingPct + dutyDays[i].CoolingPct
		}
		avgDuty = sum / float64(len(dutyDays))
	}

	return Summary{
		AvgRecoveryMinutes: round1(avgRecovery),
		DutyCyclePct:       round1(avgDuty),
		HoldEfficiency:     holdEff,
		EfficiencyScore:    EfficiencyScore(avgRecovery, holdEff, avgDuty),
	}, nil
}
