// 7x24 activity heatmap: HVAC activity by day-of-week and hour.

package engine

import (
	"context"
	"sort"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// HeatmapCell is one (day-of-week, hour) grid cell. DayOfWeek follows
// ISO ordering: 0=Monday .. 6=Sunday. Cells with zero samples are
// omitted from the output.
type HeatmapCell struct {
	DayOfWeek   int     `json:"day_of_week"`
	Hour        int     `json:"hour"`
	HeatingPct  float64 `json:"heating_pct"`
	CoolingPct  float64 `json:"cooling_pct"`
	ActivePct   float64 `json:"active_pct"`
	SampleCount int     `json:"sample_count"`
}

// ActivityHeatmap buckets the window's samples into a 7x24 grid using
// local time derived from the configured fixed UTC offset. The offset is
// not DST-aware; callers wanting wall-clock fidelity across transitions
// should pick the zone's standard offset and accept the hour of skew.
func (e *Engine) ActivityHeatmap(ctx context.Context, sensorID int64, start, end time.Time) ([]HeatmapCell, error) {
	readings, err := e.hvacReadings(ctx, sensorID, start, end)
	if err != nil {
		return nil, err
	}

	type cellCounts struct {
		heating int
		cooling int
		total   int
	}
	grid := make(map[[2]int]*cellCounts)

	for i := range readings {
		local := readings[i].Timestamp.Add(e.params.HeatmapUTCOffset)
		dow := (int(local.Weekday()) + 6) % 7 // Monday=0
		key := [2]int{dow, local.Hour()}

		c, ok := grid[key]
		if !ok {
			c = &cellCounts{}
			grid[key] = c
		}
		switch readings[i].Action() {
		case model.ActionHeating:
			c.heating++
		case model.ActionCooling:
			c.cooling++
		}
		c.total++
	}

	keys := make([][2]int, 0, len(grid))
	for key := range grid {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	cells := make([]HeatmapCell, 0, len(keys))
	for _, key := range keys {
		c := grid[key]
		total := float64(c.total)
		cells = append(cells, HeatmapCell{
			DayOfWeek:   key[0],
			Hour:        key[1],
			HeatingPct:  round1(float64(c.heating) / total * 100),
			CoolingPct:  round1(float64(c.cooling) / total * 100),
			ActivePct:   round1(float64(c.heating+c.cooling) / total * 100),
			SampleCount: c.total,
		})
	}

	return cells, nil
}
