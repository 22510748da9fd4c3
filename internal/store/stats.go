// LOCATION: internal/store/stats.go
//
// Database statistics and per-sensor value distributions. Distributions
// stream values into a DDSketch so percentile queries stay cheap even on
// long windows.

package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// Stats summarizes database contents for the stats endpoint.
type Stats struct {
	SensorCount   int64     `json:"sensor_count"`
	ZoneCount     int64     `json:"zone_count"`
	ReadingCount  int64     `json:"reading_count"`
	WeatherCount  int64     `json:"weather_count"`
	OldestReading time.Time `json:"oldest_reading"`
	NewestReading time.Time `json:"newest_reading"`
	FileSizeBytes int64     `json:"file_size_bytes"`
}

// GetStats returns table counts, the reading time range, and the
// database file size (0 for in-memory databases).
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM sensors`, &stats.SensorCount},
		{`SELECT COUNT(*) FROM zones`, &stats.ZoneCount},
		{`SELECT COUNT(*) FROM readings`, &stats.ReadingCount},
		{`SELECT COUNT(*) FROM weather_observations`, &stats.WeatherCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	oldest, newest, err := s.ReadingRange(ctx)
	if err != nil {
		return nil, err
	}
	stats.OldestReading = oldest
	stats.NewestReading = newest

	if s.config.Path != "" {
		if fi, err := os.Stat(s.config.Path); err == nil {
			stats.FileSizeBytes = fi.Size()
		}
	}

	return stats, nil
}

// =============================================================================
// Value Distribution
// =============================================================================

// Distribution summarizes the spread of a sensor's values over a window.
type Distribution struct {
	Count int64    `json:"count"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	Avg   float64  `json:"avg"`
	P50   *float64 `json:"p50,omitempty"`
	P95   *float64 `json:"p95,omitempty"`
	P99   *float64 `json:"p99,omitempty"`
}

// ValueDistribution streams a sensor's non-null values in [start, end]
// through a DDSketch (1% relative accuracy) and returns the summary.
// Returns an all-zero Distribution when the window holds no values.
func (s *Store) ValueDistribution(ctx context.Context, sensorID int64, start, end time.Time) (*Distribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value FROM readings
		WHERE sensor_id = ? AND timestamp >= ? AND timestamp <= ? AND value IS NOT NULL
	`, sensorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return nil, fmt.Errorf("create sketch: %w", err)
	}

	dist := &Distribution{}
	var sum float64

	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		if dist.Count == 0 || v < dist.Min {
			dist.Min = v
		}
		if dist.Count == 0 || v > dist.Max {
			dist.Max = v
		}
		sum += v
		dist.Count++
		// Indoor temperatures are always positive; the sketch rejects
		// non-positive values, which we simply skip for percentiles.
		if v > 0 {
			sketch.Add(v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if dist.Count == 0 {
		return dist, nil
	}
	dist.Avg = sum / float64(dist.Count)

	if sketch.GetCount() > 0 {
		quantiles, err := sketch.GetValuesAtQuantiles([]float64{0.5, 0.95, 0.99})
		if err == nil && len(quantiles) == 3 {
			dist.P50 = &quantiles[0]
			dist.P95 = &quantiles[1]
			dist.P99 = &quantiles[2]
		}
	}

	return dist, nil
}
