// Package config provides configuration defaults and utilities
// for the climate-analyzer application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or environment variables.
package config

import "time"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultListenAddress is the default HTTP server listen address.
	// Override via config: server.listen
	DefaultListenAddress = "0.0.0.0:8400"

	// DefaultReadTimeout is the HTTP server read timeout.
	// Override via config: server.read_timeout
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the HTTP server write timeout.
	// Metric computations over long windows can take a few seconds.
	// Override via config: server.write_timeout
	DefaultWriteTimeout = 60 * time.Second

	// DefaultDrainTimeoutSec is how long to wait for in-flight requests
	// during shutdown. This follows the Kubernetes convention
	// (terminationGracePeriodSeconds = 30s).
	// Override via config: server.drain_timeout_sec
	DefaultDrainTimeoutSec = 30
)

// =============================================================================
// Collector Defaults
// =============================================================================

const (
	// DefaultHAPollInterval is how often Home Assistant states are sampled.
	// Override via config: home_assistant.poll_interval
	DefaultHAPollInterval = 5 * time.Minute

	// DefaultNWSPollInterval is how often the NWS station is polled.
	// NWS observations update roughly every 20 minutes; polling faster
	// just returns the same observation.
	// Override via config: weather.poll_interval
	DefaultNWSPollInterval = 15 * time.Minute

	// DefaultDiscoveryInterval is how often new HA entities are discovered.
	// Override via config: home_assistant.discovery_interval
	DefaultDiscoveryInterval = 1 * time.Hour

	// DefaultCollectorWorkers is the number of concurrent poll workers.
	// Override via config: collector.workers
	DefaultCollectorWorkers = 4

	// DefaultCollectorTickInterval is how often the scheduler checks for
	// due polls.
	// Override via config: collector.tick_interval
	DefaultCollectorTickInterval = 250 * time.Millisecond
)

// =============================================================================
// Engine Defaults
// =============================================================================

const (
	// DefaultSamplesPerHour is the assumed sampling cadence (5-minute
	// polls = 12 samples/hour) used wherever sample counts are converted
	// to runtime hours without a per-bucket density estimate.
	// Override via config: engine.samples_per_hour
	DefaultSamplesPerHour = 12

	// DefaultRecoveryTimeoutMin is the duration threshold used to judge a
	// recovery run successful when no setpoint is recorded.
	// Override via config: engine.recovery_timeout_min
	DefaultRecoveryTimeoutMin = 120

	// DefaultStruggleThreshold is the overshoot (°F above target) beyond
	// which a cooling sample counts as "struggling".
	// Override via config: engine.struggle_threshold
	DefaultStruggleThreshold = 0.5

	// DefaultHeatmapUTCOffset is the fixed offset applied when bucketing
	// samples into the 7x24 activity grid. Central Standard Time.
	// Not DST-aware; set this to your zone's standard offset.
	// Override via config: engine.heatmap_utc_offset
	DefaultHeatmapUTCOffset = -6 * time.Hour

	// DefaultTempBinSize is the outdoor-temperature bin width (°F) for
	// the runtime-vs-temperature histogram.
	// Override via request parameter or config: engine.temp_bin_size
	DefaultTempBinSize = 5.0
)

// =============================================================================
// Storage Defaults
// =============================================================================

const (
	// DefaultDatabasePath is the DuckDB database file location.
	// Override via config: database.path
	DefaultDatabasePath = "climate.db"

	// DefaultReadingBatchSize is the number of readings inserted per
	// multi-row statement.
	// Override via config: database.reading_batch_size
	DefaultReadingBatchSize = 100

	// DefaultRetentionDays is how long raw readings are kept before they
	// are archived to parquet and deleted. 0 disables retention.
	// Override via config: database.retention_days
	DefaultRetentionDays = 730
)

// =============================================================================
// Cache Defaults
// =============================================================================

const (
	// DefaultMetricsCacheTTL is how long computed analytics payloads are
	// cached in Redis. Kept short: a new reading lands every five
	// minutes anyway.
	// Override via config: cache.metrics_ttl
	DefaultMetricsCacheTTL = 2 * time.Minute
)

// =============================================================================
// Weather Defaults
// =============================================================================

const (
	// DefaultNWSLat is the default observation latitude (Leander, TX).
	// Override via config: weather.latitude
	DefaultNWSLat = 30.5788

	// DefaultNWSLon is the default observation longitude.
	// Override via config: weather.longitude
	DefaultNWSLon = -97.8531
)
