// Package loader - Configuration Types
//
// LOCATION: internal/loader/types.go
//
// Defines the YAML configuration structure for climated.
//
// ARCHITECTURE:
//
//   ┌─────────────────────────────────────────────────────────────────┐
//   │                         config.yaml                             │
//   ├─────────────────────────────────────────────────────────────────┤
//   │                                                                 │
//   │  server:          Listen address, timeouts, CORS, shutdown      │
//   │  database:        DuckDB path, pool, batching, retention        │
//   │  archive:         Parquet cold storage for aged-out readings    │
//   │                                                                 │
//   │  home_assistant:  REST polling of climate/sensor entities       │
//   │  weather:         NWS station polling                           │
//   │  probes:          Optional SNMP equipment probes                │
//   │  mqtt:            Optional statestream ingestion                │
//   │                                                                 │
//   │  collector:       Scheduler worker pool                         │
//   │  engine:          Analytics tuning knobs                        │
//   │  cache:           Redis metric-payload cache                    │
//   │  logging:         Level and format                              │
//   │                                                                 │
//   └─────────────────────────────────────────────────────────────────┘

package loader

import (
	"time"

	"github.com/77degrees/climate-analyzer/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for climated.
type Config struct {
	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Database configures the DuckDB store.
	Database DatabaseConfig `yaml:"database"`

	// Archive configures parquet cold storage for aged-out readings.
	Archive ArchiveConfig `yaml:"archive"`

	// HomeAssistant configures the primary reading source.
	// URL and token here only seed the database settings on first run;
	// afterwards the stored settings win so the UI can change them.
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`

	// Weather configures the NWS observation source.
	Weather WeatherConfig `yaml:"weather"`

	// Probes lists optional SNMP equipment probes (air handlers,
	// condensate pumps, smart vents with SNMP agents).
	Probes []ProbeConfig `yaml:"probes"`

	// MQTT configures optional Home Assistant statestream ingestion.
	MQTT MQTTConfig `yaml:"mqtt"`

	// Collector configures the polling scheduler.
	Collector CollectorConfig `yaml:"collector"`

	// Engine configures analytics computation.
	Engine EngineConfig `yaml:"engine"`

	// Cache configures the Redis metric-payload cache.
	Cache CacheConfig `yaml:"cache"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// =============================================================================
// Server Configuration
// =============================================================================

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	// Format: "host:port" or ":port"
	// Default: "0.0.0.0:8400"
	Listen string `yaml:"listen"`

	// ReadTimeout is the request read timeout.
	// Default: 15s
	ReadTimeout Duration `yaml:"read_timeout"`

	// WriteTimeout is the response write timeout. Long-window metric
	// computations need headroom here.
	// Default: 60s
	WriteTimeout Duration `yaml:"write_timeout"`

	// CORSOrigins lists allowed CORS origins for the dashboard frontend.
	// Empty allows all origins.
	CORSOrigins []string `yaml:"cors_origins"`

	// DrainTimeoutSec is how long to wait for in-flight requests
	// during shutdown.
	// Range: 5-300, Default: 30
	DrainTimeoutSec int `yaml:"drain_timeout_sec"`
}

// =============================================================================
// Database Configuration
// =============================================================================

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file path. Empty means in-memory (testing only).
	// Default: "climate.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the max open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the max idle connections in the pool.
	// Default: 2
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime is the max lifetime of a connection.
	// Default: 5m
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`

	// ReadingBatchSize is the number of readings per multi-row insert.
	// Default: 100
	ReadingBatchSize int `yaml:"reading_batch_size"`

	// RetentionDays is how long raw readings are kept before they are
	// archived and deleted. 0 disables retention.
	// Default: 730
	RetentionDays int `yaml:"retention_days"`
}

// ArchiveConfig configures parquet cold storage.
type ArchiveConfig struct {
	// Enabled enables archiving aged-out readings to parquet files
	// before deletion. When false, retention deletes without archiving.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Dir is the directory for monthly parquet files.
	// Default: "archive"
	Dir string `yaml:"dir"`

	// Compression is the parquet compression codec.
	//   snappy - fast, moderate ratio
	//   zstd   - best ratio (recommended)
	//   gzip   - widely compatible
	//   none   - no compression
	// Default: zstd
	Compression string `yaml:"compression"`
}

// =============================================================================
// Source Configuration
// =============================================================================

// HomeAssistantConfig configures the Home Assistant REST source.
type HomeAssistantConfig struct {
	// URL is the Home Assistant base URL, e.g. "http://ha.local:8123".
	// Use environment variables: "${HA_URL}"
	URL string `yaml:"url"`

	// Token is a long-lived access token.
	// Use environment variables: "${HA_TOKEN}"
	Token string `yaml:"token"`

	// PollInterval is how often entity states are sampled.
	// Default: 5m
	PollInterval Duration `yaml:"poll_interval"`

	// DiscoveryInterval is how often new entities are scanned for.
	// Default: 1h
	DiscoveryInterval Duration `yaml:"discovery_interval"`

	// Timeout is the per-request HTTP timeout.
	// Default: 10s
	Timeout Duration `yaml:"timeout"`
}

// WeatherConfig configures the NWS observation source.
type WeatherConfig struct {
	// Enabled enables outdoor weather collection.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Latitude/Longitude locate the nearest observation station.
	// Defaults: 30.5788, -97.8531
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`

	// StationID pins a specific station (e.g. "KAUS"), skipping
	// resolution from coordinates.
	StationID string `yaml:"station_id"`

	// PollInterval is how often the station is polled.
	// Default: 15m
	PollInterval Duration `yaml:"poll_interval"`

	// Timeout is the per-request HTTP timeout.
	// Default: 15s
	Timeout Duration `yaml:"timeout"`
}

// ProbeConfig defines one SNMP equipment probe.
type ProbeConfig struct {
	// Name labels the probe's synthetic sensor entity
	// ("probe.<name>").
	Name string `yaml:"name"`

	// Host is the agent address.
	Host string `yaml:"host"`

	// Port is the agent port.
	// Default: 161
	Port uint16 `yaml:"port"`

	// Community is the SNMPv2c community string.
	// Default: "public"
	Community string `yaml:"community"`

	// OID is the numeric object identifier to GET.
	OID string `yaml:"oid"`

	// Scale divides the raw integer value (e.g. 10 for tenths of °F).
	// Default: 1
	Scale float64 `yaml:"scale"`

	// Interval is the poll interval.
	// Default: 1m
	Interval Duration `yaml:"interval"`

	// TimeoutMs is the SNMP request timeout in milliseconds.
	// Default: 5000
	TimeoutMs int `yaml:"timeout_ms"`

	// Retries is the number of retry attempts.
	// Default: 2
	Retries int `yaml:"retries"`
}

// MQTTConfig configures Home Assistant statestream ingestion.
type MQTTConfig struct {
	// Enabled enables the MQTT subscriber. When enabled, statestream
	// updates land as readings between REST polls.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// BrokerURL is the broker address, e.g. "tcp://ha.local:1883".
	BrokerURL string `yaml:"broker_url"`

	// TopicPrefix is the statestream base topic.
	// Default: "homeassistant/statestream"
	TopicPrefix string `yaml:"topic_prefix"`

	// ClientID identifies this subscriber to the broker.
	// Default: "climated"
	ClientID string `yaml:"client_id"`

	// Username/Password authenticate to the broker. Optional.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// KeepAlive is the MQTT keepalive interval in seconds.
	// Default: 30
	KeepAlive uint16 `yaml:"keep_alive"`
}

// =============================================================================
// Collector Configuration
// =============================================================================

// CollectorConfig configures the polling scheduler.
type CollectorConfig struct {
	// Workers is the number of concurrent poll workers.
	// Range: 1-64, Default: 4
	Workers int `yaml:"workers"`

	// TickInterval is how often the scheduler checks for due polls.
	// Default: 250ms
	TickInterval Duration `yaml:"tick_interval"`
}

// =============================================================================
// Engine Configuration
// =============================================================================

// EngineConfig configures analytics computation.
type EngineConfig struct {
	// SamplesPerHour is the assumed sampling cadence used when
	// converting sample counts to runtime hours.
	// Default: 12 (5-minute polls)
	SamplesPerHour int `yaml:"samples_per_hour"`

	// RecoveryTimeoutMin judges setpoint-less recovery runs: shorter
	// runs count as successful.
	// Default: 120
	RecoveryTimeoutMin int `yaml:"recovery_timeout_min"`

	// StruggleThreshold is the °F overshoot above target beyond which a
	// cooling sample counts as struggling.
	// Default: 0.5
	StruggleThreshold float64 `yaml:"struggle_threshold"`

	// HeatmapUTCOffset shifts timestamps into local wall time for the
	// 7x24 activity grid. Not DST-aware.
	// Default: -6h (US Central Standard)
	HeatmapUTCOffset Duration `yaml:"heatmap_utc_offset"`

	// TempBinSize is the outdoor-temperature bin width in °F.
	// Default: 5
	TempBinSize float64 `yaml:"temp_bin_size"`
}

// =============================================================================
// Cache Configuration
// =============================================================================

// CacheConfig configures the Redis metric-payload cache.
type CacheConfig struct {
	// Enabled enables caching. When false (or Redis is unreachable)
	// every request recomputes.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Addr is the Redis address.
	// Default: "localhost:6379"
	Addr string `yaml:"addr"`

	// Password authenticates to Redis. Optional.
	Password string `yaml:"password"`

	// DB is the Redis database number.
	// Default: 0
	DB int `yaml:"db"`

	// MetricsTTL is how long computed payloads stay cached.
	// Default: 2m
	MetricsTTL Duration `yaml:"metrics_ttl"`
}

// =============================================================================
// Logging Configuration
// =============================================================================

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// JSON emits structured JSON instead of text.
	// Default: false
	JSON bool `yaml:"json"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          config.DefaultListenAddress,
			ReadTimeout:     Duration(config.DefaultReadTimeout),
			WriteTimeout:    Duration(config.DefaultWriteTimeout),
			DrainTimeoutSec: config.DefaultDrainTimeoutSec,
		},

		Database: DatabaseConfig{
			Path:             config.DefaultDatabasePath,
			MaxOpenConns:     10,
			MaxIdleConns:     2,
			ConnMaxLifetime:  Duration(5 * time.Minute),
			ReadingBatchSize: config.DefaultReadingBatchSize,
			RetentionDays:    config.DefaultRetentionDays,
		},

		Archive: ArchiveConfig{
			Dir:         "archive",
			Compression: "zstd",
		},

		HomeAssistant: HomeAssistantConfig{
			PollInterval:      Duration(config.DefaultHAPollInterval),
			DiscoveryInterval: Duration(config.DefaultDiscoveryInterval),
			Timeout:           Duration(10 * time.Second),
		},

		Weather: WeatherConfig{
			Latitude:     config.DefaultNWSLat,
			Longitude:    config.DefaultNWSLon,
			PollInterval: Duration(config.DefaultNWSPollInterval),
			Timeout:      Duration(15 * time.Second),
		},

		MQTT: MQTTConfig{
			TopicPrefix: "homeassistant/statestream",
			ClientID:    "climated",
			KeepAlive:   30,
		},

		Collector: CollectorConfig{
			Workers:      config.DefaultCollectorWorkers,
			TickInterval: Duration(config.DefaultCollectorTickInterval),
		},

		Engine: EngineConfig{
			SamplesPerHour:     config.DefaultSamplesPerHour,
			RecoveryTimeoutMin: config.DefaultRecoveryTimeoutMin,
			StruggleThreshold:  config.DefaultStruggleThreshold,
			HeatmapUTCOffset:   Duration(config.DefaultHeatmapUTCOffset),
			TempBinSize:        config.DefaultTempBinSize,
		},

		Cache: CacheConfig{
			Addr:       "localhost:6379",
			MetricsTTL: Duration(config.DefaultMetricsCacheTTL),
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// WeatherEnabled reports whether weather collection is on. Nil (unset)
// means enabled.
func (c *Config) WeatherEnabled() bool {
	return c.Weather.Enabled == nil || *c.Weather.Enabled
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int (seconds)
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
