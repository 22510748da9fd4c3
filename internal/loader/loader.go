// Package loader handles configuration file loading and validation.
//
// LOCATION: internal/loader/loader.go
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Validating the result
//   - Converting between YAML and internal representations

package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/77degrees/climate-analyzer/internal/errors"
	"github.com/77degrees/climate-analyzer/internal/store"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	// Server validation
	if cfg.Server.Listen == "" {
		errs.AddField("server.listen", "cannot be empty")
	}
	if cfg.Server.DrainTimeoutSec < 0 {
		errs.AddField("server.drain_timeout_sec", "cannot be negative")
	}

	// Database validation
	if cfg.Database.ReadingBatchSize <= 0 {
		errs.AddField("database.reading_batch_size", "must be positive")
	}
	if cfg.Database.RetentionDays < 0 {
		errs.AddField("database.retention_days", "cannot be negative")
	}

	// Archive validation
	if cfg.Archive.Enabled {
		if cfg.Archive.Dir == "" {
			errs.AddField("archive.dir", "cannot be empty when enabled")
		}
		switch strings.ToLower(cfg.Archive.Compression) {
		case "", "none", "snappy", "zstd", "gzip":
		default:
			errs.AddField("archive.compression", "must be none, snappy, zstd, or gzip")
		}
	}

	// Weather validation
	if cfg.WeatherEnabled() {
		if cfg.Weather.Latitude < -90 || cfg.Weather.Latitude > 90 {
			errs.AddField("weather.latitude", "must be within [-90, 90]")
		}
		if cfg.Weather.Longitude < -180 || cfg.Weather.Longitude > 180 {
			errs.AddField("weather.longitude", "must be within [-180, 180]")
		}
	}

	// Probe validation
	for i, p := range cfg.Probes {
		if p.Name == "" {
			errs.AddField(fmt.Sprintf("probes[%d].name", i), "cannot be empty")
		}
		if p.Host == "" {
			errs.AddField(fmt.Sprintf("probes[%d].host", i), "cannot be empty")
		}
		if p.OID == "" {
			errs.AddField(fmt.Sprintf("probes[%d].oid", i), "cannot be empty")
		}
	}

	// MQTT validation
	if cfg.MQTT.Enabled && cfg.MQTT.BrokerURL == "" {
		errs.AddField("mqtt.broker_url", "cannot be empty when enabled")
	}

	// Collector validation
	if cfg.Collector.Workers < 1 || cfg.Collector.Workers > 64 {
		errs.AddField("collector.workers", "must be within [1, 64]")
	}

	// Engine validation
	if cfg.Engine.SamplesPerHour <= 0 {
		errs.AddField("engine.samples_per_hour", "must be positive")
	}
	if cfg.Engine.RecoveryTimeoutMin <= 0 {
		errs.AddField("engine.recovery_timeout_min", "must be positive")
	}
	if cfg.Engine.TempBinSize <= 0 {
		errs.AddField("engine.temp_bin_size", "must be positive")
	}

	// Cache validation
	if cfg.Cache.Enabled && cfg.Cache.Addr == "" {
		errs.AddField("cache.addr", "cannot be empty when enabled")
	}

	// Logging validation
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs.AddField("logging.level", "must be debug, info, warn, or error")
	}

	return errs.Err()
}

// =============================================================================
// Conversion: Config → Store Config
// =============================================================================

// ToStoreConfig converts the database configuration to the internal
// store config.
func ToStoreConfig(cfg *DatabaseConfig) store.Config {
	return store.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime.Duration(),
	}
}
