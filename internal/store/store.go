// Package store provides database operations for the climate-analyzer
// application.
//
// This package handles all persistence: zones, sensors, readings,
// weather observations, and settings. It uses DuckDB as the backing
// database, which keeps point inserts cheap while making the engine's
// window queries (range scans per sensor) fast.
//
// Store implements the engine's SampleSource, WeatherSource, and
// LatestSource contracts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// =============================================================================
// Store Configuration
// =============================================================================

// Config holds store configuration options.
type Config struct {
	// Path is the database file location. Empty means in-memory.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// =============================================================================
// Store
// =============================================================================

// Store provides database operations.
//
// Store is safe for concurrent use: DuckDB supports one writer with
// concurrent readers, and the collector is the only writer.
type Store struct {
	db     *sql.DB
	config Config
	mu     sync.RWMutex
	closed bool
}

// New creates a new Store, opening (or creating) the database and
// applying the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:     db,
		config: cfg,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// DB returns the underlying database connection.
// Use with caution - prefer using Store methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// =============================================================================
// Schema
// =============================================================================

var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS zone_id_seq`,
	`CREATE SEQUENCE IF NOT EXISTS sensor_id_seq`,
	`CREATE TABLE IF NOT EXISTS zones (
		id         BIGINT PRIMARY KEY DEFAULT nextval('zone_id_seq'),
		name       VARCHAR NOT NULL UNIQUE,
		color      VARCHAR NOT NULL DEFAULT '#06b6d4',
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sensors (
		id            BIGINT PRIMARY KEY DEFAULT nextval('sensor_id_seq'),
		entity_id     VARCHAR NOT NULL UNIQUE,
		friendly_name VARCHAR NOT NULL DEFAULT '',
		domain        VARCHAR NOT NULL,
		device_class  VARCHAR,
		unit          VARCHAR,
		zone_id       BIGINT,
		is_outdoor    BOOLEAN NOT NULL DEFAULT false,
		is_tracked    BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS readings (
		sensor_id     BIGINT NOT NULL,
		timestamp     TIMESTAMP NOT NULL,
		value         DOUBLE,
		hvac_action   VARCHAR,
		hvac_mode     VARCHAR,
		setpoint_heat DOUBLE,
		setpoint_cool DOUBLE,
		fan_mode      VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS ix_readings_sensor_time ON readings (sensor_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS weather_observations (
		timestamp   TIMESTAMP NOT NULL,
		source      VARCHAR NOT NULL DEFAULT 'nws',
		temperature DOUBLE,
		humidity    DOUBLE,
		wind_speed  DOUBLE,
		condition   VARCHAR,
		pressure    DOUBLE,
		dewpoint    DOUBLE,
		heat_index  DOUBLE
	)`,
	`CREATE INDEX IF NOT EXISTS ix_weather_time ON weather_observations (timestamp)`,
	`CREATE TABLE IF NOT EXISTS app_settings (
		key   VARCHAR PRIMARY KEY,
		value VARCHAR NOT NULL DEFAULT ''
	)`,
}

// migrate applies the schema. Statements are idempotent.
func (s *Store) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// =============================================================================
// Transaction Support
// =============================================================================

// Transaction executes a function within a database transaction.
//
// If the function returns an error, the transaction is rolled back.
// If the function returns nil, the transaction is committed.
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	return s.TransactionContext(context.Background(), fn)
}

// TransactionContext executes a function within a database transaction
// with context.
func (s *Store) TransactionContext(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
