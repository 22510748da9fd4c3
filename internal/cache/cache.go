// Package cache provides an optional Redis-backed cache for computed
// metric payloads. The heavy analytics endpoints recompute everything
// from raw readings on each request; a short TTL in front of them keeps
// dashboard refreshes cheap without risking stale numbers.
//
// The cache degrades gracefully: when disabled, unreachable, or failing
// mid-flight, callers fall through to recomputation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/77degrees/climate-analyzer/internal/logging"
	"github.com/77degrees/climate-analyzer/internal/telemetry"
)

var log = logging.Component("cache")

// keyPrefix namespaces all entries so a shared Redis can host other
// services.
const keyPrefix = "climated:metrics:"

// Config holds connection settings.
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache wraps the Redis client. A nil *Cache and a disabled Cache both
// behave as a cache that never hits.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis. A disabled config returns a no-op cache; a
// failed connection is logged and also degrades to a no-op so the
// daemon starts without Redis.
func New(cfg Config) *Cache {
	if !cfg.Enabled {
		return &Cache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, caching disabled", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return &Cache{}
	}

	log.Info("metric cache enabled", "addr", cfg.Addr, "ttl", cfg.TTL)
	return &Cache{client: client, ttl: cfg.TTL}
}

// Enabled reports whether a backing client is connected.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key builds a cache key from an endpoint name and its parameters.
func Key(endpoint string, params ...interface{}) string {
	key := keyPrefix + endpoint
	for _, p := range params {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// Get unmarshals a cached payload into out. Returns false on miss,
// disabled cache, or any Redis/decode failure.
func (c *Cache) Get(ctx context.Context, key string, out interface{}) bool {
	if !c.Enabled() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn("cache get failed", "key", key, "error", err)
		}
		telemetry.CacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn("cache entry corrupt", "key", key, "error", err)
		telemetry.CacheMisses.Inc()
		return false
	}

	telemetry.CacheHits.Inc()
	return true
}

// Set stores a payload under the configured TTL. Failures are logged
// and swallowed.
func (c *Cache) Set(ctx context.Context, key string, v interface{}) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes all metric entries. Called after writes that
// change historical data (sensor edits, settings changes).
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warn("cache scan failed", "error", err)
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			log.Warn("cache invalidate failed", "error", err)
		}
	}
}

// Close releases the client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
