/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based cache for computed slot lists. It is
// strictly a read-path accelerator: the authoritative conflict check at
// commit time means a stale slot list can never corrupt the ledger.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/mimir_hire/internal/interval"
)

// DefaultSlotTTL bounds staleness of cached slot lists.
const DefaultSlotTTL = 30 * time.Second

const keyPrefix = "mimir:cache:slots:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SlotTTL       time.Duration

	// DisableOnError trips the circuit breaker on the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		SlotTTL:        DefaultSlotTTL,
		DisableOnError: true,
	}
}

// SlotCache provides Redis-backed slot caching with graceful fallback:
// when Redis is missing or erroring, every lookup is a miss.
type SlotCache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a slot cache. An unreachable Redis yields a disabled cache,
// not an error.
func New(cfg Config, logger zerolog.Logger) *SlotCache {
	if cfg.SlotTTL <= 0 {
		cfg.SlotTTL = DefaultSlotTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	scoped := logger.With().Str("component", "slot_cache").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		scoped.Warn().Err(err).Msg("Redis unavailable, slot caching disabled")
		return &SlotCache{logger: scoped, config: cfg, disabled: true}
	}

	scoped.Info().Str("addr", cfg.RedisAddr).Msg("slot cache initialized")
	return &SlotCache{client: client, logger: scoped, config: cfg}
}

// Disabled returns a cache that never hits, for deployments without Redis.
func Disabled(logger zerolog.Logger) *SlotCache {
	return &SlotCache{
		logger:   logger.With().Str("component", "slot_cache").Logger(),
		disabled: true,
	}
}

// Key builds the cache key for one slot query.
func Key(day time.Time, mode, interviewerID string) string {
	if interviewerID == "" {
		interviewerID = "any"
	}
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, day.Format("2006-01-02"), mode, interviewerID)
}

// Get retrieves a cached slot list. The second return reports a hit.
func (c *SlotCache) Get(ctx context.Context, key string) ([]interval.Interval, bool) {
	if !c.available() {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.handleError(err, "get")
		return nil, false
	}

	var slots []interval.Interval
	if err := json.Unmarshal(data, &slots); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached slots")
		return nil, false
	}
	return slots, true
}

// Set stores a slot list under the configured TTL.
func (c *SlotCache) Set(ctx context.Context, key string, slots []interval.Interval) {
	if !c.available() {
		return
	}

	data, err := json.Marshal(slots)
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to marshal slots")
		return
	}
	if err := c.client.Set(ctx, key, data, c.config.SlotTTL).Err(); err != nil {
		c.handleError(err, "set")
	}
}

// InvalidateDay drops every cached slot list for a calendar day. Called
// after each ledger mutation so readers converge quickly; the short TTL
// covers anything this misses.
func (c *SlotCache) InvalidateDay(ctx context.Context, day time.Time) {
	if !c.available() {
		return
	}

	pattern := keyPrefix + day.Format("2006-01-02") + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.handleError(err, "del")
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.handleError(err, "scan")
	}
}

// Close closes the Redis connection.
func (c *SlotCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *SlotCache) available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *SlotCache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")
	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling slot cache due to Redis error")
	}
}
