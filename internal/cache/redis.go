// Package cache provides a Redis-backed read-through cache in front of the
// weather and disaster feed clients. Concurrent misses for the same key are
// collapsed into one upstream call.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"weatheralert/internal/config"
)

// NewRedisClient connects to cfg.RedisURL and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Pinger is satisfied by *redis.Client.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthProbe reports Redis reachability to the /health endpoint.
type HealthProbe struct {
	client Pinger
}

// NewHealthProbe wraps a Redis client for health checks.
func NewHealthProbe(client Pinger) *HealthProbe {
	return &HealthProbe{client: client}
}

// Name implements core.HealthProbe.
func (h *HealthProbe) Name() string { return "redis" }

// Check implements core.HealthProbe.
func (h *HealthProbe) Check(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}
