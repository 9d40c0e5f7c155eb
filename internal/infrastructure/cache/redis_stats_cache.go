package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appfees "github.com/feeledger/backend/internal/application/fees"
	"github.com/feeledger/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const statsKeyPrefix = "dashboard:stats:"

// RedisStatsCache implements the dashboard StatsCache on Redis so multiple
// instances serve the same cached overview.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatsCache connects to Redis and returns a stats cache.
func NewRedisStatsCache(cfg config.RedisConfig, ttl time.Duration) (*RedisStatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStatsCacheWithClient(client, ttl), nil
}

// NewRedisStatsCacheWithClient creates a cache over an existing Redis client.
// Useful for tests or when sharing a client across components.
func NewRedisStatsCacheWithClient(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStatsCache{client: client, ttl: ttl}
}

// Get returns the cached stats for an academic year, or (nil, nil) on a miss.
func (c *RedisStatsCache) Get(ctx context.Context, academicYear string) (*appfees.DashboardStats, error) {
	data, err := c.client.Get(ctx, statsKeyPrefix+academicYear).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats cache: %w", err)
	}

	var stats appfees.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		// A corrupt entry counts as a miss; the next Set overwrites it.
		return nil, nil
	}
	return &stats, nil
}

// Set stores stats under their academic year with the configured TTL.
func (c *RedisStatsCache) Set(ctx context.Context, stats *appfees.DashboardStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKeyPrefix+stats.AcademicYear, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stats cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached stats for an academic year.
func (c *RedisStatsCache) Invalidate(ctx context.Context, academicYear string) error {
	if err := c.client.Del(ctx, statsKeyPrefix+academicYear).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats cache: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisStatsCache) Close() error {
	return c.client.Close()
}

// Ensure RedisStatsCache implements StatsCache
var _ appfees.StatsCache = (*RedisStatsCache)(nil)
