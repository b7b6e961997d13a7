package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// RedisClient caches the most recent bar per series so the HTTP API can
// serve "latest" reads without touching the store.
type RedisClient struct {
	client *redis.Client
	logger *logrus.Entry
	ttl    time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig, logger *logrus.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		logger: logger.WithField("component", "redis"),
		ttl:    cfg.TTL,
	}, nil
}

// Close closes the Redis connection
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// Health checks Redis health
func (rc *RedisClient) Health(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func latestBarKey(table string) string {
	return "latest_bar:" + table
}

// SetLatestBar stores the newest bar of a series table.
func (rc *RedisClient) SetLatestBar(ctx context.Context, table string, bar models.BarRow) error {
	data, err := json.Marshal(bar)
	if err != nil {
		return fmt.Errorf("failed to marshal bar: %w", err)
	}

	if err := rc.client.Set(ctx, latestBarKey(table), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache latest bar for %s: %w", table, err)
	}

	return nil
}

// GetLatestBar returns the cached newest bar of a series table, or nil on
// a cache miss.
func (rc *RedisClient) GetLatestBar(ctx context.Context, table string) (*models.BarRow, error) {
	data, err := rc.client.Get(ctx, latestBarKey(table)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest bar for %s: %w", table, err)
	}

	var bar models.BarRow
	if err := json.Unmarshal(data, &bar); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bar: %w", err)
	}

	return &bar, nil
}
