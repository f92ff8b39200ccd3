package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChecker verifies Redis connectivity
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a checker for the Redis at address
func NewRedisChecker(address, password string, db int) *RedisChecker {
	return &RedisChecker{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

// HealthCheck pings Redis
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisChecker) Close() error {
	return c.client.Close()
}
