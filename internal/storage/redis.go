package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore wraps a backing Store with a Redis cache for the instance tier.
// The backing store stays the source of truth; cache failures only cost a miss.
// A key whose cached copy could not be refreshed or evicted after a commit is
// marked dirty and read from the backing store until an eviction succeeds.
type CachedStore struct {
	backing Store
	client  *redis.Client
	prefix  string
	ttl     time.Duration

	mu    sync.Mutex
	dirty map[string]struct{}
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewCachedStore connects to Redis and wraps backing
func NewCachedStore(ctx context.Context, backing Store, cfg RedisConfig) (*CachedStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newCachedStore(backing, client, cfg), nil
}

func newCachedStore(backing Store, client *redis.Client, cfg RedisConfig) *CachedStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "questledger:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &CachedStore{
		backing: backing,
		client:  client,
		prefix:  prefix + string(TierInstance) + ":",
		ttl:     ttl,
		dirty:   make(map[string]struct{}),
	}
}

// Get serves instance reads from Redis, falling back to the backing store
func (s *CachedStore) Get(ctx context.Context, tier Tier, key string) ([]byte, bool, error) {
	if tier != TierInstance {
		return s.backing.Get(ctx, tier, key)
	}

	if s.isDirty(key) {
		if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
			slog.Warn("redis stale key still present", "key", key, "error", err)
			return s.backing.Get(ctx, tier, key)
		}
		s.clearDirty(key)
	}

	cached, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == nil {
		return cached, true, nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.Warn("redis cache read failed", "key", key, "error", err)
	}

	value, ok, err := s.backing.Get(ctx, tier, key)
	if err != nil || !ok {
		return value, ok, err
	}

	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		slog.Warn("redis cache fill failed", "key", key, "error", err)
	}

	return value, true, nil
}

// Commit writes to the backing store, then refreshes cached instance keys.
// Keys that can be neither refreshed nor evicted are marked dirty.
func (s *CachedStore) Commit(ctx context.Context, muts []Mutation) error {
	if err := s.backing.Commit(ctx, muts); err != nil {
		return err
	}

	var keys []string
	for _, m := range muts {
		if m.Tier == TierInstance {
			keys = append(keys, m.Key)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range muts {
			if m.Tier != TierInstance {
				continue
			}
			if m.Delete {
				pipe.Del(ctx, s.prefix+m.Key)
				continue
			}
			pipe.Set(ctx, s.prefix+m.Key, m.Value, s.ttl)
		}
		return nil
	})
	if err == nil {
		s.clearDirty(keys...)
		return nil
	}

	slog.Warn("redis cache refresh failed, evicting", "keys", len(keys), "error", err)
	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = s.prefix + key
	}
	if err := s.client.Del(ctx, cacheKeys...).Err(); err != nil {
		slog.Error("redis cache eviction failed, bypassing cache for keys", "keys", keys, "error", err)
		s.markDirty(keys...)
		return nil
	}
	s.clearDirty(keys...)

	return nil
}

func (s *CachedStore) isDirty(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirty[key]
	return ok
}

func (s *CachedStore) markDirty(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.dirty[key] = struct{}{}
	}
}

func (s *CachedStore) clearDirty(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.dirty, key)
	}
}

// Ping checks both the cache and the backing store
func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return s.backing.Ping(ctx)
}

// Close closes the Redis client and the backing store
func (s *CachedStore) Close() error {
	cacheErr := s.client.Close()
	if err := s.backing.Close(); err != nil {
		return err
	}
	return cacheErr
}
