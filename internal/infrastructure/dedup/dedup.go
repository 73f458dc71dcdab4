package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/esports-fantasy/internal/platform/cache"
)

const keyPrefix = "esports-fantasy:dedup:"

// MemoryDeduper grants keys within one process.
type MemoryDeduper struct {
	store *cache.Store
}

func NewMemoryDeduper(store *cache.Store) *MemoryDeduper {
	if store == nil {
		store = cache.NewStore(time.Minute)
	}
	return &MemoryDeduper{store: store}
}

func (d *MemoryDeduper) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("dedup key is required")
	}
	return d.store.SetNX(ctx, keyPrefix+key, struct{}{}, ttl), nil
}

func (d *MemoryDeduper) Release(ctx context.Context, key string) error {
	d.store.Delete(ctx, keyPrefix+strings.TrimSpace(key))
	return nil
}

// RedisDeduper grants keys across every instance sharing the Redis server.
type RedisDeduper struct {
	client redis.Cmdable
}

func NewRedisDeduper(client redis.Cmdable) *RedisDeduper {
	return &RedisDeduper{client: client}
}

// NewRedisClient parses a redis:// or rediss:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (d *RedisDeduper) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("dedup key is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := d.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a key so the next Acquire succeeds before the ttl runs out.
func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if err := d.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
