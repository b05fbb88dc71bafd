package crawler

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces dedup keys.
const DefaultRedisPrefix = "ruthless:seen"

// DefaultRedisTTL is how long an idle dedup set survives.
const DefaultRedisTTL = 24 * time.Hour

// RedisCache is a DedupCache shared by every worker and process that uses
// the same run id. Entries live in one Redis set per run and tag, so a new
// run id starts with an empty cache just like MemoryCache.
type RedisCache struct {
	client goredis.UniversalClient
	prefix string
	runID  string
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache scoped to runID.
// An empty prefix or non-positive ttl selects the defaults.
func NewRedisCache(client goredis.UniversalClient, prefix, runID string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		runID:  runID,
		ttl:    ttl,
	}
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Seen implements DedupCache.
func (c *RedisCache) Seen(ctx context.Context, tag, url string) (bool, error) {
	ok, err := c.client.SIsMember(ctx, c.key(tag), url).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query dedup set: %w", err)
	}
	return ok, nil
}

// Mark implements DedupCache. The set's TTL is refreshed on every mark.
func (c *RedisCache) Mark(ctx context.Context, tag, url string) error {
	key := c.key(tag)
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, url)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update dedup set: %w", err)
	}
	return nil
}

func (c *RedisCache) key(tag string) string {
	return c.prefix + ":" + c.runID + ":" + tag
}
