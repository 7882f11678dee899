package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nahankar/shatika/internal/cache"
	"github.com/nahankar/shatika/internal/domain"
)

const keyPrefix = "product:summary:"

// ProductCache implements cache.ProductCache using Redis.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ cache.ProductCache = (*ProductCache)(nil)

// NewProductCache creates a new Redis-backed product summary cache.
func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: client,
		ttl:    ttl,
	}
}

// GetSummaries fetches all ids with a single MGET.
func (c *ProductCache) GetSummaries(ctx context.Context, ids []string) (map[string]domain.ProductSummary, []string, error) {
	found := make(map[string]domain.ProductSummary, len(ids))
	if len(ids) == 0 {
		return found, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("redis mget product summaries: %w", err)
	}

	var missing []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var s domain.ProductSummary
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			// A corrupt entry is treated as a miss and overwritten on the next set.
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = s
	}
	return found, missing, nil
}

// SetSummaries writes the summaries in one pipeline with the configured TTL.
func (c *ProductCache) SetSummaries(ctx context.Context, summaries map[string]domain.ProductSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for id, s := range summaries {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal product summary: %w", err)
		}
		pipe.Set(ctx, keyPrefix+id, data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set product summaries: %w", err)
	}
	return nil
}

// Invalidate removes the summaries for ids.
func (c *ProductCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del product summaries: %w", err)
	}
	return nil
}

// InvalidateAll scans for every summary key and deletes them in batches.
func (c *ProductCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("redis scan product summaries: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del product summaries: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
