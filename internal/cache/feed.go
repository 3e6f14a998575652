package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"inkwell/internal/domain"
)

const (
	feedKey        = "inkwell:feed:published"
	defaultFeedTTL = 30 * time.Second
)

// FeedCache keeps the published-creations feed in Redis for a short TTL.
// A nil *FeedCache is valid and behaves as a permanent miss, so callers can
// wire it unconditionally and rely on configuration to enable caching.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFeedCache connects to Redis at the given URL. An empty URL disables
// caching and returns nil without error.
func NewFeedCache(url string, ttl time.Duration) (*FeedCache, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultFeedTTL
	}
	return &FeedCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Get returns the cached feed, with ok=false on miss or when disabled.
func (c *FeedCache) Get(ctx context.Context) ([]domain.Creation, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, feedKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("feed cache get: %w", err)
	}
	var creations []domain.Creation
	if err := json.Unmarshal(raw, &creations); err != nil {
		// Stale or foreign payload: treat as a miss and let it expire.
		return nil, false, nil
	}
	return creations, true, nil
}

// Set stores the feed under the configured TTL.
func (c *FeedCache) Set(ctx context.Context, creations []domain.Creation) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(creations)
	if err != nil {
		return fmt.Errorf("feed cache set: %w", err)
	}
	if err := c.client.Set(ctx, feedKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("feed cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached feed, typically after a published creation is
// inserted so the community feed picks it up immediately.
func (c *FeedCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, feedKey).Err(); err != nil {
		return fmt.Errorf("feed cache invalidate: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *FeedCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
