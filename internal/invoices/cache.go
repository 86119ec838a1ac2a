package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "invoices:version"

// StatusCache caches derived invoice summaries in Redis behind a global
// version counter. Any write that can change a summary bumps the version,
// which orphans every cached key at once. All methods are nil-safe: a nil
// cache always falls through to the loader.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func (c *StatusCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *StatusCache) key(ctx context.Context, invoiceNumber string) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", strings.Join([]string{"invoices", "summary", invoiceNumber}, ":"), ver), nil
}

// FetchSummary loads a cached summary or populates it using the loader.
func (c *StatusCache) FetchSummary(ctx context.Context, invoiceNumber string, loader func(context.Context) (Summary, error)) (Summary, error) {
	if loader == nil {
		return Summary{}, errors.New("invoices: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.key(ctx, invoiceNumber)
	if err != nil {
		return Summary{}, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var summary Summary
		if err := json.Unmarshal(payload, &summary); err == nil {
			return summary, nil
		}
	} else if err != redis.Nil {
		return Summary{}, err
	}

	summary, err := loader(ctx)
	if err != nil {
		return Summary{}, err
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return Summary{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Bump invalidates every cached summary by incrementing the global version.
func (c *StatusCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
