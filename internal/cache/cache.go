// Package cache provides a Redis read-through cache for order lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

type cachedOrder struct {
	Order   domain.Order `json:"order"`
	Version int64        `json:"version"`
}

// OrderCache caches aggregate snapshots keyed by order id. It is strictly a
// read-side optimization: transitions invalidate, never write through, so a
// stale entry can only ever serve a previously committed snapshot.
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *OrderCache {
	return &OrderCache{client: client, ttl: ttl, logger: logger}
}

func key(orderID string) string { return "order:" + orderID }

// Get returns the cached snapshot and version, or ok=false on miss. Cache
// errors degrade to a miss.
func (c *OrderCache) Get(ctx context.Context, orderID string) (domain.Order, int64, bool) {
	raw, err := c.client.Get(ctx, key(orderID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("order cache read failed", "order_id", orderID, "error", err)
		}
		return domain.Order{}, 0, false
	}
	var entry cachedOrder
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("order cache entry corrupt", "order_id", orderID, "error", err)
		return domain.Order{}, 0, false
	}
	return entry.Order, entry.Version, true
}

// Put stores a snapshot with the configured TTL.
func (c *OrderCache) Put(ctx context.Context, order domain.Order, version int64) {
	raw, err := json.Marshal(cachedOrder{Order: order, Version: version})
	if err != nil {
		c.logger.Warn("order cache marshal failed", "order_id", order.OrderID, "error", err)
		return
	}
	if err := c.client.Set(ctx, key(order.OrderID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("order cache write failed", "order_id", order.OrderID, "error", err)
	}
}

// Invalidate drops the cached snapshot after a transition commits.
func (c *OrderCache) Invalidate(ctx context.Context, orderID string) error {
	if err := c.client.Del(ctx, key(orderID)).Err(); err != nil {
		return fmt.Errorf("invalidate order %s: %w", orderID, err)
	}
	return nil
}
