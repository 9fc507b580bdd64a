package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/entity"
	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
	"github.com/isectech/bulkshare/shared/database/redis"
)

// Cache is the subset of the Redis client the lookup cache needs.
// Get returns redis.ErrCacheMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedOrderLookup is a read-through cache in front of the order lookup
// collection. An order never moves to another listing, so entries only
// expire by TTL. Cache failures are logged and bypassed.
type CachedOrderLookup struct {
	next      repository.OrderLookupRepository
	cache     Cache
	keyPrefix string
	ttl       time.Duration
	logger    *logging.Logger
	metrics   *metrics.Collector
}

// NewCachedOrderLookup wraps next with cache
func NewCachedOrderLookup(next repository.OrderLookupRepository, cache Cache, keyPrefix string, ttl time.Duration, logger *logging.Logger, collector *metrics.Collector) *CachedOrderLookup {
	return &CachedOrderLookup{
		next:      next,
		cache:     cache,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger.WithComponent("order-lookup-cache"),
		metrics:   collector,
	}
}

// ListingIDForOrder implements repository.OrderLookupRepository
func (c *CachedOrderLookup) ListingIDForOrder(ctx context.Context, orderID string) (string, error) {
	var cached entity.OrderLookup
	err := c.cache.Get(ctx, c.key(orderID), &cached)
	switch {
	case err == nil && cached.ListingID != "":
		c.metrics.RecordCacheOperation("get", "hit")
		return cached.ListingID, nil
	case err == nil, errors.Is(err, redis.ErrCacheMiss):
		c.metrics.RecordCacheOperation("get", "miss")
	default:
		c.metrics.RecordCacheOperation("get", "error")
		c.logger.Warn("Order lookup cache read failed", logging.OrderID(orderID), zap.Error(err))
	}

	listingID, err := c.next.ListingIDForOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	c.store(ctx, entity.OrderLookup{OrderID: orderID, ListingID: listingID})
	return listingID, nil
}

// Save implements repository.OrderLookupRepository
func (c *CachedOrderLookup) Save(ctx context.Context, lookup entity.OrderLookup) error {
	if err := c.next.Save(ctx, lookup); err != nil {
		return err
	}
	c.store(ctx, lookup)
	return nil
}

func (c *CachedOrderLookup) store(ctx context.Context, lookup entity.OrderLookup) {
	if err := c.cache.Set(ctx, c.key(lookup.OrderID), lookup, c.ttl); err != nil {
		c.metrics.RecordCacheOperation("set", "error")
		c.logger.Warn("Order lookup cache write failed", logging.OrderID(lookup.OrderID), zap.Error(err))
		return
	}
	c.metrics.RecordCacheOperation("set", "ok")
}

func (c *CachedOrderLookup) key(orderID string) string {
	return c.keyPrefix + ":order-listing:" + orderID
}
