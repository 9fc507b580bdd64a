package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by Get when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// Client is a standalone Redis client guarded by a circuit breaker.
// Values are stored through EncodeValue/DecodeValue.
type Client struct {
	config         *Config
	client         redis.Cmdable
	closer         func() error
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
}

// NewClient creates the client and verifies connectivity
func NewClient(ctx context.Context, config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
		IdleTimeout:  config.IdleTimeout,
	})

	client := NewClientWithCmdable(config, rdb, logger)
	client.closer = rdb.Close

	pingCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	client.logger.Info("Redis client initialized", zap.String("address", config.Address))
	return client, nil
}

// NewClientWithCmdable wraps an existing go-redis handle
func NewClientWithCmdable(config *Config, cmd redis.Cmdable, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &Client{
		config: config,
		client: cmd,
		logger: logger,
		closer: func() error { return nil },
	}

	client.circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-client",
		MaxRequests: config.CircuitBreaker.MaxRequests,
		Interval:    config.CircuitBreaker.Interval,
		Timeout:     config.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.CircuitBreaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return client
}

// Key joins parts under the configured prefix
func (c *Client) Key(parts ...string) string {
	if c.config.KeyPrefix == "" {
		return strings.Join(parts, ":")
	}
	return c.config.KeyPrefix + ":" + strings.Join(parts, ":")
}

// Ping tests the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.client.Ping(ctx).Result()
	})
	return err
}

// Get loads key into dest, returning ErrCacheMiss when absent
func (c *Client) Get(ctx context.Context, key string, dest interface{}) error {
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		payload, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return payload, err
	})
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	payload, _ := result.([]byte)
	if payload == nil {
		return ErrCacheMiss
	}
	return DecodeValue(payload, dest, c.config.Serialization, c.config.Compression)
}

// Set stores value under key with the given TTL (0 keeps it forever)
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := EncodeValue(value, c.config.Serialization, c.config.Compression)
	if err != nil {
		return err
	}

	_, err = c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.client.Set(ctx, key, payload, ttl).Result()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.client.Del(ctx, keys...).Result()
	})
	return err
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	return c.closer()
}
