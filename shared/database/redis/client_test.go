package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeCmdable serves the handful of commands Client issues from a map
type fakeCmdable struct {
	redis.Cmdable
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(value), nil)
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.err)
}

func TestClientSetGetDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCmdable()
	client := NewClientWithCmdable(DefaultConfig(), fake, zaptest.NewLogger(t))

	key := client.Key("order-listing", "order-1")
	assert.Equal(t, "bulkshare:order-listing:order-1", key)

	var out cachedLookup
	assert.ErrorIs(t, client.Get(ctx, key, &out), ErrCacheMiss)

	require.NoError(t, client.Set(ctx, key, cachedLookup{OrderID: "order-1", ListingID: "listing-1"}, time.Hour))
	assert.Equal(t, time.Hour, fake.ttls[key])

	require.NoError(t, client.Get(ctx, key, &out))
	assert.Equal(t, "listing-1", out.ListingID)

	require.NoError(t, client.Delete(ctx, key))
	assert.ErrorIs(t, client.Get(ctx, key, &out), ErrCacheMiss)

	assert.NoError(t, client.Ping(ctx))
	assert.NoError(t, client.Close())
}

func TestClientSurfacesBackendErrors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCmdable()
	fake.err = errors.New("connection refused")
	client := NewClientWithCmdable(DefaultConfig(), fake, zaptest.NewLogger(t))

	var out cachedLookup
	err := client.Get(ctx, "k", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.Error(t, client.Set(ctx, "k", cachedLookup{}, time.Minute))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Address = ""
	assert.Error(t, cfg.Validate())
}
