package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCmdable struct {
	data        map[string]string
	counters    map[string]int64
	expireCalls []string
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{
		data:     map[string]string{},
		counters: map[string]int64{},
	}
}

func (f *fakeCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeCmdable) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCmdable) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expireCalls = append(f.expireCalls, key)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestIncrWithTTLArmsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCmdable()
	client := &Client{store: fake}

	count, err := client.IncrWithTTL(ctx, "rl:login", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, fake.expireCalls, 1, "TTL set when the key is created")

	count, err = client.IncrWithTTL(ctx, "rl:login", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Len(t, fake.expireCalls, 1, "TTL must not be re-armed")
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeCmdable()}

	key := client.AccessSessionKey("access-1")
	require.NoError(t, client.Set(ctx, key, "refresh-token", 10*time.Minute))

	token, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", token)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestSetNXOnlyFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeCmdable()}

	ok, err := client.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessSessionKeyIsNamespaced(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "librarium:session:access:access-1", client.AccessSessionKey("access-1"))
}

func TestUninitializedClientErrors(t *testing.T) {
	ctx := context.Background()
	client := &Client{}

	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0), errNotInitialized)
	_, err := client.Get(ctx, "k")
	assert.ErrorIs(t, err, errNotInitialized)
	_, err = client.IncrWithTTL(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.ErrorIs(t, client.Ping(ctx), errNotInitialized)
}
