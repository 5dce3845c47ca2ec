package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapBackend() *mapBackend {
	return &mapBackend{data: map[string]string{}}
}

func (b *mapBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = fmt.Sprint(value)
	return nil
}

func (b *mapBackend) Get(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	val, ok := b.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (b *mapBackend) Del(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		delete(b.data, key)
	}
	return nil
}

func (b *mapBackend) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func TestGenerateStoresToken(t *testing.T) {
	store := newMapBackend()
	mgr := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := mgr.Generate(ctx, "access-1")
	require.NoError(t, err)
	assert.Equal(t, token, store.data["sess:access-1"])

	ok, err := mgr.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRotateMovesSessionAndBurnsOldKey(t *testing.T) {
	store := newMapBackend()
	mgr := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := mgr.Generate(ctx, "access-1")
	require.NoError(t, err)

	newAccessID, newToken, err := mgr.Rotate(ctx, "access-1", token)
	require.NoError(t, err)
	assert.NotEqual(t, "access-1", newAccessID)
	assert.NotEqual(t, token, newToken)

	_, stale := store.data["sess:access-1"]
	assert.False(t, stale, "old session key must be removed")
	assert.Equal(t, newToken, store.data["sess:"+newAccessID])

	// The old pair is dead now.
	_, _, err = mgr.Rotate(ctx, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateRejectsWrongToken(t *testing.T) {
	store := newMapBackend()
	mgr := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	_, err := mgr.Generate(ctx, "access-1")
	require.NoError(t, err)

	_, _, err = mgr.Rotate(ctx, "access-1", "forged")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, _, err = mgr.Rotate(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeEndsSession(t *testing.T) {
	store := newMapBackend()
	mgr := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	_, err := mgr.Generate(ctx, "access-1")
	require.NoError(t, err)
	require.NoError(t, mgr.Revoke(ctx, "access-1"))

	ok, err := mgr.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
