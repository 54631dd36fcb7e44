package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/cartsync/internal/core/ports"
	"github.com/storefront/cartsync/internal/pkg/config"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), config.RedisConfig{Addr: mr.Addr(), PoolSize: 4}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, zerolog.Nop())
	assert.ErrorContains(t, err, "127.0.0.1:1")
}

func TestOptions_FromConfig(t *testing.T) {
	opts := Options(config.RedisConfig{Addr: "cache:6379", DB: 2, Password: "pw", PoolSize: 7})
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, defaultDialTimeout, opts.DialTimeout)

	opts = Options(config.RedisConfig{DialTimeout: time.Second})
	assert.Equal(t, time.Second, opts.DialTimeout)
}

func TestStorage_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)
	s := NewStorage(client, "")

	_, ok, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "auth_token", "abc"))
	v, ok, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	assert.True(t, mr.Exists(KeyPrefix+"auth_token"))

	require.NoError(t, s.Delete(ctx, "auth_token"))
	_, ok, err = s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Delete(ctx, "auth_token"), "deleting a missing key is fine")
}

func TestStorage_WatchSeesForeignWritesOnly(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	a, b := NewStorage(client, ""), NewStorage(client, "")
	require.NotEqual(t, a.Origin(), b.Origin())

	events := make(chan ports.StorageEvent, 4)
	stop, err := a.Watch(ctx, func(ev ports.StorageEvent) { events <- ev })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, a.Set(ctx, "cart-storage/v1", "{}"))
	require.NoError(t, b.Set(ctx, "auth_token", "t"))

	select {
	case ev := <-events:
		assert.Equal(t, "auth_token", ev.Key)
		assert.Equal(t, b.Origin(), ev.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("no storage event delivered")
	}

	require.NoError(t, b.Delete(ctx, "auth_token"))
	select {
	case ev := <-events:
		assert.Equal(t, "auth_token", ev.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("no delete event delivered")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRevocationStore(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)
	r := NewRevocationStore(client)

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry expires with the token")

	require.NoError(t, r.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("revoked:jti-2"))
}
