package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheSetGetExpire(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, srv.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(ctx, "alert:a1", []byte(`{"score":85}`), time.Minute))
	assert.True(t, srv.Exists("agentradar:alert:a1"))

	got, err := c.Get(ctx, "alert:a1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":85}`, string(got))

	srv.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "alert:a1")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestRedisCacheRequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := NewRedisCache(context.Background(), "", "", 0)
	assert.Error(t, err)
}

func TestRedisCachePingFailure(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisCache(context.Background(), addr, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
