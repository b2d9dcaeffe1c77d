package claim

import (
	"context"
	"testing"
	"time"

	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMini(t *testing.T) (*redis.Client, *mrd.Miniredis) {
	t.Helper()
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, s
}

func TestCoordinator_ReadThenWrite(t *testing.T) {
	rdb, s := newMini(t)
	ctx := context.Background()
	c := New(rdb, "p:queueReadingLock")
	require.Equal(t, ModeReadThenWrite, c.Mode())

	ok, err := c.TryAcquire(ctx, "node-a")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Get("p:queueReadingLock")
	require.NoError(t, err)
	require.Equal(t, "node-a", got)
	require.Equal(t, DefaultTTL, s.TTL("p:queueReadingLock"))

	ok, err = c.TryAcquire(ctx, "node-b")
	require.NoError(t, err)
	require.False(t, ok)

	holder, err := c.Holder(ctx)
	require.NoError(t, err)
	require.Equal(t, "node-a", holder)

	require.NoError(t, c.Release(ctx, "node-a"))
	require.False(t, s.Exists("p:queueReadingLock"))

	ok, err = c.TryAcquire(ctx, "node-b")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCoordinator_FreeValues(t *testing.T) {
	for _, v := range []string{"", "null"} {
		t.Run("value="+v, func(t *testing.T) {
			rdb, s := newMini(t)
			require.NoError(t, s.Set("lock", v))
			c := New(rdb, "lock")

			holder, err := c.Holder(context.Background())
			require.NoError(t, err)
			assert.Empty(t, holder)

			ok, err := c.TryAcquire(context.Background(), "me")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestCoordinator_ReleaseIsUnconditional(t *testing.T) {
	rdb, s := newMini(t)
	c := New(rdb, "lock")
	ok, err := c.TryAcquire(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Release(context.Background(), "b"))
	require.False(t, s.Exists("lock"))
}

func TestCoordinator_SafetyTTL(t *testing.T) {
	rdb, s := newMini(t)
	c := New(rdb, "lock", WithTTL(2*time.Second))

	ok, err := c.TryAcquire(context.Background(), "crashed")
	require.NoError(t, err)
	require.True(t, ok)

	s.FastForward(3 * time.Second)
	ok, err = c.TryAcquire(context.Background(), "next")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCoordinator_NoTTL(t *testing.T) {
	rdb, s := newMini(t)
	c := New(rdb, "lock", WithTTL(-1))
	ok, err := c.TryAcquire(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Duration(0), s.TTL("lock"))
}

func TestCoordinator_SetIfAbsent(t *testing.T) {
	rdb, _ := newMini(t)
	ctx := context.Background()
	c := New(rdb, "lock", WithMode(ModeSetIfAbsent))

	ok, err := c.TryAcquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.TryAcquire(ctx, "b")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Release(ctx, "a"))
	ok, err = c.TryAcquire(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCoordinator_SetIfAbsent_FreeValues(t *testing.T) {
	for _, v := range []string{"", "null"} {
		t.Run("value="+v, func(t *testing.T) {
			rdb, s := newMini(t)
			require.NoError(t, s.Set("lock", v))
			c := New(rdb, "lock", WithMode(ModeSetIfAbsent), WithTTL(10*time.Second))

			ok, err := c.TryAcquire(context.Background(), "a")
			require.NoError(t, err)
			require.True(t, ok)
			got, err := s.Get("lock")
			require.NoError(t, err)
			assert.Equal(t, "a", got)
			assert.Equal(t, 10*time.Second, s.TTL("lock"))
		})
	}
}

func TestCoordinator_StoreError(t *testing.T) {
	rdb, s := newMini(t)
	s.Close()

	_, err := New(rdb, "lock").TryAcquire(context.Background(), "a")
	require.Error(t, err)
	_, err = New(rdb, "lock", WithMode(ModeSetIfAbsent)).TryAcquire(context.Background(), "a")
	require.Error(t, err)
	require.Error(t, New(rdb, "lock").Release(context.Background(), "a"))
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "read-then-write", ModeReadThenWrite.String())
	assert.Equal(t, "set-if-absent", ModeSetIfAbsent.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}
