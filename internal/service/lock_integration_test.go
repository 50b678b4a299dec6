//go:build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestSheetLock_HeldPastTTLWhileSaving(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	locker := &redisLocker{client: redislock.New(rdb), ttl: 300 * time.Millisecond}

	release, err := locker.Lock(ctx, "stock:issue:2024-01-01")
	require.NoError(t, err)

	// Several TTLs pass while the save is still running.
	time.Sleep(time.Second)
	_, err = locker.Lock(ctx, "stock:issue:2024-01-01")
	assert.ErrorIs(t, err, ErrSheetBusy)

	release()
	release()

	again, err := locker.Lock(ctx, "stock:issue:2024-01-01")
	require.NoError(t, err)
	again()
}

func TestSheetLock_ExpiresWhenHolderStopsRefreshing(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	// A holder that never refreshes, as after a crash.
	_, err := redislock.New(rdb).Obtain(ctx, "lock:stock:loss:2024-01-01", 200*time.Millisecond, nil)
	require.NoError(t, err)

	locker := &redisLocker{client: redislock.New(rdb), ttl: time.Second}
	_, err = locker.Lock(ctx, "stock:loss:2024-01-01")
	assert.ErrorIs(t, err, ErrSheetBusy)

	time.Sleep(400 * time.Millisecond)
	release, err := locker.Lock(ctx, "stock:loss:2024-01-01")
	require.NoError(t, err)
	release()
}
