package lock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const isolatedLockTestRedisDB = 13

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       isolatedLockTestRedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", err)
	}
	require.NoError(t, client.FlushDB(context.Background()).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestRedisLockerExclusive(t *testing.T) {
	locker := NewRedisLocker(newTestRedis(t))
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "netcash:T-1", 5*time.Second)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "netcash:T-1", 5*time.Second)
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := locker.Acquire(ctx, "netcash:T-2", 5*time.Second)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := locker.Acquire(ctx, "netcash:T-1", 5*time.Second)
	require.NoError(t, err)
	again()
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	client := newTestRedis(t)
	locker := NewRedisLocker(client)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "netcash:T-3", 50*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	second, err := locker.Acquire(ctx, "netcash:T-3", 5*time.Second)
	require.NoError(t, err)

	release()
	exists, err := client.Exists(ctx, KeyPrefix+"netcash:T-3").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	second()
}
