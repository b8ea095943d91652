package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces advisory locks in Redis.
const KeyPrefix = "lock:"

// ErrNotAcquired means another holder owns the key.
var ErrNotAcquired = errors.New("lock held by another owner")

// releaseScript deletes the key only while it still carries our token, so an
// expired lock re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out short-lived advisory locks backed by SET NX PX.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a locker on client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lock on key for ttl. The returned release func is safe
// to call more than once.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	redisKey := KeyPrefix + key

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.release(redisKey, token)
		})
	}, nil
}

func (l *RedisLocker) release(redisKey, token string) {
	// Release must not depend on the request context being alive.
	rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(rctx, l.client, []string{redisKey}, token).Err(); err != nil {
		log.Warnf("[Lock] Failed to release %s: %v", redisKey, err)
	}
}
