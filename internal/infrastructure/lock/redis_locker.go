package lock

import (
	"context"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockTTL       = 30 * time.Second
	defaultRetryInterval = 50 * time.Millisecond
)

// RedisLocker serializes reconciliation per purchase order across instances.
// It layers a Redis SETNX lease over a local KeyedMutex: the mutex keeps
// goroutines of one process off the network, the lease fences other
// processes. The lease carries a random token so only the holder releases.
type RedisLocker struct {
	client        *redis.Client
	local         *KeyedMutex
	keyPrefix     string
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewRedisLocker creates a distributed per-order locker
func NewRedisLocker(client *redis.Client, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client:        client,
		local:         NewKeyedMutex(),
		keyPrefix:     "reconcile:po:",
		ttl:           defaultLockTTL,
		retryInterval: defaultRetryInterval,
		logger:        logger,
	}
}

// releaseScript deletes the lease only when the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire takes the local mutex, then polls for the Redis lease until the
// context expires. Contention past the deadline surfaces as
// CONCURRENT_UPDATE_CONFLICT.
func (l *RedisLocker) Acquire(ctx context.Context, poID uuid.UUID) (func(), error) {
	releaseLocal, err := l.local.Acquire(ctx, poID)
	if err != nil {
		return nil, err
	}

	key := l.keyPrefix + poID.String()
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			releaseLocal()
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-time.After(l.retryInterval):
		case <-ctx.Done():
			releaseLocal()
			return nil, shared.ErrConcurrentUpdateConflict
		}
	}

	release := func() {
		// Release must survive caller cancellation, so it gets its own
		// deadline instead of the request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release order lock, lease will expire",
				zap.String("po_id", poID.String()),
				zap.Error(err),
			)
		}
		releaseLocal()
	}
	return release, nil
}
