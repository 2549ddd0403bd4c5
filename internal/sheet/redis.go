package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "registro:sheet:"

// RedisCache stores snapshots as JSON in Redis so several server processes
// share one cache.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a Cache backed by rdb with entries expiring after ttl.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, sheet string) (Snapshot, bool, error) {
	val, err := r.rdb.Get(ctx, redisKeyPrefix+sheet).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode cached %s: %w", sheet, err)
	}
	return snap, true, nil
}

func (r *RedisCache) Set(ctx context.Context, snap Snapshot) error {
	if r.ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisKeyPrefix+snap.Sheet, b, r.ttl).Err()
}

func (r *RedisCache) Invalidate(ctx context.Context, sheet string) error {
	return r.rdb.Del(ctx, redisKeyPrefix+sheet).Err()
}

// RedisLocker locks sheets across processes with redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker returns a Locker holding locks for at most ttl and waiting
// up to wait to obtain one.
func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, wait: wait}
}

func (r *RedisLocker) Lock(ctx context.Context, sheet string) (func(), error) {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(r.wait/(100*time.Millisecond))),
	}

	lock, err := r.client.Obtain(ctx, redisKeyPrefix+"lock:"+sheet, r.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock for %s: %w", sheet, err)
	}

	return func() {
		// Release with a fresh context: the request context may already be done.
		_ = lock.Release(context.Background())
	}, nil
}
