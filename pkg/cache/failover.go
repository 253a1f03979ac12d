package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Cache operating modes reported by FailoverCache.Mode.
const (
	ModeRedis  = "redis"
	ModeMemory = "memory"
)

// FailoverCache serves from Redis and degrades to the in-process cache when
// Redis is unreachable. Degradation is sticky for simplicity: once a Redis
// operation fails with a transport error the instance stays on memory until
// restart. A nil primary starts degraded.
type FailoverCache struct {
	primary  *RedisCache
	fallback *MemoryCache
	degraded atomic.Bool
}

func NewFailoverCache(primary *RedisCache, opts ...MemoryOption) *FailoverCache {
	fc := &FailoverCache{
		primary:  primary,
		fallback: NewMemoryCache(opts...),
	}
	if primary == nil {
		fc.degraded.Store(true)
	}
	return fc
}

// Mode reports which backend is currently serving.
func (fc *FailoverCache) Mode() string {
	if fc.degraded.Load() {
		return ModeMemory
	}
	return ModeRedis
}

// Fallback exposes the memory layer for entry-count introspection.
func (fc *FailoverCache) Fallback() *MemoryCache {
	return fc.fallback
}

// Entries reports the live entry count: a keyspace scan on the primary, the
// map size when degraded. Expired keys are excluded either way.
func (fc *FailoverCache) Entries(ctx context.Context, pattern string) (int64, error) {
	if fc.degraded.Load() {
		return int64(fc.fallback.Len()), nil
	}
	n, err := fc.primary.CountKeys(ctx, pattern)
	if fc.degrade(err) {
		return int64(fc.fallback.Len()), nil
	}
	return n, err
}

func (fc *FailoverCache) active() Service {
	if fc.degraded.Load() {
		return fc.fallback
	}
	return fc.primary
}

// degrade flips to memory on primary transport errors. Cache misses and
// malformed payloads are not store faults, and neither is the caller's own
// cancellation or deadline: a client hanging up mid-operation says nothing
// about Redis health.
func (fc *FailoverCache) degrade(err error) bool {
	if err == nil || errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrBadValue) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	fc.degraded.Store(true)
	return true
}

func (fc *FailoverCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := fc.active().Set(ctx, key, value, expiration)
	if fc.degrade(err) {
		return fc.fallback.Set(ctx, key, value, expiration)
	}
	return err
}

func (fc *FailoverCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := fc.active().Get(ctx, key, dest)
	if fc.degrade(err) {
		return fc.fallback.Get(ctx, key, dest)
	}
	return err
}

func (fc *FailoverCache) Delete(ctx context.Context, keys ...string) error {
	err := fc.active().Delete(ctx, keys...)
	if fc.degrade(err) {
		return fc.fallback.Delete(ctx, keys...)
	}
	return err
}

func (fc *FailoverCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	ok, err := fc.active().Exists(ctx, keys...)
	if fc.degrade(err) {
		return fc.fallback.Exists(ctx, keys...)
	}
	return ok, err
}

func (fc *FailoverCache) Increment(ctx context.Context, key string) (int64, error) {
	n, err := fc.active().Increment(ctx, key)
	if fc.degrade(err) {
		return fc.fallback.Increment(ctx, key)
	}
	return n, err
}

func (fc *FailoverCache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	ok, err := fc.active().Expire(ctx, key, expiration)
	if fc.degrade(err) {
		return fc.fallback.Expire(ctx, key, expiration)
	}
	return ok, err
}

func (fc *FailoverCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := fc.active().TryLock(ctx, key, ttl)
	if fc.degrade(err) {
		return fc.fallback.TryLock(ctx, key, ttl)
	}
	return ok, err
}

func (fc *FailoverCache) Unlock(ctx context.Context, key string) error {
	err := fc.active().Unlock(ctx, key)
	if fc.degrade(err) {
		return fc.fallback.Unlock(ctx, key)
	}
	return err
}

// Close closes both layers.
func (fc *FailoverCache) Close() error {
	_ = fc.fallback.Close()
	if fc.primary != nil {
		return fc.primary.Close()
	}
	return nil
}
