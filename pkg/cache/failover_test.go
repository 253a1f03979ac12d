package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreachableRedis builds a cache around a client that can never connect,
// without going through NewRedisCache's startup ping.
func unreachableRedis() *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	return &RedisCache{client: client, prefix: "test"}
}

func TestFailoverIgnoresCallerCancellation(t *testing.T) {
	fc := NewFailoverCache(unreachableRedis())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out string
	if err := fc.Get(ctx, "k", &out); err == nil {
		t.Fatalf("expected error from cancelled context")
	}
	if fc.Mode() != ModeRedis {
		t.Fatalf("caller cancellation degraded the cache: mode = %s", fc.Mode())
	}
}

func TestFailoverDegradeClassification(t *testing.T) {
	fc := NewFailoverCache(unreachableRedis())

	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrCacheMiss, false},
		{fmt.Errorf("%w: unexpected end of input", ErrBadValue), false},
		{context.Canceled, false},
		{fmt.Errorf("redis get: %w", context.DeadlineExceeded), false},
		{errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), true},
	}
	for _, tc := range cases {
		fc.degraded.Store(false)
		if got := fc.degrade(tc.err); got != tc.want {
			t.Fatalf("degrade(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestFailoverDegradesOnTransportError(t *testing.T) {
	fc := NewFailoverCache(unreachableRedis())
	ctx := context.Background()

	if err := fc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("fallback set: %v", err)
	}
	if fc.Mode() != ModeMemory {
		t.Fatalf("transport error should degrade, mode = %s", fc.Mode())
	}

	var out string
	if err := fc.Get(ctx, "k", &out); err != nil || out != "v" {
		t.Fatalf("fallback get = %q, err %v", out, err)
	}
}

func TestFailoverEntriesCountsLiveKeys(t *testing.T) {
	fc := NewFailoverCache(nil)
	ctx := context.Background()

	_ = fc.Set(ctx, "a", "1", time.Minute)
	_ = fc.Set(ctx, "a", "2", time.Minute)
	_ = fc.Set(ctx, "b", "3", time.Minute)

	n, err := fc.Entries(ctx, "*")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}
}
