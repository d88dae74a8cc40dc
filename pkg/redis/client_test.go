package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gostackhq/reckoner-backend/pkg/config"
)

type fakeCmdable struct {
	counts  map[string]int64
	expires map[string]time.Duration
}

func (f *fakeCmdable) Ping(context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func (f *fakeCmdable) Get(context.Context, string) *goredis.StringCmd {
	return goredis.NewStringResult("", goredis.Nil)
}

func (f *fakeCmdable) SetNX(context.Context, string, any, time.Duration) *goredis.BoolCmd {
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Incr(_ context.Context, key string) *goredis.IntCmd {
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return goredis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCmdable) Expire(_ context.Context, key string, ttl time.Duration) *goredis.BoolCmd {
	if f.expires == nil {
		f.expires = map[string]time.Duration{}
	}
	f.expires[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Del(context.Context, ...string) *goredis.IntCmd {
	return goredis.NewIntResult(0, nil)
}

func TestLockKeyNamespacing(t *testing.T) {
	c := &Client{}
	got := c.LockKey("pricing", "item-1", "channel-2")
	want := "rk:lock:pricing:item-1:channel-2"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBuildKeySkipsEmptyParts(t *testing.T) {
	c := &Client{}
	got := c.buildKey("counter", "", "expiry_sweeps")
	want := "rk:counter:expiry_sweeps"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFixedWindowAllow(t *testing.T) {
	store := &fakeCmdable{}
	c := &Client{store: store}
	ctx := context.Background()

	for i := int64(1); i <= 2; i++ {
		allowed, count, err := c.FixedWindowAllow(ctx, "write:ip:10.0.0.9", 2, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed || count != i {
			t.Fatalf("attempt %d: allowed=%v count=%d", i, allowed, count)
		}
	}

	allowed, count, err := c.FixedWindowAllow(ctx, "write:ip:10.0.0.9", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed || count != 3 {
		t.Fatalf("expected third attempt blocked, allowed=%v count=%d", allowed, count)
	}

	// TTL is set once, on the first increment.
	key := c.RateLimitKey("write:ip:10.0.0.9")
	if ttl := store.expires[key]; ttl != time.Minute {
		t.Fatalf("expected window ttl on %q, got %v", key, ttl)
	}
	if len(store.expires) != 1 {
		t.Fatalf("expected a single expire call, got %d", len(store.expires))
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
}
