package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeCmdable struct {
	data        map[string]string
	counters    map[string]int64
	expireCalls map[string]time.Duration
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{
		data:        map[string]string{},
		counters:    map[string]int64{},
		expireCalls: map[string]time.Duration{},
	}
}

func (f *fakeCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCmdable) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expireCalls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestIncrWithTTLSetsExpiryOnFirstIncrementOnly(t *testing.T) {
	fake := newFakeCmdable()
	client := &Client{store: fake}
	ctx := context.Background()

	count, err := client.IncrWithTTL(ctx, "hp:rate_limit:test", time.Minute)
	if err != nil {
		t.Fatalf("first incr: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if ttl, ok := fake.expireCalls["hp:rate_limit:test"]; !ok || ttl != time.Minute {
		t.Fatalf("expire not set on first increment: %v", fake.expireCalls)
	}

	delete(fake.expireCalls, "hp:rate_limit:test")
	count, err = client.IncrWithTTL(ctx, "hp:rate_limit:test", time.Minute)
	if err != nil {
		t.Fatalf("second incr: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if len(fake.expireCalls) != 0 {
		t.Fatalf("expire called again on later increments: %v", fake.expireCalls)
	}
}

func TestSetGetDelRoundTrip(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	ctx := context.Background()

	if err := client.Set(ctx, "hp:session:access:abc", "token", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := client.Get(ctx, "hp:session:access:abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "token" {
		t.Fatalf("value = %q, want %q", got, "token")
	}

	if err := client.Del(ctx, "hp:session:access:abc"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, "hp:session:access:abc"); err != redis.Nil {
		t.Fatalf("get after del: err = %v, want redis.Nil", err)
	}
}

func TestSetNXHonorsExistingValue(t *testing.T) {
	client := &Client{store: newFakeCmdable()}
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "hp:lock:worker", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first setnx = %v, %v; want true", ok, err)
	}
	ok, err = client.SetNX(ctx, "hp:lock:worker", "b", time.Minute)
	if err != nil {
		t.Fatalf("second setnx: %v", err)
	}
	if ok {
		t.Fatal("second setnx succeeded against an existing key")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	tests := []struct {
		got  string
		want string
	}{
		{client.IdempotencyKey("scope", "id"), "hp:idempotency:scope:id"},
		{client.IdempotencyKey("", "id"), "hp:idempotency:id"},
		{client.AccessSessionKey("abc"), "hp:session:access:abc"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()

	if err := client.Set(ctx, "k", "v", 0); err == nil {
		t.Fatal("Set on zero client should error")
	}
	if _, err := client.Get(ctx, "k"); err == nil {
		t.Fatal("Get on zero client should error")
	}
	if _, err := client.IncrWithTTL(ctx, "k", time.Minute); err == nil {
		t.Fatal("IncrWithTTL on zero client should error")
	}
}
