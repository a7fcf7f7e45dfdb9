package progress

import (
	"context"
	"testing"
)

func TestNoopCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	cache := NoopCache{}

	if err := cache.SetResumeTime(ctx, "user", "host", 42); err != nil {
		t.Fatalf("SetResumeTime returned error: %v", err)
	}
	seconds, ok, err := cache.ResumeTime(ctx, "user", "host")
	if err != nil {
		t.Fatalf("ResumeTime returned error: %v", err)
	}
	if ok || seconds != 0 {
		t.Fatalf("expected miss, got (%v, %v)", seconds, ok)
	}
	if err := cache.ClearResumeTime(ctx, "user", "host"); err != nil {
		t.Fatalf("ClearResumeTime returned error: %v", err)
	}
}

func TestNewRedisCacheRequiresAddr(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheConfig{}); err == nil {
		t.Fatal("expected error for missing addr")
	}
	if _, err := NewRedisCache(RedisCacheConfig{Addrs: []string{"  ", ""}}); err == nil {
		t.Fatal("expected error for blank addrs")
	}
}
