package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupRedisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr(), Prefix: prefix, TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStoreSetAndGet(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t, "test:")

	type entry struct {
		Name  string  `json:"name"`
		Total float64 `json:"total"`
	}
	in := []entry{{"Groceries", 70}, {"Transport", 30}}
	if err := s.Set(ctx, "breakdown", in); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:breakdown") {
		t.Fatal("key not namespaced with prefix")
	}
	if ttl := mr.TTL("test:breakdown"); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	var out []entry
	ok, err := s.Get(ctx, "breakdown", &out)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("Get returned %+v", out)
	}
}

func TestRedisStoreMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t, "")

	var out map[string]any
	if ok, err := s.Get(ctx, "nope", &out); ok || err != nil {
		t.Fatalf("miss = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "k", map[string]any{"a": 1}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if ok, _ := s.Get(ctx, "k", &out); ok {
		t.Fatal("expected expiry")
	}
}

func TestRedisStorePurgeOnlyOwnPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := setupRedisStore(t, "dash:")
	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, k, k); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("dash:a") || mr.Exists("dash:b") || mr.Exists("dash:c") {
		t.Fatal("prefixed keys not purged")
	}
	if !mr.Exists("other:key") {
		t.Fatal("foreign key purged")
	}
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected ping error")
	}
}
