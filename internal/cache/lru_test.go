package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3) // evicts b, a was used more recently
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, 10*time.Second)
	c.now = clock.now

	c.Set("k", "v")
	c.Set("k2", "v2")
	clock.t = clock.t.Add(5 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired too early")
	}
	clock.t = clock.t.Add(6 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d", c.Size())
	}
}

func TestLRUCacheZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](1, 0)
	c.now = clock.now
	c.Set("k", 1)
	clock.t = clock.t.Add(24 * time.Hour)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("zero ttl entry expired")
	}
}

func TestLRUCachePurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](5, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprint(i), i)
	}
	c.Delete("0")
	if _, ok := c.Get("0"); ok {
		t.Fatal("deleted key still present")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size() after Purge = %d", c.Size())
	}
	c.Set("x", 1)
	if v, ok := c.Get("x"); !ok || v != 1 {
		t.Fatal("cache unusable after Purge")
	}
}

func TestLRUCacheConcurrent(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d-%d", g, i%60)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if c.Size() > 50 {
		t.Fatalf("Size() = %d exceeds max", c.Size())
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10, time.Minute)

	type payload struct {
		Name  string
		Total float64
	}
	var out payload
	if ok, err := s.Get(ctx, "missing", &out); ok || err != nil {
		t.Fatalf("miss = %v, %v", ok, err)
	}
	in := payload{Name: "Groceries", Total: 12.5}
	if err := s.Set(ctx, "k", in); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Get(ctx, "k", &out); !ok || err != nil || out != in {
		t.Fatalf("Get = %+v, %v, %v", out, ok, err)
	}
	if err := s.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 0 {
		t.Fatalf("Size() after Purge = %d", s.Size())
	}
}
