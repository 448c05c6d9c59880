package cache

import (
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	key := GenerateKey("mymemory", "ko", "ceb", "안녕하세요")

	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	want := &Entry{Text: "Kumusta", Provider: "mymemory", CreatedAt: time.Now()}
	if err := c.Set(key, want, DefaultTTL); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got.Text != want.Text || got.Provider != want.Provider {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t)
	key := GenerateKey("a")

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete missing key: %v", err)
	}
	if err := c.Set(key, &Entry{Text: "x"}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss after Delete")
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("mymemory", "en", "ko", "Hello")
	b := GenerateKey("mymemory", "en", "ko", "Hello")
	if a != b {
		t.Errorf("keys differ for identical parts: %q vs %q", a, b)
	}
	// Part boundaries must matter.
	if GenerateKey("ab", "c") == GenerateKey("a", "bc") {
		t.Error("keys collide across part boundaries")
	}
	if GenerateKey("en", "ko", "Hello") == GenerateKey("ko", "en", "Hello") {
		t.Error("keys collide across directions")
	}
}
