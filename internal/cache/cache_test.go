package cache

import (
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl, force time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	c := New(ttl, force)
	c.now = clock.Now
	return c, clock
}

func TestCache_TTLExpiry(t *testing.T) {
	c, clock := newTestCache(30*time.Second, 15*time.Second)

	c.Set("requests:all", []int{1, 2, 3})
	if _, ok := c.Get("requests:all"); !ok {
		t.Fatal("expected hit immediately after set")
	}

	clock.Advance(31 * time.Second)
	if _, ok := c.Get("requests:all"); ok {
		t.Error("expected miss strictly after ttl")
	}
	if c.Len() != 0 {
		t.Error("expected expired entry to be evicted on read")
	}
}

func TestCache_ForcedMissBeforeTTL(t *testing.T) {
	c, clock := newTestCache(60*time.Second, 15*time.Second)

	c.Set("requests:all", "v1")
	clock.Advance(10 * time.Second)
	if _, ok := c.Get("requests:all"); !ok {
		t.Fatal("expected hit inside both windows")
	}

	// Past the force interval but well inside ttl.
	clock.Advance(10 * time.Second)
	if _, ok := c.Get("requests:all"); ok {
		t.Error("expected forced miss once force interval elapsed")
	}

	// A fresh set resets the source's refresh clock.
	c.Set("requests:all", "v2")
	if v, ok := c.Get("requests:all"); !ok || v != "v2" {
		t.Errorf("expected fresh value after set, got %v (ok=%v)", v, ok)
	}
}

func TestCache_ForceIsPerSource(t *testing.T) {
	c, clock := newTestCache(60*time.Second, 15*time.Second)

	c.Set("requests:all", "r")
	clock.Advance(20 * time.Second)
	c.Set("runs:pending", "p")

	if _, ok := c.Get("requests:all"); ok {
		t.Error("requests source should be force-expired")
	}
	if _, ok := c.Get("runs:pending"); !ok {
		t.Error("runs source refreshed recently, should still hit")
	}
}

func TestCache_InvalidateByPrefix(t *testing.T) {
	c, _ := newTestCache(time.Minute, 30*time.Second)

	c.Set("requests:all", 1)
	c.Set("requests:summary", 2)
	c.Set("runs:all", 3)

	c.InvalidateByPrefix("requests")

	if _, ok := c.Get("requests:all"); ok {
		t.Error("requests:all should be gone")
	}
	if _, ok := c.Get("requests:summary"); ok {
		t.Error("requests:summary should be gone")
	}
	if _, ok := c.Get("runs:all"); !ok {
		t.Error("runs:all should survive")
	}
}

func TestCache_InvalidateAll(t *testing.T) {
	c, _ := newTestCache(time.Minute, 30*time.Second)
	c.Set("a:1", 1)
	c.Set("b:2", 2)
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}
