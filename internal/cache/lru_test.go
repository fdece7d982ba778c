package cache

import (
	"io"
	"testing"
	"time"

	applog "fintrack/internal/log"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[int], *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[int](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s missing", k)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRU_Expiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", 1)
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", 2)

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v", v, ok)
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestLRU_Add(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	if !c.Add("k", 1) {
		t.Fatal("first Add should store")
	}
	if c.Add("k", 2) {
		t.Error("second Add should be refused")
	}
	if v, _ := c.Get("k"); v != 1 {
		t.Errorf("Get(k) = %d, want 1", v)
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if !c.Add("k", 3) {
		t.Error("Add after expiry should store")
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("k present after Delete")
	}
}

func TestManager_Sweep(t *testing.T) {
	a, clkA := newTestLRU(10, time.Minute)
	b, clkB := newTestLRU(10, time.Minute)
	a.Set("x", 1)
	b.Set("y", 2)
	b.Set("z", 3)
	clkA.t = clkA.t.Add(time.Hour)
	clkB.t = clkB.t.Add(time.Hour)

	m := NewManager(applog.New(applog.Config{Output: io.Discard}))
	m.Register(a)
	m.Register(b)
	if n := m.Sweep(); n != 3 {
		t.Errorf("Sweep() = %d, want 3", n)
	}
}

var _ Cache[int] = (*LRU[int])(nil)
